package auth

import (
	"errors"
	"net/http"
	"strings"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
	apiKeyPrefix = "ApiKey "
)

// GetBearerToken extracts the token from an Authorization header of the form
// "Bearer <token>".
func GetBearerToken(headers http.Header) (string, error) {
	return tokenFromHeader(headers, bearerPrefix)
}

// GetAPIKey extracts the key from an Authorization header of the form
// "ApiKey <key>", the scheme used by webhook callers.
func GetAPIKey(headers http.Header) (string, error) {
	return tokenFromHeader(headers, apiKeyPrefix)
}

func tokenFromHeader(headers http.Header, prefix string) (string, error) {
	header := strings.TrimSpace(headers.Get(authHeader))
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(prefix)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", errors.New("missing token")
	}
	return token, nil
}
