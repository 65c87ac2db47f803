package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is the fixed iss claim embedded in every access token this service
// signs and required on every token it accepts.
const Issuer = "chirpy"

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("invalid token")

// MakeJWT signs a short-lived access token for the given user using HS256.
// The caller controls the lifetime; a non-positive lifetime produces a token
// that is already expired.
func MakeJWT(userID, tokenSecret string, expiresIn time.Duration) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("userID is required")
	}
	if tokenSecret == "" {
		return "", errors.New("token secret is not configured")
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(tokenSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateJWT verifies the token signature and required claims and returns
// the subject user id. Every failure mode collapses into ErrInvalidToken so
// callers cannot leak why a token was rejected.
func ValidateJWT(tokenString, tokenSecret string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return []byte(tokenSecret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if err := validateClaims(claims); err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func validateClaims(claims *jwt.RegisteredClaims) error {
	if claims.Issuer != Issuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	return nil
}
