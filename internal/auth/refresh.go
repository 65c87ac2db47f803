package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const refreshTokenBytes = 32

// MakeRefreshToken returns an opaque 64-character token drawn from a
// cryptographically secure source. Refresh tokens carry no structure; all of
// their meaning lives in the persisted row they key.
func MakeRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
