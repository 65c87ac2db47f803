package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned when a plaintext password does not match
// the stored hash. Any other verification failure means the stored hash
// itself is unusable.
var ErrPasswordMismatch = errors.New("password does not match")

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPasswordHash compares a plaintext password with a stored bcrypt hash.
// A wrong password returns ErrPasswordMismatch; a malformed stored hash
// returns the underlying bcrypt error.
func CheckPasswordHash(password, hash string) error {
	if hash == "" {
		return errors.New("password hash is empty")
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
