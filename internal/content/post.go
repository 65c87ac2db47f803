// Package content holds the short-text-post records and their persistence.
// It is deliberately thin: validation plus storage glue, no session logic.
package content

import (
	"errors"
	"strings"
	"time"
)

const maxPostLength = 140

var (
	ErrNotFound     = errors.New("content: post not found")
	ErrBodyRequired = errors.New("body is required")
	ErrBodyTooLong  = errors.New("post is too long")
)

// Post is a single short-text post owned by a user.
type Post struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Body      string    `json:"body"`
	UserID    string    `json:"user_id"`
}

var profanity = map[string]struct{}{
	"kerfuffle": {},
	"sharbert":  {},
	"fornax":    {},
}

// ValidateBody checks length constraints and returns the body with banned
// words masked.
func ValidateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrBodyRequired
	}
	if len(body) > maxPostLength {
		return "", ErrBodyTooLong
	}
	return cleanBody(body), nil
}

func cleanBody(body string) string {
	words := strings.Split(body, " ")
	for i, word := range words {
		if _, banned := profanity[strings.ToLower(word)]; banned {
			words[i] = "****"
		}
	}
	return strings.Join(words, " ")
}
