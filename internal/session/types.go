package session

import "time"

// UnsetPasswordHash is the sentinel stored for accounts that have no usable
// password. Such accounts cannot log in until the password is reset.
const UnsetPasswordHash = "unset"

// User is the persisted account record. The hash never leaves the session
// layer; handlers only ever see the public projection.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsChirpyRed  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the wire representation of a user with the password hash
// stripped.
type PublicUser struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Email       string    `json:"email"`
	IsChirpyRed bool      `json:"is_chirpy_red"`
}

// Public returns the user record safe for transmission.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		Email:       u.Email,
		IsChirpyRed: u.IsChirpyRed,
	}
}

// RefreshToken is a persisted long-lived credential. Rows are never deleted;
// revocation sets RevokedAt and the row stays behind as an audit record.
type RefreshToken struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Usable reports whether the token may still mint access tokens at the given
// instant.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
