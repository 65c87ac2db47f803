package session

import "context"

// UserStore manages account persistence.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateCredentials(ctx context.Context, id, email, passwordHash string) (*User, error)
	UpgradeToRed(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// RefreshTokenStore manages the refresh token lifecycle. Revoke must be a
// single atomic update so a revoke racing a refresh can never be lost.
type RefreshTokenStore interface {
	Create(ctx context.Context, tok *RefreshToken) error
	FindWithUser(ctx context.Context, token string) (*RefreshToken, *User, error)
	Revoke(ctx context.Context, token string) error
}
