package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lordvorath/chirpy/internal/auth"
)

const (
	defaultAccessTokenTTL  = time.Hour
	maxAccessTokenTTL      = time.Hour
	defaultRefreshTokenTTL = 60 * 24 * time.Hour
)

// Rejection messages are deliberately identical across the failure causes
// they cover so a caller cannot probe which emails or tokens exist.
const (
	msgBadCredentials  = "incorrect email or password"
	msgBadRefreshToken = "invalid refresh token"
	msgBadAccessToken  = "invalid or expired access token"
	msgResetRequired   = "password reset required"
)

// Service orchestrates credential verification and the token lifecycle.
type Service struct {
	users  UserStore
	tokens RefreshTokenStore
	secret string

	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithAccessTokenTTL overrides the access token lifetime, capped at one hour.
func WithAccessTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 && ttl <= maxAccessTokenTTL {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTokenTTL overrides the refresh token lifetime.
func WithRefreshTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the session service. The signing secret is required
// and read-only afterwards.
func NewService(users UserStore, tokens RefreshTokenStore, tokenSecret string, opts ...Option) (*Service, error) {
	if strings.TrimSpace(tokenSecret) == "" {
		return nil, errors.New("session: token secret is required")
	}
	svc := &Service{
		users:      users,
		tokens:     tokens,
		secret:     tokenSecret,
		accessTTL:  defaultAccessTokenTTL,
		refreshTTL: defaultRefreshTokenTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	User         PublicUser
	Token        string
	RefreshToken string
}

// CreateUser registers a new account and returns its public projection.
func (s *Service) CreateUser(ctx context.Context, email, password string) (PublicUser, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return PublicUser{}, BadRequest("email and password are required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return PublicUser{}, Internal(err)
	}
	user := &User{Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return PublicUser{}, BadRequest("email already registered")
		}
		return PublicUser{}, Internal(err)
	}
	return user.Public(), nil
}

// Login verifies credentials and issues an access token plus a persisted
// refresh token. Unknown email and wrong password are indistinguishable.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, Unauthorized(msgBadCredentials)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, Unauthorized(msgBadCredentials)
		}
		return LoginResult{}, Internal(err)
	}
	if user.PasswordHash == UnsetPasswordHash {
		return LoginResult{}, Forbidden(msgResetRequired)
	}
	if err := auth.CheckPasswordHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return LoginResult{}, Unauthorized(msgBadCredentials)
		}
		return LoginResult{}, Internal(err)
	}

	accessToken, err := auth.MakeJWT(user.ID, s.secret, s.accessTTL)
	if err != nil {
		return LoginResult{}, Internal(err)
	}
	refreshToken, err := auth.MakeRefreshToken()
	if err != nil {
		return LoginResult{}, Internal(err)
	}
	record := &RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: s.now().UTC().Add(s.refreshTTL),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return LoginResult{}, Internal(err)
	}

	return LoginResult{
		User:         user.Public(),
		Token:        accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh exchanges a usable refresh token for a new access token. The
// refresh token itself is not rotated; it stays valid until it expires or is
// revoked. Missing, revoked and expired tokens are indistinguishable.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	record, user, err := s.tokens.FindWithUser(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", Unauthorized(msgBadRefreshToken)
		}
		return "", Internal(err)
	}
	if !record.Usable(s.now().UTC()) {
		return "", Unauthorized(msgBadRefreshToken)
	}
	accessToken, err := auth.MakeJWT(user.ID, s.secret, s.accessTTL)
	if err != nil {
		return "", Internal(err)
	}
	return accessToken, nil
}

// Revoke permanently invalidates a refresh token. Revoking twice, or
// revoking a token that never existed, succeeds.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return Internal(err)
	}
	return nil
}

// Authenticate validates an access token and returns the acting user id.
func (s *Service) Authenticate(token string) (string, error) {
	userID, err := auth.ValidateJWT(token, s.secret)
	if err != nil {
		return "", Unauthorized(msgBadAccessToken)
	}
	return userID, nil
}

// UpdateCredentials replaces the acting user's email and password.
func (s *Service) UpdateCredentials(ctx context.Context, userID, email, password string) (PublicUser, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return PublicUser{}, BadRequest("email and password are required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return PublicUser{}, Internal(err)
	}
	user, err := s.users.UpdateCredentials(ctx, userID, email, hash)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return PublicUser{}, NotFound("user not found")
		case errors.Is(err, ErrDuplicateEmail):
			return PublicUser{}, BadRequest("email already registered")
		default:
			return PublicUser{}, Internal(err)
		}
	}
	return user.Public(), nil
}

// UpgradeToRed flags a membership upgrade reported by the payment webhook.
func (s *Service) UpgradeToRed(ctx context.Context, userID string) error {
	if err := s.users.UpgradeToRed(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NotFound("user not found")
		}
		return Internal(err)
	}
	return nil
}

// Reset wipes all users and, through cascade, their tokens. Only reachable
// from the dev-platform admin endpoint.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.users.DeleteAll(ctx); err != nil {
		return Internal(err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
