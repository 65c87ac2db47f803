package session

import (
	"context"
	"sync"
	"time"

	"github.com/lordvorath/chirpy/internal/ids"
)

// InMemory holds users and refresh tokens with in-process concurrency
// safety. Used by handler tests and local development without a database.
// The Users and RefreshTokens views implement the store contracts.
type InMemory struct {
	mu     sync.RWMutex
	users  map[string]*User         // id -> user
	emails map[string]string        // email -> id
	tokens map[string]*RefreshToken // token -> row
}

// NewInMemory creates empty stores.
func NewInMemory() *InMemory {
	return &InMemory{
		users:  make(map[string]*User),
		emails: make(map[string]string),
		tokens: make(map[string]*RefreshToken),
	}
}

// Users returns the UserStore view.
func (s *InMemory) Users() UserStore { return (*memUserStore)(s) }

// RefreshTokens returns the RefreshTokenStore view.
func (s *InMemory) RefreshTokens() RefreshTokenStore { return (*memTokenStore)(s) }

type memUserStore InMemory

var _ UserStore = (*memUserStore)(nil)

func (s *memUserStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.emails[u.Email]; exists {
		return ErrDuplicateEmail
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.PasswordHash == "" {
		u.PasswordHash = UnsetPasswordHash
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.users[u.ID] = &cp
	s.emails[u.Email] = u.ID
	return nil
}

func (s *memUserStore) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *memUserStore) UpdateCredentials(ctx context.Context, id, email, passwordHash string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if owner, taken := s.emails[email]; taken && owner != id {
		return nil, ErrDuplicateEmail
	}
	delete(s.emails, u.Email)
	u.Email = email
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	s.emails[email] = id
	cp := *u
	return &cp, nil
}

func (s *memUserStore) UpgradeToRed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsChirpyRed = true
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memUserStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]*User)
	s.emails = make(map[string]string)
	s.tokens = make(map[string]*RefreshToken)
	return nil
}

type memTokenStore InMemory

var _ RefreshTokenStore = (*memTokenStore)(nil)

func (s *memTokenStore) Create(ctx context.Context, tok *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	tok.CreatedAt = now
	tok.UpdatedAt = now
	cp := *tok
	s.tokens[tok.Token] = &cp
	return nil
}

func (s *memTokenStore) FindWithUser(ctx context.Context, token string) (*RefreshToken, *User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[token]
	if !ok {
		return nil, nil, ErrNotFound
	}
	u, ok := s.users[tok.UserID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	tokCp := *tok
	userCp := *u
	return &tokCp, &userCp, nil
}

// Revoke mirrors the storage invariant of the Postgres implementation: one
// conditional write, idempotent, missing token is not an error.
func (s *memTokenStore) Revoke(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[token]
	if !ok || tok.RevokedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	tok.RevokedAt = &now
	tok.UpdatedAt = now
	return nil
}
