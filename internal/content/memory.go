package content

import (
	"context"
	"sync"
	"time"

	"github.com/lordvorath/chirpy/internal/ids"
)

var _ Store = (*InMemory)(nil)

// InMemory implements Store with in-process concurrency safety. Used by
// handler tests and local development without a database.
type InMemory struct {
	mu    sync.RWMutex
	posts []*Post // insertion order doubles as created_at order
	byID  map[string]*Post
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[string]*Post)}
}

func (s *InMemory) Create(ctx context.Context, p *Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	s.posts = append(s.posts, &cp)
	s.byID[p.ID] = &cp
	return nil
}

func (s *InMemory) List(ctx context.Context, authorID string, desc bool) ([]Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		if authorID != "" && p.UserID != authorID {
			continue
		}
		out = append(out, *p)
	}
	if desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (s *InMemory) Get(ctx context.Context, id string) (*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	for i, p := range s.posts {
		if p.ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemory) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = nil
	s.byID = make(map[string]*Post)
	return nil
}
