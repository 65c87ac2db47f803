package content

import "context"

// Store describes post persistence. List returns posts in created_at order,
// optionally filtered by author and reversed.
type Store interface {
	Create(ctx context.Context, p *Post) error
	List(ctx context.Context, authorID string, desc bool) ([]Post, error)
	Get(ctx context.Context, id string) (*Post, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}
