package content

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lordvorath/chirpy/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, p *Post) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into posts(id, body, user_id) values($1,$2,$3)
		 returning created_at, updated_at`,
		p.ID, p.Body, p.UserID,
	)
	return row.Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (s *PGStore) List(ctx context.Context, authorID string, desc bool) ([]Post, error) {
	query := `select id, created_at, updated_at, body, user_id from posts`
	args := []any{}
	if authorID != "" {
		query += ` where user_id=$1`
		args = append(args, authorID)
	}
	if desc {
		query += ` order by created_at desc`
	} else {
		query += ` order by created_at asc`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.Body, &p.UserID); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *PGStore) Get(ctx context.Context, id string) (*Post, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, created_at, updated_at, body, user_id from posts where id=$1`, id)
	var p Post
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.Body, &p.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from posts where id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `delete from posts`)
	return err
}
