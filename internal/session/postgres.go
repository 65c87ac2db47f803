package session

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lordvorath/chirpy/internal/ids"
)

var (
	_ UserStore         = (*PGUserStore)(nil)
	_ RefreshTokenStore = (*PGRefreshTokenStore)(nil)
)

const pgUniqueViolation = "23505"

// PGUserStore implements UserStore using PostgreSQL.
type PGUserStore struct {
	db *sql.DB
}

func NewPGUserStore(db *sql.DB) *PGUserStore {
	return &PGUserStore{db: db}
}

func (s *PGUserStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.PasswordHash == "" {
		u.PasswordHash = UnsetPasswordHash
	}
	row := s.db.QueryRowContext(ctx,
		`insert into users(id, email, hashed_password) values($1,$2,$3)
		 returning created_at, updated_at`,
		u.ID, u.Email, u.PasswordHash,
	)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *PGUserStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, hashed_password, is_chirpy_red, created_at, updated_at
		 from users where id=$1`, id)
	return scanUser(row)
}

func (s *PGUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, hashed_password, is_chirpy_red, created_at, updated_at
		 from users where email=$1`, email)
	return scanUser(row)
}

func (s *PGUserStore) UpdateCredentials(ctx context.Context, id, email, passwordHash string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`update users set email=$2, hashed_password=$3, updated_at=now()
		 where id=$1
		 returning id, email, hashed_password, is_chirpy_red, created_at, updated_at`,
		id, email, passwordHash,
	)
	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

func (s *PGUserStore) UpgradeToRed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set is_chirpy_red=true, updated_at=now() where id=$1`, id)
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

func (s *PGUserStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `delete from users`)
	return err
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsChirpyRed, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// PGRefreshTokenStore implements RefreshTokenStore using PostgreSQL.
type PGRefreshTokenStore struct {
	db *sql.DB
}

func NewPGRefreshTokenStore(db *sql.DB) *PGRefreshTokenStore {
	return &PGRefreshTokenStore{db: db}
}

func (s *PGRefreshTokenStore) Create(ctx context.Context, tok *RefreshToken) error {
	row := s.db.QueryRowContext(ctx,
		`insert into refresh_tokens(token, user_id, expires_at) values($1,$2,$3)
		 returning created_at, updated_at`,
		tok.Token, tok.UserID, tok.ExpiresAt,
	)
	return row.Scan(&tok.CreatedAt, &tok.UpdatedAt)
}

func (s *PGRefreshTokenStore) FindWithUser(ctx context.Context, token string) (*RefreshToken, *User, error) {
	row := s.db.QueryRowContext(ctx,
		`select t.token, t.user_id, t.created_at, t.updated_at, t.expires_at, t.revoked_at,
		        u.id, u.email, u.hashed_password, u.is_chirpy_red, u.created_at, u.updated_at
		 from refresh_tokens t
		 join users u on u.id = t.user_id
		 where t.token = $1`, token)

	var (
		tok     RefreshToken
		u       User
		revoked sql.NullTime
	)
	err := row.Scan(
		&tok.Token, &tok.UserID, &tok.CreatedAt, &tok.UpdatedAt, &tok.ExpiresAt, &revoked,
		&u.ID, &u.Email, &u.PasswordHash, &u.IsChirpyRed, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if revoked.Valid {
		t := revoked.Time
		tok.RevokedAt = &t
	}
	return &tok, &u, nil
}

// Revoke marks the token revoked in one conditional update. Calling it again,
// or on a token that does not exist, is not an error; the original
// revocation timestamp is preserved.
func (s *PGRefreshTokenStore) Revoke(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked_at=now(), updated_at=now()
		 where token=$1 and revoked_at is null`, token)
	return err
}
