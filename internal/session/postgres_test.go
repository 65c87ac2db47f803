package session

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGUserStoreCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("insert into users").
		WithArgs(sqlmock.AnyArg(), "a@b.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	store := NewPGUserStore(db)
	user := &User{Email: "a@b.com", PasswordHash: "hashed"}
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated id")
	}
	if !user.CreatedAt.Equal(now) {
		t.Fatalf("unexpected created_at: %v", user.CreatedAt)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGUserStoreCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("insert into users").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	store := NewPGUserStore(db)
	err = store.Create(context.Background(), &User{Email: "a@b.com", PasswordHash: "hashed"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestPGUserStoreFindByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id, email, hashed_password, is_chirpy_red, created_at, updated_at").
		WithArgs("nobody@b.com").
		WillReturnError(sql.ErrNoRows)

	store := NewPGUserStore(db)
	if _, err := store.FindByEmail(context.Background(), "nobody@b.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGUserStoreUpgradeToRedNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update users set is_chirpy_red").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPGUserStore(db)
	if err := store.UpgradeToRed(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRefreshTokenStoreFindWithUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	revoked := now.Add(-time.Minute)
	columns := []string{
		"token", "user_id", "created_at", "updated_at", "expires_at", "revoked_at",
		"id", "email", "hashed_password", "is_chirpy_red", "created_at", "updated_at",
	}
	mock.ExpectQuery("select t.token, t.user_id").
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"tok-1", "user-1", now, now, now.Add(time.Hour), revoked,
			"user-1", "a@b.com", "hashed", false, now, now,
		))

	store := NewPGRefreshTokenStore(db)
	tok, user, err := store.FindWithUser(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("FindWithUser: %v", err)
	}
	if tok.RevokedAt == nil || !tok.RevokedAt.Equal(revoked) {
		t.Fatalf("expected revoked_at %v, got %v", revoked, tok.RevokedAt)
	}
	if tok.Usable(now) {
		t.Fatal("revoked token must not be usable")
	}
	if user.ID != "user-1" || user.Email != "a@b.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestPGRefreshTokenStoreFindWithUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select t.token, t.user_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	store := NewPGRefreshTokenStore(db)
	if _, _, err := store.FindWithUser(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRefreshTokenStoreRevokeIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	// Zero rows affected: already revoked or never issued. Still a success.
	mock.ExpectExec("update refresh_tokens set revoked_at").
		WithArgs("tok-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPGRefreshTokenStore(db)
	if err := store.Revoke(context.Background(), "tok-1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
