package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGUserStoreCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("insert into users").
		WithArgs(sqlmock.AnyArg(), "alice", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	store := NewPGUserStore(db)
	u := &User{Name: "alice", PasswordHash: "hash"}
	if err := store.Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == "" || !u.CreatedAt.Equal(now) {
		t.Fatalf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGUserStoreFindByName(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	expiry := now.Add(24 * time.Hour)
	mock.ExpectQuery("select id, name, password_hash").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "password_hash", "coalesce", "refresh_token_expiry", "created_at", "updated_at"}).
			AddRow("u1", "alice", "hash", "tokhash", expiry, now, now))

	store := NewPGUserStore(db)
	u, err := store.FindByName(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if u.ID != "u1" || u.RefreshTokenHash != "tokhash" || !u.RefreshTokenExpiry.Equal(expiry) {
		t.Fatalf("unexpected user: %+v", u)
	}

	mock.ExpectQuery("select id, name, password_hash").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	if _, err := store.FindByName(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGUserStoreSetRefreshToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewPGUserStore(db)
	ctx := context.Background()
	expiry := time.Now().UTC().Add(24 * time.Hour)

	mock.ExpectExec("update users").
		WithArgs("u1", "tokhash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.SetRefreshToken(ctx, "u1", "tokhash", expiry); err != nil {
		t.Fatalf("SetRefreshToken: %v", err)
	}

	// Clearing uses an empty hash and zero expiry.
	mock.ExpectExec("update users").
		WithArgs("u1", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.SetRefreshToken(ctx, "u1", "", time.Time{}); err != nil {
		t.Fatalf("clear: %v", err)
	}

	mock.ExpectExec("update users").
		WithArgs("ghost", "tokhash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.SetRefreshToken(ctx, "ghost", "tokhash", expiry); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
