package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"bankrest.org/internal/ids"
)

var _ UserStore = (*PGUserStore)(nil)

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
	row := s.db.QueryRowContext(ctx, `
		insert into users(id, name, password_hash)
		values($1,$2,$3)
		returning created_at, updated_at
	`, u.ID, u.Name, u.PasswordHash)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *PGUserStore) FindByName(ctx context.Context, name string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, password_hash, coalesce(refresh_token_hash,''), refresh_token_expiry, created_at, updated_at
		from users where name=$1
	`, name)
	var (
		u      User
		expiry sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Name, &u.PasswordHash, &u.RefreshTokenHash, &expiry, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if expiry.Valid {
		u.RefreshTokenExpiry = expiry.Time
	}
	return &u, nil
}

func (s *PGUserStore) SetRefreshToken(ctx context.Context, userID, tokenHash string, expiry time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update users
		set refresh_token_hash = nullif($2,''),
		    refresh_token_expiry = $3,
		    updated_at = now()
		where id=$1
	`, userID, tokenHash, nullableTime(expiry))
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

func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
