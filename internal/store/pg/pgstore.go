// Package pg persists ledger accounts in PostgreSQL.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"bankrest.org/internal/ledger"
)

// maxTransferRetries bounds automatic retries on serialization failures.
const maxTransferRetries = 3

type Store struct {
	db *sql.DB
}

var _ ledger.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing connection pool.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Create(ctx context.Context, name string) (ledger.Account, error) {
	acc := ledger.Account{ID: uuid.NewString(), Name: name}
	err := s.db.QueryRowContext(ctx, `
		insert into accounts(id, name, balance) values($1,$2,0)
		returning created_at
	`, acc.ID, acc.Name).Scan(&acc.CreatedAt)
	if err != nil {
		return ledger.Account{}, err
	}
	return acc, nil
}

func (s *Store) Get(ctx context.Context, id string) (ledger.Account, error) {
	var acc ledger.Account
	err := s.db.QueryRowContext(ctx, `
		select id, name, balance, created_at from accounts where id=$1
	`, id).Scan(&acc.ID, &acc.Name, &acc.Balance, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Account{}, err
	}
	return acc, nil
}

func (s *Store) List(ctx context.Context, f ledger.ListFilter) ([]ledger.Account, int, error) {
	where := ""
	args := []any{}
	if f.Name != "" {
		where = " where name=$1"
		args = append(args, f.Name)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "select count(*) from accounts"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// created_at is the tie-break so equal keys keep insertion order.
	order := " order by created_at"
	switch f.SortBy {
	case ledger.SortName:
		order = " order by name, created_at"
	case ledger.SortBalance:
		order = " order by balance, created_at"
	}

	query := fmt.Sprintf(
		"select id, name, balance, created_at from accounts%s%s offset $%d limit $%d",
		where, order, len(args)+1, len(args)+2,
	)
	args = append(args, f.Skip, f.Take)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	res := []ledger.Account{}
	for rows.Next() {
		var acc ledger.Account
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.Balance, &acc.CreatedAt); err != nil {
			return nil, 0, err
		}
		res = append(res, acc)
	}
	return res, total, rows.Err()
}

func (s *Store) ApplyDelta(ctx context.Context, id string, delta int64) (ledger.Account, error) {
	var acc ledger.Account
	err := s.db.QueryRowContext(ctx, `
		update accounts set balance = balance + $2
		where id=$1 and balance + $2 >= 0
		returning id, name, balance, created_at
	`, id, delta).Scan(&acc.ID, &acc.Name, &acc.Balance, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Guard rejected the update: missing account or balance would go
		// negative.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return ledger.Account{}, getErr
		}
		return ledger.Account{}, ledger.ErrInsufficientFunds
	}
	if err != nil {
		return ledger.Account{}, err
	}
	return acc, nil
}

func (s *Store) Transfer(ctx context.Context, senderID, recipientID string, amount int64) (ledger.Account, ledger.Account, error) {
	var (
		sender, recipient ledger.Account
		err               error
	)
	for attempt := 0; attempt <= maxTransferRetries; attempt++ {
		sender, recipient, err = s.transferOnce(ctx, senderID, recipientID, amount)
		if !isSerializationFailure(err) {
			return sender, recipient, err
		}
	}
	return ledger.Account{}, ledger.Account{}, fmt.Errorf("%w: %v", ledger.ErrConflict, err)
}

func (s *Store) transferOnce(ctx context.Context, senderID, recipientID string, amount int64) (ledger.Account, ledger.Account, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return ledger.Account{}, ledger.Account{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// Lock both rows in stable order to avoid deadlocks.
	for _, id := range sorted(senderID, recipientID) {
		var dummy int
		if err := tx.QueryRowContext(ctx, `select 1 from accounts where id=$1 for update`, id).Scan(&dummy); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ledger.Account{}, ledger.Account{}, ledger.ErrNotFound
			}
			return ledger.Account{}, ledger.Account{}, err
		}
	}

	// Re-validate under the lock.
	var senderBal int64
	if err := tx.QueryRowContext(ctx, `select balance from accounts where id=$1`, senderID).Scan(&senderBal); err != nil {
		return ledger.Account{}, ledger.Account{}, err
	}
	if senderBal < amount {
		return ledger.Account{}, ledger.Account{}, ledger.ErrInsufficientFunds
	}

	var sender, recipient ledger.Account
	if err := tx.QueryRowContext(ctx, `
		update accounts set balance = balance - $2 where id=$1
		returning id, name, balance, created_at
	`, senderID, amount).Scan(&sender.ID, &sender.Name, &sender.Balance, &sender.CreatedAt); err != nil {
		return ledger.Account{}, ledger.Account{}, err
	}
	if err := tx.QueryRowContext(ctx, `
		update accounts set balance = balance + $2 where id=$1
		returning id, name, balance, created_at
	`, recipientID, amount).Scan(&recipient.ID, &recipient.Name, &recipient.Balance, &recipient.CreatedAt); err != nil {
		return ledger.Account{}, ledger.Account{}, err
	}

	if err := tx.Commit(); err != nil {
		return ledger.Account{}, ledger.Account{}, err
	}
	return sender, recipient, nil
}

// --- helpers ---

func sorted(a, b string) []string {
	if a <= b {
		return []string{a, b}
	}
	return []string{b, a}
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization_failure and deadlock_detected are both safe to retry.
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
