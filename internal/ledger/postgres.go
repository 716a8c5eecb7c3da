package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// PostgresStore keeps accounts in a shared Postgres database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to dsn and ensures the accounts table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS blackjack_accounts (
    id         TEXT PRIMARY KEY,
    bankroll   BIGINT NOT NULL,
    stack      BIGINT NOT NULL DEFAULT 0,
    rebuys     INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		_ = db.Close()
		return nil, describePQ(err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) Load(ctx context.Context, id string) (Account, error) {
	var acct Account
	err := s.db.QueryRowContext(ctx, `
SELECT id, bankroll, stack, rebuys, updated_at
FROM blackjack_accounts
WHERE id = $1`, id).Scan(&acct.ID, &acct.Bankroll, &acct.Stack, &acct.Rebuys, &acct.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, describePQ(err)
	}
	return acct, nil
}

func (s *PostgresStore) Save(ctx context.Context, acct Account) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO blackjack_accounts (id, bankroll, stack, rebuys, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET
    bankroll = EXCLUDED.bankroll,
    stack = EXCLUDED.stack,
    rebuys = EXCLUDED.rebuys,
    updated_at = EXCLUDED.updated_at
`, acct.ID, acct.Bankroll, acct.Stack, acct.Rebuys, acct.UpdatedAt.UTC())
	return describePQ(err)
}

func (s *PostgresStore) Adjust(ctx context.Context, id string, d Delta) (Account, error) {
	var acct Account
	err := s.db.QueryRowContext(ctx, `
UPDATE blackjack_accounts
SET
    bankroll = bankroll + $1,
    stack = stack + $2,
    rebuys = rebuys + $3,
    updated_at = $4
WHERE id = $5 AND bankroll + $1 >= 0
RETURNING id, bankroll, stack, rebuys, updated_at
`, d.Bankroll, d.Stack, d.Rebuys, d.At.UTC(), id).Scan(&acct.ID, &acct.Bankroll, &acct.Stack, &acct.Rebuys, &acct.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		current, lerr := s.Load(ctx, id)
		if lerr != nil {
			return Account{}, lerr
		}
		if _, aerr := d.apply(current); aerr != nil {
			return Account{}, aerr
		}
		return Account{}, fmt.Errorf("adjust account %s: concurrent update", id)
	}
	if err != nil {
		return Account{}, describePQ(err)
	}
	return acct, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, bankroll, stack, rebuys, updated_at
FROM blackjack_accounts
ORDER BY id`)
	if err != nil {
		return nil, describePQ(err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var acct Account
		if err := rows.Scan(&acct.ID, &acct.Bankroll, &acct.Stack, &acct.Rebuys, &acct.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

// describePQ adds the server error code to postgres errors.
func describePQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("postgres %s: %w", pqErr.Code, err)
	}
	return err
}
