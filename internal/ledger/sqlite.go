package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id            TEXT PRIMARY KEY,
    bankroll      INTEGER NOT NULL,
    stack         INTEGER NOT NULL DEFAULT 0,
    rebuys        INTEGER NOT NULL DEFAULT 0,
    updated_at_ms INTEGER NOT NULL
);`

// SQLiteStore keeps accounts in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath. Use
// ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		if parent := filepath.Dir(dbPath); parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, stmt := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		sqliteSchema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (Account, error) {
	var (
		acct      Account
		updatedMs int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, bankroll, stack, rebuys, updated_at_ms
FROM accounts
WHERE id = ?`, id).Scan(&acct.ID, &acct.Bankroll, &acct.Stack, &acct.Rebuys, &updatedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	acct.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return acct, nil
}

func (s *SQLiteStore) Save(ctx context.Context, acct Account) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO accounts (id, bankroll, stack, rebuys, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE
SET
    bankroll = excluded.bankroll,
    stack = excluded.stack,
    rebuys = excluded.rebuys,
    updated_at_ms = excluded.updated_at_ms
`, acct.ID, acct.Bankroll, acct.Stack, acct.Rebuys, acct.UpdatedAt.UTC().UnixMilli())
	return err
}

func (s *SQLiteStore) Adjust(ctx context.Context, id string, d Delta) (Account, error) {
	var (
		acct      Account
		updatedMs int64
	)
	err := s.db.QueryRowContext(ctx, `
UPDATE accounts
SET
    bankroll = bankroll + ?1,
    stack = stack + ?2,
    rebuys = rebuys + ?3,
    updated_at_ms = ?4
WHERE id = ?5 AND bankroll + ?1 >= 0
RETURNING id, bankroll, stack, rebuys, updated_at_ms
`, d.Bankroll, d.Stack, d.Rebuys, d.At.UTC().UnixMilli(), id).Scan(&acct.ID, &acct.Bankroll, &acct.Stack, &acct.Rebuys, &updatedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, s.explainMiss(ctx, id, d)
	}
	if err != nil {
		return Account{}, err
	}
	acct.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return acct, nil
}

// explainMiss reports why a guarded update matched no row.
func (s *SQLiteStore) explainMiss(ctx context.Context, id string, d Delta) error {
	acct, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	_, err = d.apply(acct)
	if err == nil {
		return fmt.Errorf("adjust account %s: concurrent update", id)
	}
	return err
}

func (s *SQLiteStore) List(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, bankroll, stack, rebuys, updated_at_ms
FROM accounts
ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var (
			acct      Account
			updatedMs int64
		)
		if err := rows.Scan(&acct.ID, &acct.Bankroll, &acct.Stack, &acct.Rebuys, &updatedMs); err != nil {
			return nil, err
		}
		acct.UpdatedAt = time.UnixMilli(updatedMs).UTC()
		out = append(out, acct)
	}
	return out, rows.Err()
}
