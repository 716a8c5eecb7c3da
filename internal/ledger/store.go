package ledger

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Account is the persisted view of a player's chips. Stack records chips
// bought in at tables and not yet returned to the bankroll.
type Account struct {
	ID        string    `json:"id"`
	Bankroll  int       `json:"bankroll"`
	Stack     int       `json:"stack"`
	Rebuys    int       `json:"rebuys"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Delta is a relative change to an account.
type Delta struct {
	Bankroll int
	Stack    int
	Rebuys   int
	At       time.Time
}

// apply returns acct with d added. A change that would take the bankroll
// below zero fails with ErrInsufficientBankroll.
func (d Delta) apply(acct Account) (Account, error) {
	if acct.Bankroll+d.Bankroll < 0 {
		return acct, fmt.Errorf("bankroll %d, change %d: %w", acct.Bankroll, d.Bankroll, ErrInsufficientBankroll)
	}
	acct.Bankroll += d.Bankroll
	acct.Stack += d.Stack
	acct.Rebuys += d.Rebuys
	acct.UpdatedAt = d.At
	return acct, nil
}

// Store persists accounts. Load and Adjust return ErrNotFound for unknown
// ids. Save writes a whole account and is only used to create one; chip
// movements go through Adjust, which applies a Delta atomically against the
// stored value so that concurrent writers to the same account do not
// overwrite each other.
type Store interface {
	Load(ctx context.Context, id string) (Account, error)
	Save(ctx context.Context, acct Account) error
	Adjust(ctx context.Context, id string, d Delta) (Account, error)
}

// Lister is implemented by stores that can enumerate their accounts.
type Lister interface {
	List(ctx context.Context) ([]Account, error)
}

// StoreOptions selects and configures a Store implementation.
type StoreOptions struct {
	// Driver is one of memory, file, sqlite, postgres or redis.
	Driver string
	// Path is the directory for file stores and the database file for sqlite.
	Path string
	// DSN is the postgres connection string.
	DSN string
	// Addr, Password and DB configure redis.
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// OpenStore builds the store described by opts.
func OpenStore(ctx context.Context, opts StoreOptions) (Store, error) {
	switch opts.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(opts.Path)
	case "sqlite":
		return NewSQLiteStore(ctx, opts.Path)
	case "postgres":
		return NewPostgresStore(ctx, opts.DSN)
	case "redis":
		return NewRedisStore(ctx, opts.Addr, opts.Password, opts.DB, opts.KeyPrefix)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// CloseStore closes s if it holds resources.
func CloseStore(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
