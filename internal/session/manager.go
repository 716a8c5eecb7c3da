// Package session tracks the tables running in a process.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/ledger"
)

var (
	ErrTableExists   = errors.New("table already exists")
	ErrTableNotFound = errors.New("table not found")
)

// TableSummary holds lightweight table metadata for clients.
type TableSummary struct {
	ID       string         `json:"id"`
	Phase    game.Phase     `json:"phase"`
	Round    int            `json:"round"`
	Players  int            `json:"players"`
	MinBet   int            `json:"min_bet"`
	MaxBet   int            `json:"max_bet"`
	MinBuyIn int            `json:"min_buy_in"`
	MaxBuyIn int            `json:"max_buy_in"`
	MaxSeats int            `json:"max_seats"`
	Rebuy    game.RebuyMode `json:"rebuy"`
}

// Manager owns the set of live tables. Tables created with AutoCleanup are
// dropped from the manager once they stop.
type Manager struct {
	ledger    *ledger.Ledger
	logger    *log.Logger
	tableOpts []game.Option

	mu        sync.RWMutex
	tables    map[string]*game.Table
	defaultID string
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger. Tables log through the same logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTableOptions adds options applied to every table the manager creates.
func WithTableOptions(opts ...game.Option) Option {
	return func(m *Manager) {
		m.tableOpts = append(m.tableOpts, opts...)
	}
}

// NewManager creates an empty manager whose tables settle against l.
func NewManager(l *ledger.Ledger, opts ...Option) *Manager {
	m := &Manager{
		ledger: l,
		logger: log.New(io.Discard),
		tables: make(map[string]*game.Table),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a table. An empty id is replaced by a random one. The first
// table created becomes the default.
func (m *Manager) Create(id string, cfg game.Config, opts ...game.Option) (*game.Table, error) {
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[id]; ok {
		return nil, fmt.Errorf("create %s: %w", id, ErrTableExists)
	}

	all := append([]game.Option{game.WithLogger(m.logger)}, m.tableOpts...)
	t, err := game.NewTable(id, cfg, m.ledger, append(all, opts...)...)
	if err != nil {
		return nil, err
	}
	if cfg.AutoCleanup {
		t.OnStopped(func(t *game.Table) {
			m.forget(t)
		})
	}

	m.tables[id] = t
	if m.defaultID == "" {
		m.defaultID = id
	}
	m.logger.Info("Table created", "table", id, "min_bet", cfg.MinBet, "max_bet", cfg.MaxBet)
	return t, nil
}

// forget drops t if it is still the table registered under its id.
func (m *Manager) forget(t *game.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables[t.ID()] != t {
		return
	}
	delete(m.tables, t.ID())
	if m.defaultID == t.ID() {
		m.defaultID = ""
		ids := m.idsLocked()
		if len(ids) > 0 {
			m.defaultID = ids[0]
		}
	}
	m.logger.Info("Table removed", "table", t.ID(), "reason", t.StopReason())
}

// Get retrieves a table by id.
func (m *Manager) Get(id string) (*game.Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[id]
	return t, ok
}

// Default returns the default table, if any.
func (m *Manager) Default() (*game.Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[m.defaultID]
	return t, ok
}

// Len returns the number of registered tables.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables)
}

// List returns summaries of every table, ordered by id.
func (m *Manager) List() []TableSummary {
	m.mu.RLock()
	tables := make([]*game.Table, 0, len(m.tables))
	for _, id := range m.idsLocked() {
		tables = append(tables, m.tables[id])
	}
	m.mu.RUnlock()

	out := make([]TableSummary, 0, len(tables))
	for _, t := range tables {
		st := t.State()
		cfg := t.Config()
		out = append(out, TableSummary{
			ID:       t.ID(),
			Phase:    st.Phase,
			Round:    st.Round,
			Players:  len(st.Players),
			MinBet:   cfg.MinBet,
			MaxBet:   cfg.MaxBet,
			MinBuyIn: cfg.MinBuyIn,
			MaxBuyIn: cfg.MaxBuyIn,
			MaxSeats: cfg.MaxSeats,
			Rebuy:    cfg.RebuyMode,
		})
	}
	return out
}

func (m *Manager) idsLocked() []string {
	ids := make([]string, 0, len(m.tables))
	for id := range m.tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Remove stops a table and drops it from the manager. If the stop fails the
// table stays registered so it can be retried.
func (m *Manager) Remove(ctx context.Context, id string) error {
	t, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrTableNotFound)
	}
	if err := t.Stop(ctx, game.StopReasonShutdown); err != nil {
		return err
	}
	m.forget(t)
	return nil
}

// StopAll stops every table, collecting failures.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	tables := make([]*game.Table, 0, len(m.tables))
	for _, t := range m.tables {
		tables = append(tables, t)
	}
	m.mu.RUnlock()

	var errs []error
	for _, t := range tables {
		if err := t.Stop(ctx, game.StopReasonShutdown); err != nil {
			m.logger.Error("Failed to stop table", "table", t.ID(), "error", err)
			errs = append(errs, err)
			continue
		}
		m.forget(t)
	}
	return errors.Join(errs...)
}
