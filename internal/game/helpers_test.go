package game

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/stretchr/testify/require"
)

const testBankroll = 1000

// recorder collects table events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) ofType(et EventType) []Event {
	var out []Event
	for _, e := range r.all() {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) has(et EventType) bool {
	return len(r.ofType(et)) > 0
}

func (r *recorder) last(et EventType) (Event, bool) {
	events := r.ofType(et)
	if len(events) == 0 {
		return Event{}, false
	}
	return events[len(events)-1], true
}

// gatedStore blocks writes while a gate is set, signalling each blocked
// write on entered, and fails writes while fail is set.
type gatedStore struct {
	*ledger.MemoryStore
	mu      sync.Mutex
	gate    chan struct{}
	entered chan struct{}
	fail    bool
}

func newGatedStore() *gatedStore {
	return &gatedStore{MemoryStore: ledger.NewMemoryStore(), entered: make(chan struct{}, 8)}
}

func (s *gatedStore) block() {
	s.mu.Lock()
	s.gate = make(chan struct{})
	s.mu.Unlock()
}

func (s *gatedStore) unblock() {
	s.mu.Lock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
	s.mu.Unlock()
}

func (s *gatedStore) setFail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

// pass waits at the gate and reports the failure state read on entry.
func (s *gatedStore) pass(ctx context.Context) error {
	s.mu.Lock()
	gate, fail := s.gate, s.fail
	s.mu.Unlock()
	if gate != nil {
		s.entered <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return errors.New("database unavailable")
	}
	return nil
}

func (s *gatedStore) Save(ctx context.Context, acct ledger.Account) error {
	if err := s.pass(ctx); err != nil {
		return err
	}
	return s.MemoryStore.Save(ctx, acct)
}

func (s *gatedStore) Adjust(ctx context.Context, id string, d ledger.Delta) (ledger.Account, error) {
	if err := s.pass(ctx); err != nil {
		return ledger.Account{}, err
	}
	return s.MemoryStore.Adjust(ctx, id, d)
}

type harness struct {
	t      *testing.T
	table  *Table
	clock  *quartz.Mock
	store  *gatedStore
	ledger *ledger.Ledger
	events *recorder
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinBuyIn = 100
	cfg.MaxBuyIn = 1000
	cfg.Decks = 1
	cfg.ReshuffleThreshold = 0
	cfg.BettingTimeout = 10 * time.Second
	cfg.BettingTimeoutRange = DurationRange{}
	cfg.ActionTimeout = 5 * time.Second
	cfg.ActionTimeoutRange = DurationRange{}
	cfg.RebuyTimeout = 20 * time.Second
	cfg.RebuyTimeoutRange = DurationRange{}
	cfg.RoundDelay = 2 * time.Second
	return cfg
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()
	clock := quartz.NewMock(t)
	store := newGatedStore()
	logger := log.New(io.Discard)
	l := ledger.New(store,
		ledger.WithLogger(logger),
		ledger.WithClock(clock),
		ledger.WithStartingBankroll(testBankroll),
	)
	events := &recorder{}
	opts = append([]Option{
		WithLogger(logger),
		WithClock(clock),
		WithSeed(42),
		WithNotifier(events),
	}, opts...)
	tbl, err := NewTable("t1", cfg, l, opts...)
	require.NoError(t, err)

	h := &harness{t: t, table: tbl, clock: clock, store: store, ledger: l, events: events}
	t.Cleanup(func() {
		store.unblock()
		store.setFail(false)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tbl.Stop(ctx, StopReasonShutdown)
	})
	return h
}

func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.clock.Advance(d).MustWait(ctx)
}

func (h *harness) join(ids ...string) {
	h.t.Helper()
	for _, id := range ids {
		require.NoError(h.t, h.table.Join(context.Background(), id, 500))
	}
}

// startRound fires the pending round timer and checks betting opened.
func (h *harness) startRound() {
	h.t.Helper()
	h.advance(h.table.Config().RoundDelay)
	require.Equal(h.t, PhaseBetting, h.table.Phase())
}

// stack queues cards to be drawn next. The initial deal draws one card per
// bettor then the dealer's up card, then again for the dealer's hole card.
func (h *harness) stack(codes string) {
	h.table.mu.Lock()
	defer h.table.mu.Unlock()
	h.table.shoe.Stack(deck.MustParseCards(codes)...)
}

func (h *harness) player(id string) PlayerState {
	h.t.Helper()
	ps, ok := h.table.Player(id)
	require.True(h.t, ok, "player %s not seated", id)
	return ps
}

func (h *harness) bankroll(id string) int {
	h.t.Helper()
	acct, err := h.store.Load(context.Background(), id)
	require.NoError(h.t, err)
	return acct.Bankroll
}

func (h *harness) waitStopped() {
	h.t.Helper()
	select {
	case <-h.table.Done():
	case <-time.After(5 * time.Second):
		h.t.Fatal("table did not stop")
	}
}
