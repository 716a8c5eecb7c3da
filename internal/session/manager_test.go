package session

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *ledger.Ledger) {
	t.Helper()
	logger := log.New(io.Discard)
	l := ledger.New(ledger.NewMemoryStore(), ledger.WithLogger(logger), ledger.WithStartingBankroll(1000))
	m := NewManager(l,
		WithLogger(logger),
		WithTableOptions(game.WithClock(quartz.NewMock(t)), game.WithSeed(1)),
	)
	t.Cleanup(func() {
		_ = m.StopAll(context.Background())
	})
	return m, l
}

func TestCreateAndGet(t *testing.T) {
	m, _ := newTestManager(t)

	first, err := m.Create("alpha", game.DefaultConfig())
	require.NoError(t, err)
	_, err = m.Create("beta", game.DefaultConfig())
	require.NoError(t, err)

	got, ok := m.Get("alpha")
	require.True(t, ok)
	assert.Same(t, first, got)

	def, ok := m.Default()
	require.True(t, ok)
	assert.Equal(t, "alpha", def.ID())

	_, err = m.Create("alpha", game.DefaultConfig())
	assert.ErrorIs(t, err, ErrTableExists)

	anon, err := m.Create("", game.DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, anon.ID(), 36)
	assert.Equal(t, 3, m.Len())
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	m, _ := newTestManager(t)
	cfg := game.DefaultConfig()
	cfg.Decks = 0
	_, err := m.Create("bad", cfg)
	require.Error(t, err)
	assert.Zero(t, m.Len())
}

func TestList(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Create("b", game.DefaultConfig())
	require.NoError(t, err)
	a, err := m.Create("a", game.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, a.Join(context.Background(), "alice", 500))

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, 1, list[0].Players)
	assert.Equal(t, game.PhaseWaiting, list[0].Phase)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, 10, list[1].MinBet)
}

func TestRemoveRefundsPlayers(t *testing.T) {
	ctx := context.Background()
	m, l := newTestManager(t)
	tbl, err := m.Create("a", game.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, tbl.Join(ctx, "alice", 500))

	require.NoError(t, m.Remove(ctx, "a"))
	_, ok := m.Get("a")
	assert.False(t, ok)

	acct, err := l.Account(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1000, acct.Bankroll)

	assert.ErrorIs(t, m.Remove(ctx, "a"), ErrTableNotFound)
}

func TestAutoCleanup(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	cfg := game.DefaultConfig()
	cfg.AutoCleanup = true
	auto, err := m.Create("auto", cfg)
	require.NoError(t, err)

	cfg.AutoCleanup = false
	kept, err := m.Create("kept", cfg)
	require.NoError(t, err)

	require.NoError(t, auto.Stop(ctx, "done"))
	require.NoError(t, kept.Stop(ctx, "done"))

	assert.Eventually(t, func() bool {
		_, ok := m.Get("auto")
		return !ok
	}, time.Second, 10*time.Millisecond)
	_, ok := m.Get("kept")
	assert.True(t, ok)

	def, ok := m.Default()
	require.True(t, ok)
	assert.Equal(t, "kept", def.ID())
}

func TestStopAll(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	for _, id := range []string{"a", "b", "c"} {
		_, err := m.Create(id, game.DefaultConfig())
		require.NoError(t, err)
	}
	require.NoError(t, m.StopAll(ctx))
	assert.Zero(t, m.Len())
}
