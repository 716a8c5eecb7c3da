package ledger

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails writes while fail is set.
type flakyStore struct {
	*MemoryStore
	mu   sync.Mutex
	fail bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: NewMemoryStore()}
}

func (s *flakyStore) setFail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

func (s *flakyStore) failing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail
}

func (s *flakyStore) Save(ctx context.Context, acct Account) error {
	if s.failing() {
		return errors.New("disk full")
	}
	return s.MemoryStore.Save(ctx, acct)
}

func (s *flakyStore) Adjust(ctx context.Context, id string, d Delta) (Account, error) {
	if s.failing() {
		return Account{}, errors.New("disk full")
	}
	return s.MemoryStore.Adjust(ctx, id, d)
}

func newTestLedger(store Store) *Ledger {
	return New(store, WithLogger(log.New(io.Discard)), WithStartingBankroll(1000))
}

func TestOpenCreatesAccount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l := newTestLedger(store)

	w, err := l.Open(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1000, w.Bankroll())
	assert.Zero(t, w.Stack())

	acct, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1000, acct.Bankroll)
	assert.False(t, acct.UpdatedAt.IsZero())

	_, err = l.Open(ctx, "")
	assert.Error(t, err)
}

func TestCommitBuyIn(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l := newTestLedger(store)
	w, err := l.Open(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, l.CommitBuyIn(ctx, w, 400))
	assert.Equal(t, 400, w.Stack())
	assert.Equal(t, 600, w.Bankroll())
	assert.Zero(t, w.PendingBuyIn())

	acct, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 600, acct.Bankroll)
	assert.Equal(t, 400, acct.Stack)

	err = l.CommitBuyIn(ctx, w, 700)
	assert.True(t, errors.Is(err, ErrInsufficientBankroll))
	assert.Equal(t, 400, w.Stack())

	assert.True(t, errors.Is(l.CommitBuyIn(ctx, w, 0), ErrInvalidAmount))
}

func TestCommitBuyInRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	l := newTestLedger(store)
	w, err := l.Open(ctx, "alice")
	require.NoError(t, err)

	store.setFail(true)
	err = l.CommitBuyIn(ctx, w, 400)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Equal(t, 1000, w.Bankroll())
	assert.Zero(t, w.Stack())
	assert.Zero(t, w.PendingBuyIn())
}

func TestCommitRebuyCountsRebuys(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	l := newTestLedger(store)
	w, err := l.Open(ctx, "alice")
	require.NoError(t, err)

	store.setFail(true)
	require.Error(t, l.CommitRebuy(ctx, w, 100))
	store.setFail(false)
	require.NoError(t, l.CommitRebuy(ctx, w, 100))

	acct, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, acct.Rebuys)
}

func TestSyncStackToBankroll(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	l := newTestLedger(store)
	w, err := l.Open(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, l.CommitBuyIn(ctx, w, 500))
	require.True(t, w.Withdraw(100))

	store.setFail(true)
	_, err = l.SyncStackToBankroll(ctx, w)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Equal(t, 400, w.Stack(), "stack restored after failed save")
	assert.Equal(t, 500, w.Bankroll())

	store.setFail(false)
	refunded, err := l.SyncStackToBankroll(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, 400, refunded)
	assert.Zero(t, w.Stack())
	assert.Equal(t, 900, w.Bankroll())

	acct, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 900, acct.Bankroll)
	assert.Zero(t, acct.Stack)
}

func TestGrant(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(NewMemoryStore())

	acct, err := l.Grant(ctx, "bob", 250)
	require.NoError(t, err)
	assert.Equal(t, 1250, acct.Bankroll)

	_, err = l.Grant(ctx, "bob", -1)
	assert.True(t, errors.Is(err, ErrInvalidAmount))
}

func TestGrantWhileSeated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l := newTestLedger(store)
	w, err := l.Open(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, l.CommitBuyIn(ctx, w, 500))

	_, err = l.Grant(ctx, "alice", 1000)
	require.NoError(t, err)

	refunded, err := l.SyncStackToBankroll(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, 500, refunded)
	assert.Equal(t, 2000, w.Bankroll())

	acct, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2000, acct.Bankroll)
	assert.Zero(t, acct.Stack)
}

func TestTwoWalletsShareAccount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l := newTestLedger(store)

	first, err := l.Open(ctx, "alice")
	require.NoError(t, err)
	second, err := l.Open(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, l.CommitBuyIn(ctx, first, 600))
	err = l.CommitBuyIn(ctx, second, 600)
	assert.True(t, errors.Is(err, ErrInsufficientBankroll), "second table sees the first buy-in")
	assert.False(t, errors.Is(err, ErrPersistence))
	assert.Zero(t, second.Stack())
	require.NoError(t, l.CommitBuyIn(ctx, second, 400))

	require.True(t, first.Withdraw(100))
	second.Deposit(100)
	_, err = l.SyncStackToBankroll(ctx, first)
	require.NoError(t, err)
	_, err = l.SyncStackToBankroll(ctx, second)
	require.NoError(t, err)

	acct, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1000, acct.Bankroll)
	assert.Zero(t, acct.Stack)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(NewMemoryStore())
	w, err := l.Open(ctx, "alice")
	require.NoError(t, err)

	_, err = l.Grant(ctx, "alice", 250)
	require.NoError(t, err)
	assert.Equal(t, 1000, w.Bankroll())

	require.NoError(t, l.Refresh(ctx, w))
	assert.Equal(t, 1250, w.Bankroll())
}

func TestNormalizeBuyIn(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		bankroll  int
		expected  int
		wantErr   error
	}{
		{name: "within range", requested: 500, bankroll: 2000, expected: 500},
		{name: "below min", requested: 10, bankroll: 2000, expected: 100},
		{name: "above max", requested: 5000, bankroll: 9000, expected: 1000},
		{name: "capped by bankroll", requested: 800, bankroll: 300, expected: 300},
		{name: "bankroll below min", requested: 500, bankroll: 99, wantErr: ErrInsufficientBankroll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeBuyIn(tt.requested, 100, 1000, tt.bankroll)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
