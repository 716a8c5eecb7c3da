package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the common Store contract against s.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	acct := Account{ID: "alice", Bankroll: 700, Stack: 300, Rebuys: 1, UpdatedAt: now}
	require.NoError(t, s.Save(ctx, acct))

	got, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)
	assert.Equal(t, acct.Bankroll, got.Bankroll)
	assert.Equal(t, acct.Stack, got.Stack)
	assert.Equal(t, acct.Rebuys, got.Rebuys)
	assert.True(t, acct.UpdatedAt.Equal(got.UpdatedAt))

	acct.Bankroll = 1000
	acct.Stack = 0
	require.NoError(t, s.Save(ctx, acct))
	got, err = s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1000, got.Bankroll)
	assert.Zero(t, got.Stack)

	later := now.Add(time.Minute)
	got, err = s.Adjust(ctx, "alice", Delta{Bankroll: -400, Stack: 400, Rebuys: 1, At: later})
	require.NoError(t, err)
	assert.Equal(t, 600, got.Bankroll)
	assert.Equal(t, 400, got.Stack)
	assert.Equal(t, 2, got.Rebuys)
	assert.True(t, later.Equal(got.UpdatedAt))

	_, err = s.Adjust(ctx, "alice", Delta{Bankroll: -601, At: later})
	assert.True(t, errors.Is(err, ErrInsufficientBankroll))
	got, err = s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 600, got.Bankroll, "rejected adjustment leaves the account unchanged")

	_, err = s.Adjust(ctx, "missing", Delta{Bankroll: 1, At: later})
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Save(ctx, Account{ID: "bob/odd name", Bankroll: 5, UpdatedAt: now}))
	if lister, ok := s.(Lister); ok {
		all, err := lister.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "alice", all[0].ID)
		assert.Equal(t, "bob/odd name", all[1].ID)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreConcurrentAdjust(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Save(ctx, Account{ID: "alice"}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Adjust(ctx, "alice", Delta{Bankroll: 10})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	acct, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 500, acct.Bankroll)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "accounts"))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("BLACKJACK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BLACKJACK_TEST_POSTGRES_DSN not set")
	}
	s, err := NewPostgresStore(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.db.Exec(`DELETE FROM blackjack_accounts WHERE id IN ('alice', 'bob/odd name')`)
		_ = s.Close()
	})
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("BLACKJACK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BLACKJACK_TEST_REDIS_ADDR not set")
	}
	prefix := "blackjack:test:" + t.Name() + ":"
	s, err := NewRedisStore(context.Background(), addr, "", 0, prefix)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.client.Del(context.Background(), prefix+"alice", prefix+"bob/odd name").Err()
		_ = s.Close()
	})
	exerciseStore(t, s)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, StoreOptions{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = OpenStore(ctx, StoreOptions{Driver: "file", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	assert.NoError(t, CloseStore(s))

	_, err = OpenStore(ctx, StoreOptions{Driver: "etcd"})
	assert.Error(t, err)
}
