package client

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/bot"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/server"
	"github.com/lox/blackjack/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	url    string
	ledger *ledger.Ledger
	table  *game.Table
}

func startServer(t *testing.T) *testServer {
	t.Helper()
	logger := log.New(io.Discard)
	l := ledger.New(ledger.NewMemoryStore(), ledger.WithLogger(logger), ledger.WithStartingBankroll(5000))
	hub := server.NewHub(logger)
	manager := session.NewManager(l,
		session.WithLogger(logger),
		session.WithTableOptions(game.WithSeed(11), game.WithNotifier(hub), game.WithLogger(logger)),
	)
	cfg := game.DefaultConfig()
	cfg.RoundDelay = 0
	cfg.AutoCleanup = false
	tbl, err := manager.Create("main", cfg)
	require.NoError(t, err)

	srv := server.NewServer(manager, hub, logger, server.WithRateLimit(1000, 1000))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = manager.StopAll(context.Background())
		_ = srv.Shutdown(context.Background())
		ts.Close()
	})
	return &testServer{url: ts.URL, ledger: l, table: tbl}
}

func TestWSURL(t *testing.T) {
	tests := map[string]string{
		"http://localhost:8080":   "ws://localhost:8080/ws",
		"https://example.com/":    "wss://example.com/ws",
		"ws://localhost:8080/ws":  "ws://localhost:8080/ws",
		"wss://example.com/game/": "wss://example.com/game/ws",
	}
	for in, want := range tests {
		got, err := wsURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := wsURL("ftp://example.com")
	assert.Error(t, err)
}

func TestAgentsPlayRounds(t *testing.T) {
	srv := startServer(t)
	logger := log.New(io.Discard)

	var agents []*Agent
	var clients []*Client
	for i, kind := range []string{"basic", "stand"} {
		c := NewClient(srv.url, logger)
		require.NoError(t, c.Connect(context.Background()))
		clients = append(clients, c)

		b, err := bot.New(kind, randutil.New(int64(i)), logger)
		require.NoError(t, err)
		a := NewAgent(c, b, kind, "main", 1000, logger)
		require.NoError(t, a.Start())
		agents = append(agents, a)
	}

	require.Eventually(t, func() bool {
		for _, a := range agents {
			if a.Stats().Rounds < 3 {
				return false
			}
		}
		return true
	}, 10*time.Second, 20*time.Millisecond)

	for _, a := range agents {
		s := a.Stats()
		assert.NoError(t, s.Validate(), a.PlayerID())
		assert.Equal(t, 10, s.Unit)
	}

	for _, c := range clients {
		require.NoError(t, c.Close())
	}
	for _, a := range agents {
		select {
		case <-a.Done():
		case <-time.After(5 * time.Second):
			t.Fatalf("agent %s did not finish", a.PlayerID())
		}
	}

	// disconnecting refunds the stacks
	require.Eventually(t, func() bool {
		return len(srv.table.State().Players) == 0
	}, 5*time.Second, 20*time.Millisecond)
	total := srv.table.HouseBalance()
	for _, a := range agents {
		acct, err := srv.ledger.Account(context.Background(), a.PlayerID())
		require.NoError(t, err)
		total += acct.Bankroll
	}
	assert.Equal(t, 2*5000, total)
}

func TestAgentReportsErrors(t *testing.T) {
	srv := startServer(t)
	logger := log.New(io.Discard)

	c := NewClient(srv.url, logger)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	a := NewAgent(c, bot.NewStandBot(logger), "carol", "missing", 500, logger)
	require.NoError(t, a.Start())
	require.Eventually(t, func() bool {
		return a.LastError() == "table_not_found"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSendAfterClose(t *testing.T) {
	srv := startServer(t)
	c := NewClient(srv.url, log.New(io.Discard))
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Close())
	_, err := c.ListTables()
	assert.ErrorIs(t, err, ErrClosed)
}
