package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
server {
  address           = "0.0.0.0"
  port              = 9090
  starting_bankroll = 2500
}

store {
  driver     = "redis"
  addr       = "localhost:6379"
  key_prefix = "bj:"
}

notify {
  log_events = true
  nats_url   = "nats://localhost:4222"
}

table "high" {
  min_bet        = 100
  max_bet        = 1000
  min_buy_in     = 1000
  max_buy_in     = 10000
  decks          = 8
  action_timeout = "45s"
  round_delay    = "0s"
  rebuy          = "off"
  auto_cleanup   = false
}

table "single" {
  decks = 1
}
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample), "test.hcl")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9090", cfg.GetServerAddress())
	assert.Equal(t, 2500, cfg.Server.StartingBankroll)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, ledger.StoreOptions{Driver: "redis", Addr: "localhost:6379", KeyPrefix: "bj:"}, cfg.StoreOptions())
	assert.True(t, cfg.Notify.LogEvents)
	assert.Equal(t, 2000, cfg.Odds.Trials)
	require.Len(t, cfg.Tables, 2)

	high, err := cfg.GetTableByName("high").GameConfig()
	require.NoError(t, err)
	assert.Equal(t, 100, high.MinBet)
	assert.Equal(t, 8, high.Decks)
	assert.Equal(t, 45*time.Second, high.ActionTimeout)
	assert.Zero(t, high.RoundDelay)
	assert.Equal(t, game.RebuyOff, high.RebuyMode)
	assert.False(t, high.AutoCleanup)

	single, err := cfg.GetTableByName("single").GameConfig()
	require.NoError(t, err)
	assert.Equal(t, 1, single.Decks)
	assert.Equal(t, 13, single.ReshuffleThreshold)
	assert.True(t, single.AutoCleanup)

	assert.Nil(t, cfg.GetTableByName("missing"))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:8080", cfg.GetServerAddress())
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "blackjack.db", cfg.Store.Path)
	require.Len(t, cfg.Tables, 1)
	assert.Equal(t, "main", cfg.Tables[0].Name)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blackjack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`server {`), "bad.hcl")
	assert.ErrorContains(t, err, "parse")

	_, err = Parse([]byte(`unknown = 1`), "bad.hcl")
	assert.ErrorContains(t, err, "decode")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"bad port", `server { port = 70000 }`, "invalid port"},
		{"postgres without dsn", `store { driver = "postgres" }`, "dsn"},
		{"unknown driver", `store { driver = "mongo" }`, "unknown driver"},
		{"bad duration", `table "t" { action_timeout = "soon" }`, "action_timeout"},
		{"bad rebuy", `table "t" { rebuy = "twice" }`, "rebuy mode"},
		{"bad rules", `table "t" { min_bet = 50
max_bet = 10 }`, "max bet"},
		{"duplicate table", `table "t" {}
table "t" {}`, "defined twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.src), "test.hcl")
			require.NoError(t, err)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
