package simulator

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestNewDefaults(t *testing.T) {
	sim := New(Config{Rounds: 10})
	assert.Equal(t, []string{"basic"}, sim.config.Bots)
	assert.Equal(t, time.Duration(0), sim.config.Table.RoundDelay)
	assert.Equal(t, game.DefaultConfig().MaxBuyIn, sim.config.BuyIn)
	assert.Equal(t, ledger.DefaultStartingBankroll, sim.config.Bankroll)
	assert.Equal(t, time.Minute, sim.config.Timeout)
}

func TestRunConservesChips(t *testing.T) {
	cfg := game.DefaultConfig()
	cfg.RebuyMode = game.RebuyOn
	bots := []string{"basic", "stand", "maniac", "rand"}
	sim := New(Config{
		Rounds:   200,
		Bots:     bots,
		Seed:     7,
		BuyIn:    2000,
		Bankroll: 1_000_000,
		Table:    cfg,
		Logger:   quietLogger(),
	})

	res, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, res.Rounds)
	assert.Equal(t, int64(7), res.Seed)
	require.Len(t, res.Players, len(bots))

	total := res.House
	for i, p := range res.Players {
		assert.Equal(t, bots[i], p.Bot)
		total += p.Bankroll
		if p.Stats.Rounds > 0 {
			assert.NoError(t, p.Stats.Validate(), p.ID)
		}
		assert.LessOrEqual(t, p.Stats.Rounds, res.Rounds)
	}
	assert.Equal(t, 1_000_000*len(bots), total)
}

func TestRunIsDeterministic(t *testing.T) {
	run := func() *Result {
		res, err := New(Config{
			Rounds: 50,
			Bots:   []string{"basic", "rand"},
			Seed:   99,
			Logger: quietLogger(),
		}).Run(context.Background())
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()
	assert.Equal(t, a.House, b.House)
	for i := range a.Players {
		assert.Equal(t, a.Players[i].Bankroll, b.Players[i].Bankroll)
		assert.Equal(t, a.Players[i].Stats.Net, b.Players[i].Stats.Net)
	}
}

func TestRunStopsWhenBankrupt(t *testing.T) {
	cfg := game.DefaultConfig()
	cfg.RebuyMode = game.RebuyOff
	sim := New(Config{
		Rounds:   100_000,
		Bots:     []string{"stand"},
		Seed:     3,
		BuyIn:    100,
		Bankroll: 100,
		Table:    cfg,
		Logger:   quietLogger(),
	})

	res, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.Less(t, res.Rounds, 100_000)
	assert.Equal(t, game.StopReasonBankrupt, res.StopReason)
	assert.Equal(t, 100, res.Players[0].Bankroll+res.House)
}

func TestRunRejectsUnknownBot(t *testing.T) {
	_, err := New(Config{Rounds: 1, Bots: []string{"oracle"}, Logger: quietLogger()}).Run(context.Background())
	assert.Error(t, err)
}

func TestSummaryListsPlayers(t *testing.T) {
	res, err := New(Config{
		Rounds: 5,
		Bots:   []string{"basic", "stand"},
		Seed:   1,
		Logger: quietLogger(),
	}).Run(context.Background())
	require.NoError(t, err)

	out := Summary(res)
	assert.Contains(t, out, "basic-1")
	assert.Contains(t, out, "stand-2")
	assert.Contains(t, out, "5 rounds, seed 1")
}
