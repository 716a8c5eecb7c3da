package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/bot"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/simulator"
)

// SimulateCmd plays bots against each other at a local table.
type SimulateCmd struct {
	Rounds  int           `default:"10000" help:"Number of rounds to play"`
	Bots    []string      `default:"basic" help:"Bots to seat, comma separated"`
	Seed    int64         `default:"0" help:"RNG seed (0 for random)"`
	MinBet  int           `name:"min-bet" default:"10" help:"Table minimum bet"`
	MaxBet  int           `name:"max-bet" default:"500" help:"Table maximum bet"`
	Decks   int           `default:"6" help:"Decks in the shoe"`
	BuyIn   int           `name:"buy-in" default:"0" help:"Buy-in per bot (0 for the table maximum)"`
	Rebuy   string        `default:"on" enum:"off,once,on" help:"Rebuy mode"`
	Timeout time.Duration `default:"5m" help:"Abort the simulation after this long"`
	Verbose bool          `short:"V" help:"Verbose logging"`
}

func (c *SimulateCmd) Help() string {
	return "Available bots: " + strings.Join(bot.Kinds, ", ")
}

func (c *SimulateCmd) Run() error {
	level := "warn"
	if c.Verbose {
		level = "debug"
	}
	logger := shared.SetupLogger(level, false)

	mode, err := game.ParseRebuyMode(c.Rebuy)
	if err != nil {
		return err
	}
	table := game.DefaultConfig()
	table.MinBet = c.MinBet
	table.MaxBet = c.MaxBet
	table.Decks = c.Decks
	table.ReshuffleThreshold = c.Decks * 52 / 4
	table.MinBuyIn = max(table.MinBuyIn, c.MinBet)
	table.MaxBuyIn = max(table.MaxBuyIn, c.MaxBet*10)
	table.MaxSeats = max(table.MaxSeats, len(c.Bots))
	table.RebuyMode = mode

	sim := simulator.New(simulator.Config{
		Rounds:  c.Rounds,
		Bots:    c.Bots,
		Seed:    c.Seed,
		BuyIn:   c.BuyIn,
		Table:   table,
		Timeout: c.Timeout,
		Logger:  logger,
	})

	ctx := shared.SetupSignalHandler(logger)
	res, err := sim.Run(ctx)
	if res != nil {
		fmt.Print(simulator.Summary(res))
	}
	if err != nil && (res == nil || ctx.Err() == nil) {
		return err
	}
	if err != nil {
		logger.Warn("Simulation interrupted", "rounds", res.Rounds)
	}
	return nil
}
