package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/bot"
	"github.com/lox/blackjack/internal/client"
	"github.com/lox/blackjack/internal/randutil"
)

// BotsCmd seats bots at a running server over WebSocket.
type BotsCmd struct {
	Server string   `short:"s" default:"http://localhost:8080" help:"Server URL"`
	Table  string   `short:"t" help:"Table ID (empty for the server default)"`
	Bots   []string `default:"basic" help:"Bots to seat, comma separated"`
	BuyIn  int      `name:"buy-in" default:"1000" help:"Buy-in per bot"`
	Prefix string   `default:"bot" help:"Player ID prefix"`
	Seed   int64    `default:"0" help:"RNG seed (0 for random)"`
	Debug  bool     `help:"Enable debug logging"`
}

func (c *BotsCmd) Run() error {
	logger := shared.SetupLogger("info", c.Debug)
	ctx := shared.SetupSignalHandler(logger)
	seed := randutil.Seed(c.Seed)

	var agents []*client.Agent
	var clients []*client.Client
	defer func() {
		for _, cl := range clients {
			_ = cl.Close()
		}
	}()

	for i, kind := range c.Bots {
		b, err := bot.New(kind, randutil.New(randutil.Derive(seed, i)), logger)
		if err != nil {
			return err
		}
		cl := client.NewClient(c.Server, logger)
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = cl.Connect(dialCtx)
		cancel()
		if err != nil {
			return err
		}
		clients = append(clients, cl)

		id := fmt.Sprintf("%s-%s-%d", c.Prefix, kind, i+1)
		a := client.NewAgent(cl, b, id, c.Table, c.BuyIn, logger)
		if err := a.Start(); err != nil {
			return err
		}
		agents = append(agents, a)
	}
	logger.Info("Bots seated", "count", len(agents), "server", c.Server, "seed", seed)

	for _, a := range agents {
		select {
		case <-a.Done():
		case <-ctx.Done():
		}
	}

	for _, a := range agents {
		s := a.Stats()
		lo, hi := s.ConfidenceInterval95()
		logger.Info("Bot finished", "player", a.PlayerID(), "bot", a.BotName(),
			"rounds", s.Rounds, "net", s.Net, "edge", fmt.Sprintf("%+.2f%%", s.Edge()*100),
			"ci95", fmt.Sprintf("[%+.3f, %+.3f]", lo, hi))
	}
	return nil
}
