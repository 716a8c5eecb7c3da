package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/notify"
	"github.com/lox/blackjack/internal/odds"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/server"
	"github.com/lox/blackjack/internal/session"
)

// ServeCmd runs the WebSocket server with the tables from the config file.
type ServeCmd struct {
	Config   string `short:"c" default:"blackjack.hcl" help:"HCL configuration file"`
	Addr     string `help:"Listen address, overriding the config file"`
	Debug    bool   `help:"Enable debug logging"`
	JSONLogs bool   `name:"json-logs" help:"Log in logfmt for machine consumption"`
}

func (c *ServeCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", c.Config, err)
	}

	logger := shared.SetupLogger(cfg.Server.LogLevel, c.Debug)
	if c.JSONLogs {
		logger = shared.SetupStructuredLogger(cfg.Server.LogLevel)
	}
	ctx := shared.SetupSignalHandler(logger)

	store, err := ledger.OpenStore(ctx, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer func() {
		if err := ledger.CloseStore(store); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()
	l := ledger.New(store,
		ledger.WithLogger(logger),
		ledger.WithStartingBankroll(cfg.Server.StartingBankroll),
	)

	hub := server.NewHub(logger)
	sinks := []game.Notifier{hub}
	if cfg.Notify.LogEvents {
		sinks = append(sinks, notify.NewLogSink(logger))
	}
	if cfg.Notify.NATSURL != "" {
		nc, err := notify.ConnectNATS(cfg.Notify.NATSURL, "blackjack-server", logger)
		if err != nil {
			return err
		}
		defer nc.Close()
		sinks = append(sinks, notify.NewNATSSink(nc, cfg.Notify.NATSSubject, logger))
	}

	tableOpts := []game.Option{game.WithNotifier(notify.Multi(sinks...))}
	if cfg.Odds.Enabled {
		mc := odds.NewMonteCarlo(cfg.Odds.Trials, randutil.Seed(0))
		if cfg.Odds.Workers > 0 {
			mc.Workers = cfg.Odds.Workers
		}
		tableOpts = append(tableOpts, game.WithEstimator(mc))
	}

	manager := session.NewManager(l,
		session.WithLogger(logger),
		session.WithTableOptions(tableOpts...),
	)
	for _, ts := range cfg.Tables {
		gcfg, err := ts.GameConfig()
		if err != nil {
			return err
		}
		var opts []game.Option
		if ts.Seed != 0 {
			opts = append(opts, game.WithSeed(ts.Seed))
		}
		if _, err := manager.Create(ts.Name, gcfg, opts...); err != nil {
			return err
		}
		logger.Info("Opened table", "table", ts.Name,
			"min_bet", gcfg.MinBet, "max_bet", gcfg.MaxBet,
			"decks", gcfg.Decks, "seats", gcfg.MaxSeats, "rebuy", gcfg.RebuyMode)
	}

	srv := server.NewServer(manager, hub, logger,
		server.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(addr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// tables stop first so every stack is refunded before connections drop
	err = errors.Join(manager.StopAll(shutdownCtx), srv.Shutdown(shutdownCtx))
	if err != nil {
		return err
	}
	logger.Info("Server shutdown complete")
	return nil
}
