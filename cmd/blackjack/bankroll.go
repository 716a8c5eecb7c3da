package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/ledger"
)

// BankrollCmd groups account maintenance commands. They open the store
// configured for the server. Grants are applied as relative updates, so the
// sqlite, postgres and redis drivers accept them while the server runs and
// seated players keep the granted chips. The file driver serialises updates
// within one process only; stop the server before granting against it. The
// memory driver has nothing to maintain from outside the server.
type BankrollCmd struct {
	Show  BankrollShowCmd  `cmd:"" help:"Print an account"`
	Grant BankrollGrantCmd `cmd:"" help:"Add chips to an account bankroll"`
}

// StoreFlags locates the account store through the server config.
type StoreFlags struct {
	Config string `short:"c" default:"blackjack.hcl" help:"HCL configuration file"`
}

type BankrollShowCmd struct {
	StoreFlags `embed:""`
	Player     string `arg:"" help:"Player ID"`
}

type BankrollGrantCmd struct {
	StoreFlags `embed:""`
	Player     string `arg:"" help:"Player ID"`
	Amount     int    `arg:"" help:"Chips to add"`
}

// withLedger opens the configured store for the duration of fn.
func withLedger(path string, fn func(ctx context.Context, l *ledger.Ledger) error) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	logger := shared.SetupLogger(cfg.Server.LogLevel, false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
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
	return fn(ctx, l)
}

func printAccount(acct ledger.Account) {
	out := log.NewWithOptions(os.Stdout, log.Options{})
	out.Print("account", "id", acct.ID, "bankroll", acct.Bankroll, "stack", acct.Stack,
		"rebuys", acct.Rebuys, "updated", acct.UpdatedAt.Format(time.RFC3339))
}

func (c *BankrollShowCmd) Run() error {
	return withLedger(c.Config, func(ctx context.Context, l *ledger.Ledger) error {
		acct, err := l.Account(ctx, c.Player)
		if err != nil {
			return err
		}
		printAccount(acct)
		return nil
	})
}

func (c *BankrollGrantCmd) Run() error {
	return withLedger(c.Config, func(ctx context.Context, l *ledger.Ledger) error {
		acct, err := l.Grant(ctx, c.Player, c.Amount)
		if err != nil {
			return err
		}
		printAccount(acct)
		return nil
	})
}
