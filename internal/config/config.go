// Package config loads the HCL file describing a blackjack server: listener,
// account store, event sinks and the tables to open at start.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/ledger"
)

// Config represents the complete server configuration.
type Config struct {
	Server *ServerSettings `hcl:"server,block"`
	Store  *StoreSettings  `hcl:"store,block"`
	Notify *NotifySettings `hcl:"notify,block"`
	Odds   *OddsSettings   `hcl:"odds,block"`
	Tables []TableSettings `hcl:"table,block"`
}

// ServerSettings contains listener and process settings.
type ServerSettings struct {
	Address          string  `hcl:"address,optional"`
	Port             int     `hcl:"port,optional"`
	LogLevel         string  `hcl:"log_level,optional"`
	StartingBankroll int     `hcl:"starting_bankroll,optional"`
	RateLimit        float64 `hcl:"rate_limit,optional"`
	RateBurst        int     `hcl:"rate_burst,optional"`
}

// StoreSettings selects the account store.
type StoreSettings struct {
	Driver    string `hcl:"driver,optional"`
	Path      string `hcl:"path,optional"`
	DSN       string `hcl:"dsn,optional"`
	Addr      string `hcl:"addr,optional"`
	Password  string `hcl:"password,optional"`
	DB        int    `hcl:"db,optional"`
	KeyPrefix string `hcl:"key_prefix,optional"`
}

// NotifySettings configures event sinks besides connected clients.
type NotifySettings struct {
	LogEvents   bool   `hcl:"log_events,optional"`
	NATSURL     string `hcl:"nats_url,optional"`
	NATSSubject string `hcl:"nats_subject,optional"`
}

// OddsSettings configures the Monte Carlo estimator.
type OddsSettings struct {
	Enabled bool `hcl:"enabled,optional"`
	Trials  int  `hcl:"trials,optional"`
	Workers int  `hcl:"workers,optional"`
}

// TableSettings defines a table opened at start. Durations use Go syntax
// ("30s", "1m"). Unset values take the engine defaults.
type TableSettings struct {
	Name               string `hcl:"name,label"`
	MinBet             int    `hcl:"min_bet,optional"`
	MaxBet             int    `hcl:"max_bet,optional"`
	MinBuyIn           int    `hcl:"min_buy_in,optional"`
	MaxBuyIn           int    `hcl:"max_buy_in,optional"`
	MinSeats           int    `hcl:"min_seats,optional"`
	MaxSeats           int    `hcl:"max_seats,optional"`
	Decks              int    `hcl:"decks,optional"`
	ReshuffleThreshold int    `hcl:"reshuffle_threshold,optional"`
	BettingTimeout     string `hcl:"betting_timeout,optional"`
	ActionTimeout      string `hcl:"action_timeout,optional"`
	RebuyTimeout       string `hcl:"rebuy_timeout,optional"`
	RoundDelay         string `hcl:"round_delay,optional"`
	Rebuy              string `hcl:"rebuy,optional"`
	AutoCleanup        *bool  `hcl:"auto_cleanup,optional"`
	Seed               int64  `hcl:"seed,optional"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{Tables: []TableSettings{{Name: "main"}}}
	c.applyDefaults()
	return c
}

// Load reads configuration from an HCL file. A missing file yields the
// defaults.
func Load(filename string) (*Config, error) {
	src, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(src, filename)
}

// Parse decodes HCL source and applies defaults.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var c Config
	if diags := gohcl.DecodeBody(file.Body, nil, &c); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.StartingBankroll == 0 {
		c.Server.StartingBankroll = ledger.DefaultStartingBankroll
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 20
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = 40
	}

	if c.Store == nil {
		c.Store = &StoreSettings{}
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Path == "" {
		switch c.Store.Driver {
		case "sqlite":
			c.Store.Path = "blackjack.db"
		case "file":
			c.Store.Path = "accounts"
		}
	}

	if c.Notify == nil {
		c.Notify = &NotifySettings{}
	}
	if c.Odds == nil {
		c.Odds = &OddsSettings{}
	}
	if c.Odds.Trials == 0 {
		c.Odds.Trials = 2000
	}
}

// Validate checks the configuration for consistency, including every table's
// rules.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.StartingBankroll < 0 {
		return fmt.Errorf("starting bankroll must not be negative")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 1 {
		return fmt.Errorf("invalid rate limit %.1f/%d", c.Server.RateLimit, c.Server.RateBurst)
	}
	switch c.Store.Driver {
	case "memory", "file", "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store: postgres requires dsn")
		}
	case "redis":
		if c.Store.Addr == "" {
			return fmt.Errorf("store: redis requires addr")
		}
	default:
		return fmt.Errorf("store: unknown driver %q", c.Store.Driver)
	}
	if c.Odds.Trials < 1 {
		return fmt.Errorf("odds: trials must be positive")
	}

	seen := make(map[string]bool, len(c.Tables))
	for _, t := range c.Tables {
		if seen[t.Name] {
			return fmt.Errorf("table %s: defined twice", t.Name)
		}
		seen[t.Name] = true
		if _, err := t.GameConfig(); err != nil {
			return err
		}
	}
	return nil
}

// GetServerAddress returns the listen address.
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// StoreOptions converts the store block for ledger.OpenStore.
func (c *Config) StoreOptions() ledger.StoreOptions {
	return ledger.StoreOptions{
		Driver:    c.Store.Driver,
		Path:      c.Store.Path,
		DSN:       c.Store.DSN,
		Addr:      c.Store.Addr,
		Password:  c.Store.Password,
		DB:        c.Store.DB,
		KeyPrefix: c.Store.KeyPrefix,
	}
}

// GetTableByName returns a table block by name.
func (c *Config) GetTableByName(name string) *TableSettings {
	for i := range c.Tables {
		if c.Tables[i].Name == name {
			return &c.Tables[i]
		}
	}
	return nil
}

// GameConfig overlays the table block on game.DefaultConfig and validates
// the result.
func (t TableSettings) GameConfig() (game.Config, error) {
	cfg := game.DefaultConfig()
	setInt(&cfg.MinBet, t.MinBet)
	setInt(&cfg.MaxBet, t.MaxBet)
	setInt(&cfg.MinBuyIn, t.MinBuyIn)
	setInt(&cfg.MaxBuyIn, t.MaxBuyIn)
	setInt(&cfg.MinSeats, t.MinSeats)
	setInt(&cfg.MaxSeats, t.MaxSeats)
	setInt(&cfg.Decks, t.Decks)
	setInt(&cfg.ReshuffleThreshold, t.ReshuffleThreshold)

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"betting_timeout", t.BettingTimeout, &cfg.BettingTimeout},
		{"action_timeout", t.ActionTimeout, &cfg.ActionTimeout},
		{"rebuy_timeout", t.RebuyTimeout, &cfg.RebuyTimeout},
		{"round_delay", t.RoundDelay, &cfg.RoundDelay},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return game.Config{}, fmt.Errorf("table %s: %s: %w", t.Name, d.name, err)
		}
		*d.dst = v
	}

	if t.Rebuy != "" {
		mode, err := game.ParseRebuyMode(t.Rebuy)
		if err != nil {
			return game.Config{}, fmt.Errorf("table %s: %w", t.Name, err)
		}
		cfg.RebuyMode = mode
	}
	if t.AutoCleanup != nil {
		cfg.AutoCleanup = *t.AutoCleanup
	}
	// the default threshold is sized for a six-deck shoe
	if t.ReshuffleThreshold == 0 && cfg.ReshuffleThreshold >= cfg.Decks*deck.DeckSize {
		cfg.ReshuffleThreshold = cfg.Decks * deck.DeckSize / 4
	}

	if err := cfg.Validate(); err != nil {
		return game.Config{}, fmt.Errorf("table %s: %w", t.Name, err)
	}
	return cfg, nil
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
