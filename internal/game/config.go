package game

import (
	"fmt"
	"time"

	"github.com/lox/blackjack/internal/deck"
)

// RebuyMode controls whether bankrupt players may buy back in.
type RebuyMode string

const (
	RebuyOff  RebuyMode = "off"
	RebuyOnce RebuyMode = "once"
	RebuyOn   RebuyMode = "on"
)

// ParseRebuyMode validates a rebuy mode string.
func ParseRebuyMode(s string) (RebuyMode, error) {
	switch m := RebuyMode(s); m {
	case RebuyOff, RebuyOnce, RebuyOn:
		return m, nil
	}
	return "", fmt.Errorf("invalid rebuy mode %q (want off, once or on)", s)
}

// DurationRange bounds a configurable timeout.
type DurationRange struct {
	Min time.Duration
	Max time.Duration
}

// Clamp limits d to the range.
func (r DurationRange) Clamp(d time.Duration) time.Duration {
	if r.Min > 0 && d < r.Min {
		return r.Min
	}
	if r.Max > 0 && d > r.Max {
		return r.Max
	}
	return d
}

func (r DurationRange) validate(name string) error {
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("%s range must not be negative", name)
	}
	if r.Max > 0 && r.Min > r.Max {
		return fmt.Errorf("%s range min %s exceeds max %s", name, r.Min, r.Max)
	}
	return nil
}

// Config holds the rules of one table. It is read-only once the table is
// created.
type Config struct {
	MinBet   int
	MaxBet   int
	MinBuyIn int
	MaxBuyIn int
	MinSeats int
	MaxSeats int

	Decks              int
	ReshuffleThreshold int

	BettingTimeout      time.Duration
	BettingTimeoutRange DurationRange
	ActionTimeout       time.Duration
	ActionTimeoutRange  DurationRange
	RebuyTimeout        time.Duration
	RebuyTimeoutRange   DurationRange
	// RoundDelay is the pause between rounds. Zero starts the next round
	// immediately.
	RoundDelay time.Duration

	RebuyMode RebuyMode
	// AutoCleanup removes the table from its session manager once stopped.
	AutoCleanup bool
}

// DefaultConfig returns a six-deck table with conservative limits.
func DefaultConfig() Config {
	return Config{
		MinBet:              10,
		MaxBet:              500,
		MinBuyIn:            100,
		MaxBuyIn:            5000,
		MinSeats:            1,
		MaxSeats:            7,
		Decks:               6,
		ReshuffleThreshold:  78,
		BettingTimeout:      30 * time.Second,
		BettingTimeoutRange: DurationRange{Min: 10 * time.Second, Max: 2 * time.Minute},
		ActionTimeout:       30 * time.Second,
		ActionTimeoutRange:  DurationRange{Min: 10 * time.Second, Max: 2 * time.Minute},
		RebuyTimeout:        60 * time.Second,
		RebuyTimeoutRange:   DurationRange{Min: 30 * time.Second, Max: 5 * time.Minute},
		RoundDelay:          3 * time.Second,
		RebuyMode:           RebuyOnce,
		AutoCleanup:         true,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.MinBet <= 0 {
		return fmt.Errorf("min bet must be positive")
	}
	if c.MaxBet < c.MinBet {
		return fmt.Errorf("max bet %d below min bet %d", c.MaxBet, c.MinBet)
	}
	if c.MinBuyIn < c.MinBet {
		return fmt.Errorf("min buy-in %d below min bet %d", c.MinBuyIn, c.MinBet)
	}
	if c.MaxBuyIn < c.MinBuyIn {
		return fmt.Errorf("max buy-in %d below min buy-in %d", c.MaxBuyIn, c.MinBuyIn)
	}
	if c.MinSeats < 1 {
		return fmt.Errorf("min seats must be at least 1")
	}
	if c.MaxSeats < c.MinSeats {
		return fmt.Errorf("max seats %d below min seats %d", c.MaxSeats, c.MinSeats)
	}
	if c.Decks < 1 || c.Decks > 8 {
		return fmt.Errorf("decks must be between 1 and 8, got %d", c.Decks)
	}
	if c.ReshuffleThreshold < 0 || c.ReshuffleThreshold >= c.Decks*deck.DeckSize {
		return fmt.Errorf("reshuffle threshold %d out of range", c.ReshuffleThreshold)
	}
	if c.BettingTimeout <= 0 || c.ActionTimeout <= 0 || c.RebuyTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.RoundDelay < 0 {
		return fmt.Errorf("round delay must not be negative")
	}
	for name, r := range map[string]DurationRange{
		"betting timeout": c.BettingTimeoutRange,
		"action timeout":  c.ActionTimeoutRange,
		"rebuy timeout":   c.RebuyTimeoutRange,
	} {
		if err := r.validate(name); err != nil {
			return err
		}
	}
	if _, err := ParseRebuyMode(string(c.RebuyMode)); err != nil {
		return err
	}
	return nil
}

func (c Config) bettingWindow() time.Duration {
	return c.BettingTimeoutRange.Clamp(c.BettingTimeout)
}

func (c Config) actionWindow() time.Duration {
	return c.ActionTimeoutRange.Clamp(c.ActionTimeout)
}

func (c Config) rebuyWindow() time.Duration {
	return c.RebuyTimeoutRange.Clamp(c.RebuyTimeout)
}
