package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero min bet", func(c *Config) { c.MinBet = 0 }},
		{"max bet below min", func(c *Config) { c.MaxBet = c.MinBet - 1 }},
		{"buy-in below min bet", func(c *Config) { c.MinBuyIn = c.MinBet - 1 }},
		{"max buy-in below min", func(c *Config) { c.MaxBuyIn = c.MinBuyIn - 1 }},
		{"no seats", func(c *Config) { c.MinSeats = 0 }},
		{"max seats below min", func(c *Config) { c.MinSeats = 3; c.MaxSeats = 2 }},
		{"too many decks", func(c *Config) { c.Decks = 9 }},
		{"threshold beyond shoe", func(c *Config) { c.Decks = 1; c.ReshuffleThreshold = 52 }},
		{"zero action timeout", func(c *Config) { c.ActionTimeout = 0 }},
		{"negative round delay", func(c *Config) { c.RoundDelay = -time.Second }},
		{"inverted range", func(c *Config) {
			c.RebuyTimeoutRange = DurationRange{Min: time.Minute, Max: time.Second}
		}},
		{"unknown rebuy mode", func(c *Config) { c.RebuyMode = "sometimes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationRangeClamp(t *testing.T) {
	r := DurationRange{Min: 10 * time.Second, Max: time.Minute}
	assert.Equal(t, 10*time.Second, r.Clamp(time.Second))
	assert.Equal(t, 30*time.Second, r.Clamp(30*time.Second))
	assert.Equal(t, time.Minute, r.Clamp(time.Hour))
	assert.Equal(t, time.Hour, DurationRange{}.Clamp(time.Hour))

	cfg := DefaultConfig()
	cfg.ActionTimeout = time.Second
	assert.Equal(t, cfg.ActionTimeoutRange.Min, cfg.actionWindow())
}

func TestParseRebuyMode(t *testing.T) {
	for _, s := range []string{"off", "once", "on"} {
		m, err := ParseRebuyMode(s)
		require.NoError(t, err)
		assert.Equal(t, RebuyMode(s), m)
	}
	_, err := ParseRebuyMode("always")
	assert.Error(t, err)
}

func TestLogScore(t *testing.T) {
	assert.Equal(t, 0, LogScore(0))
	assert.Equal(t, 0, LogScore(-50))
	assert.Equal(t, 3, LogScore(1))
	assert.Equal(t, 10, LogScore(10))
	assert.Equal(t, 20, LogScore(100))
	assert.Equal(t, 23, LogScore(200))
}

func TestPhaseClosed(t *testing.T) {
	assert.True(t, PhaseStopping.Closed())
	assert.True(t, PhaseStopped.Closed())
	assert.False(t, PhaseRebuy.Closed())
	assert.False(t, PhaseWaiting.Closed())
}
