// Package bot provides automated blackjack players for simulations and load
// testing.
package bot

import (
	"fmt"
	rand "math/rand/v2"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/deck"
)

// View is what a bot sees when it must act.
type View struct {
	Hand     *blackjack.Hand
	DealerUp deck.Card
	Actions  []blackjack.Action
	Stack    int
}

// Can reports whether action is currently legal.
func (v View) Can(action blackjack.Action) bool {
	return slices.Contains(v.Actions, action)
}

// Bot decides wagers and plays.
type Bot interface {
	Name() string
	// Bet returns the wager for the next round given the stack and table
	// limits. Zero sits the round out.
	Bet(stack, minBet, maxBet int) int
	Decide(v View) blackjack.Action
}

// Kinds lists the bot names accepted by New.
var Kinds = []string{"basic", "stand", "rand", "maniac"}

// New builds a bot by name.
func New(kind string, rng *rand.Rand, logger *log.Logger) (Bot, error) {
	logger = logger.WithPrefix("bot")
	switch kind {
	case "basic":
		return NewBasicBot(logger), nil
	case "stand":
		return NewStandBot(logger), nil
	case "rand":
		return NewRandBot(rng, logger), nil
	case "maniac":
		return NewManiacBot(rng, logger), nil
	default:
		return nil, fmt.Errorf("unknown bot %q (want one of %v)", kind, Kinds)
	}
}

// flatBet wagers the table minimum while the stack covers it.
func flatBet(stack, minBet int) int {
	if stack < minBet {
		return 0
	}
	return minBet
}

// fallback returns want if legal, otherwise alt, otherwise stand.
func fallback(v View, want, alt blackjack.Action) blackjack.Action {
	if v.Can(want) {
		return want
	}
	if v.Can(alt) {
		return alt
	}
	return blackjack.Stand
}
