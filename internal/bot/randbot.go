package bot

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/blackjack"
)

// RandBot bets a random amount within the limits and picks uniformly among
// legal actions.
type RandBot struct {
	rng    *rand.Rand
	logger *log.Logger
}

func NewRandBot(rng *rand.Rand, logger *log.Logger) *RandBot {
	return &RandBot{rng: rng, logger: logger}
}

func (r *RandBot) Name() string { return "rand" }

func (r *RandBot) Bet(stack, minBet, maxBet int) int {
	hi := min(stack, maxBet)
	if hi < minBet {
		return 0
	}
	return minBet + r.rng.IntN(hi-minBet+1)
}

func (r *RandBot) Decide(v View) blackjack.Action {
	if len(v.Actions) == 0 {
		return blackjack.Stand
	}
	return v.Actions[r.rng.IntN(len(v.Actions))]
}
