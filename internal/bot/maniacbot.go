package bot

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/blackjack"
)

// ManiacBot bets big and keeps drawing: it splits and doubles whenever
// allowed and only stands on 19 or better.
type ManiacBot struct {
	rng    *rand.Rand
	logger *log.Logger
}

func NewManiacBot(rng *rand.Rand, logger *log.Logger) *ManiacBot {
	return &ManiacBot{rng: rng, logger: logger}
}

func (m *ManiacBot) Name() string { return "maniac" }

func (m *ManiacBot) Bet(stack, minBet, maxBet int) int {
	bet := min(stack/2, maxBet)
	if bet < minBet {
		return flatBet(stack, minBet)
	}
	return bet
}

func (m *ManiacBot) Decide(v View) blackjack.Action {
	if v.Hand == nil || v.Hand.Value >= 19 {
		return blackjack.Stand
	}
	for _, a := range []blackjack.Action{blackjack.SplitHand, blackjack.Double} {
		if v.Can(a) && m.rng.IntN(4) > 0 {
			return a
		}
	}
	return fallback(v, blackjack.Hit, blackjack.Stand)
}
