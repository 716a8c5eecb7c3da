package bot

import (
	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/blackjack"
)

// StandBot flat bets and stands on every hand, mimicking the dealer's worst
// possible opponent.
type StandBot struct {
	logger *log.Logger
}

func NewStandBot(logger *log.Logger) *StandBot {
	return &StandBot{logger: logger}
}

func (s *StandBot) Name() string { return "stand" }

func (s *StandBot) Bet(stack, minBet, _ int) int {
	return flatBet(stack, minBet)
}

func (s *StandBot) Decide(View) blackjack.Action {
	return blackjack.Stand
}
