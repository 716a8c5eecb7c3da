package bot

import (
	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/blackjack"
)

// BasicBot flat bets and plays the textbook basic strategy for a dealer who
// stands on all 17s. It never takes insurance.
type BasicBot struct {
	logger *log.Logger
}

func NewBasicBot(logger *log.Logger) *BasicBot {
	return &BasicBot{logger: logger}
}

func (b *BasicBot) Name() string { return "basic" }

func (b *BasicBot) Bet(stack, minBet, _ int) int {
	return flatBet(stack, minBet)
}

func (b *BasicBot) Decide(v View) blackjack.Action {
	if v.Hand == nil {
		return blackjack.Stand
	}
	up := blackjack.CardValue(v.DealerUp)
	action := BasicStrategy(v.Hand, up)
	if action == blackjack.SplitHand && !v.Can(blackjack.SplitHand) {
		action = totalStrategy(v.Hand, up)
	}
	b.logger.Debug("Basic strategy", "hand", v.Hand, "up", v.DealerUp, "action", action)

	if action == blackjack.Double {
		if v.Hand.Soft && v.Hand.Value >= 18 {
			return fallback(v, blackjack.Double, blackjack.Stand)
		}
		return fallback(v, blackjack.Double, blackjack.Hit)
	}
	return fallback(v, action, blackjack.Stand)
}

// BasicStrategy returns the preferred play for hand against a dealer up card
// worth up (2-11), ignoring whether the play is currently legal.
func BasicStrategy(hand *blackjack.Hand, up int) blackjack.Action {
	if len(hand.Cards) == 2 && hand.Cards[0].Rank == hand.Cards[1].Rank {
		if a, ok := pairStrategy(blackjack.CardValue(hand.Cards[0]), up); ok {
			return a
		}
	}
	return totalStrategy(hand, up)
}

func totalStrategy(hand *blackjack.Hand, up int) blackjack.Action {
	if hand.Soft {
		return softStrategy(hand.Value, up)
	}
	return hardStrategy(hand.Value, up)
}

func pairStrategy(rank, up int) (blackjack.Action, bool) {
	split := false
	switch rank {
	case 11, 8:
		split = true
	case 9:
		split = up <= 9 && up != 7
	case 7, 3, 2:
		split = up <= 7
	case 6:
		split = up <= 6
	case 4:
		split = up == 5 || up == 6
	}
	if split {
		return blackjack.SplitHand, true
	}
	return "", false
}

func softStrategy(value, up int) blackjack.Action {
	switch {
	case value >= 19:
		return blackjack.Stand
	case value == 18:
		switch {
		case up >= 3 && up <= 6:
			return blackjack.Double
		case up <= 8:
			return blackjack.Stand
		default:
			return blackjack.Hit
		}
	case value == 17:
		if up >= 3 && up <= 6 {
			return blackjack.Double
		}
	case value >= 15:
		if up >= 4 && up <= 6 {
			return blackjack.Double
		}
	case value >= 13:
		if up == 5 || up == 6 {
			return blackjack.Double
		}
	}
	return blackjack.Hit
}

func hardStrategy(value, up int) blackjack.Action {
	switch {
	case value >= 17:
		return blackjack.Stand
	case value >= 13:
		if up <= 6 {
			return blackjack.Stand
		}
	case value == 12:
		if up >= 4 && up <= 6 {
			return blackjack.Stand
		}
	case value == 11:
		return blackjack.Double
	case value == 10:
		if up <= 9 {
			return blackjack.Double
		}
	case value == 9:
		if up >= 3 && up <= 6 {
			return blackjack.Double
		}
	}
	return blackjack.Hit
}
