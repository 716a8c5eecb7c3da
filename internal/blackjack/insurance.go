package blackjack

import "github.com/lox/blackjack/internal/deck"

// InsurancePayoutFactor is the multiple of the wager returned when the dealer
// holds blackjack: the stake back plus 2:1.
const InsurancePayoutFactor = 3

// Insurance is a side bet against the dealer holding blackjack.
type Insurance struct {
	Wager   int  `json:"wager"`
	Settled bool `json:"settled"`
	Payout  int  `json:"payout"`
}

// InsuranceCost returns the insurance wager for an initial bet.
func InsuranceCost(initial int) int {
	return initial / 2
}

// CanInsure reports whether insurance may be bought on h.
func CanInsure(dealerUp deck.Card, ins *Insurance, h *Hand, stack, initial int) bool {
	cost := InsuranceCost(initial)
	return dealerUp.IsAce() &&
		(ins == nil || ins.Wager == 0) &&
		len(h.Cards) == 2 &&
		cost > 0 &&
		stack >= cost
}

// Resolve settles the side bet once the dealer hand is known and returns the
// chips owed to the player. A second call returns ErrAlreadySettled and pays
// nothing.
func (i *Insurance) Resolve(dealerBlackjack bool) (int, error) {
	if i.Settled {
		return 0, ErrAlreadySettled
	}
	i.Settled = true
	if dealerBlackjack {
		i.Payout = i.Wager * InsurancePayoutFactor
	}
	return i.Payout, nil
}
