package blackjack

import "math"

// Win factors are the multiple of the stake returned on a winning hand.
const (
	FactorLose      = 0.0
	FactorPush      = 1.0
	FactorWin       = 2.0
	FactorBlackjack = 2.5
)

// Compare decides a player hand against the dealer hand. The returned factor
// is the multiple of the stake returned to the player.
func Compare(player, dealer *Hand) (Result, float64) {
	if player.Busted {
		return ResultLose, FactorLose
	}

	win := FactorWin
	if player.Blackjack {
		win = FactorBlackjack
	}

	switch {
	case dealer.Busted:
		return ResultWin, win
	case player.Value == dealer.Value:
		return ResultPush, FactorPush
	case player.Value > dealer.Value:
		return ResultWin, win
	default:
		return ResultLose, FactorLose
	}
}

// Payout returns the net chip change for a hand: the stake is lost on a loss,
// untouched on a push, and bet×factor − bet on a win, rounded down.
func Payout(bet int, result Result, factor float64) int {
	switch result {
	case ResultLose:
		return -bet
	case ResultWin:
		return int(math.Floor(float64(bet)*factor)) - bet
	default:
		return 0
	}
}

// Settle compares h against dealer and records the result on h. It returns
// the chips to credit back to the player's stack: the stake plus winnings on a
// win, the stake on a push, nothing on a loss.
func Settle(h, dealer *Hand) (int, error) {
	if h.Settled() {
		return 0, ErrAlreadySettled
	}
	result, factor := Compare(h, dealer)
	h.Result = result
	h.Push = result == ResultPush
	h.Payout = Payout(h.Bet, result, factor)
	h.Locked = true

	if result == ResultLose {
		return 0, nil
	}
	return h.Bet + h.Payout, nil
}
