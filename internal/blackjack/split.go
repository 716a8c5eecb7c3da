package blackjack

import (
	"fmt"

	"github.com/lox/blackjack/internal/deck"
)

// Drawer supplies cards to the rule engines.
type Drawer interface {
	Draw(n int) ([]deck.Card, error)
}

// CanSplit reports whether h may be split: it is an unplayed pair, the player
// holds fewer than MaxHands hands, and the stack covers a matching wager.
func CanSplit(h *Hand, handCount, stack, wager int) bool {
	return h.Pair &&
		len(h.Cards) == 2 &&
		!h.Locked &&
		handCount < MaxHands &&
		wager > 0 &&
		stack >= wager
}

// Split moves the second card of h into a new hand carrying wager and deals
// one fresh card to each. The caller withdraws the wager and accounts for it
// in the round totals. handCount is the number of hands held before the split.
// On a draw failure h is left unchanged.
func Split(h *Hand, wager, handCount int, src Drawer) (*Hand, error) {
	if !h.Pair || len(h.Cards) != 2 {
		return nil, fmt.Errorf("split %s: %w", h, ErrIllegalAction)
	}
	fresh, err := src.Draw(2)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", h, err)
	}

	aces := h.Cards[0].IsAce()
	second := &Hand{
		Cards:        []deck.Card{h.Cards[1], fresh[1]},
		Bet:          wager,
		FromSplitAce: aces,
	}
	h.Cards = []deck.Card{h.Cards[0], fresh[0]}
	h.FromSplitAce = aces
	// pair is re-derived for the new two-card hands so they may be split again
	h.Pair = false

	ctx := EvalContext{PlayerHand: true, HandCount: handCount + 1}
	Evaluate(h, ctx)
	Evaluate(second, ctx)
	return second, nil
}
