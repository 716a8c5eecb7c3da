package blackjack

import (
	"strings"

	"github.com/lox/blackjack/internal/deck"
)

// Result is the settlement outcome of a hand against the dealer.
type Result string

const (
	ResultNone Result = ""
	ResultWin  Result = "win"
	ResultLose Result = "lose"
	ResultPush Result = "push"
)

// MaxHands is the number of hands a player may hold after splitting.
const MaxHands = 4

// Hand is one set of cards played against the dealer. Value and the derived
// flags are only ever written by Evaluate; Pair and FromSplitAce are sticky.
type Hand struct {
	Cards        []deck.Card `json:"cards"`
	Bet          int         `json:"bet"`
	Value        int         `json:"value"`
	Soft         bool        `json:"soft"`
	Pair         bool        `json:"pair"`
	Blackjack    bool        `json:"blackjack"`
	Busted       bool        `json:"busted"`
	Push         bool        `json:"push"`
	Doubled      bool        `json:"doubled"`
	FromSplitAce bool        `json:"from_split_ace"`
	Locked       bool        `json:"locked"`
	Result       Result      `json:"result"`
	Payout       int         `json:"payout"`
}

// NewHand creates a hand holding the given cards and wager. The hand is not
// evaluated.
func NewHand(bet int, cards ...deck.Card) *Hand {
	return &Hand{
		Cards: append([]deck.Card(nil), cards...),
		Bet:   bet,
	}
}

// EvalContext carries the facts about the owner that evaluation depends on.
type EvalContext struct {
	PlayerHand bool
	// HandCount is the number of hands the owning player holds this round.
	HandCount int
}

// DealerContext evaluates a dealer hand.
var DealerContext = EvalContext{PlayerHand: false, HandCount: 1}

// CardValue returns the blackjack value of a card, counting aces as 11.
func CardValue(c deck.Card) int {
	switch {
	case c.IsAce():
		return 11
	case c.IsTenValue():
		return 10
	default:
		return int(c.Rank)
	}
}

// Total returns the best value of cards and whether it is soft (an ace still
// counted as 11).
func Total(cards []deck.Card) (int, bool) {
	value, aces := 0, 0
	for _, c := range cards {
		value += CardValue(c)
		if c.IsAce() {
			aces++
		}
	}
	for value > 21 && aces > 0 {
		value -= 10
		aces--
	}
	return value, aces > 0
}

// Evaluate recomputes the value and flags of h from its cards.
func Evaluate(h *Hand, ctx EvalContext) {
	h.Value, h.Soft = Total(h.Cards)

	if !h.Pair && len(h.Cards) == 2 && h.Cards[0].Rank == h.Cards[1].Rank {
		h.Pair = true
	}

	h.Blackjack = false
	if len(h.Cards) == 2 && !h.Pair {
		aces, tens := 0, 0
		for _, c := range h.Cards {
			if c.IsAce() {
				aces++
			}
			if c.IsTenValue() {
				tens++
			}
		}
		single := !ctx.PlayerHand || ctx.HandCount == 1
		h.Blackjack = aces == 1 && tens == 1 && single
	}

	h.Busted = h.Value > 21
}

// Add appends cards to the hand and re-evaluates it.
func (h *Hand) Add(ctx EvalContext, cards ...deck.Card) {
	h.Cards = append(h.Cards, cards...)
	Evaluate(h, ctx)
}

// Done reports whether the hand can take no further action: it is locked,
// busted, or already worth 21.
func (h *Hand) Done() bool {
	return h.Locked || h.Busted || h.Value >= 21
}

// Settled reports whether the hand has been compared against the dealer.
func (h *Hand) Settled() bool {
	return h.Result != ResultNone
}

func (h *Hand) String() string {
	return strings.Join(deck.Codes(h.Cards), " ")
}

// Clone returns a deep copy of the hand.
func (h *Hand) Clone() *Hand {
	c := *h
	c.Cards = append([]deck.Card(nil), h.Cards...)
	return &c
}
