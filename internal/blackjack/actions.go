package blackjack

import (
	"fmt"
	"strings"

	"github.com/lox/blackjack/internal/deck"
)

// Action is a player decision on a hand.
type Action string

const (
	Stand     Action = "stand"
	Hit       Action = "hit"
	Double    Action = "double"
	SplitHand Action = "split"
	Insure    Action = "insurance"
)

// Terminal reports whether the action always ends play on the hand.
func (a Action) Terminal() bool {
	return a == Stand || a == Double
}

func (a Action) String() string {
	return string(a)
}

// ParseAction converts user input into an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stand", "s":
		return Stand, nil
	case "hit", "h":
		return Hit, nil
	case "double", "d", "doubledown":
		return Double, nil
	case "split", "p":
		return SplitHand, nil
	case "insurance", "insure", "i":
		return Insure, nil
	}
	return "", fmt.Errorf("unknown action %q: %w", s, ErrIllegalAction)
}

// Turn is the state legality is computed from.
type Turn struct {
	Hand      *Hand
	HandCount int
	Stack     int
	Initial   int
	Insurance *Insurance
	DealerUp  deck.Card
}

// LegalActions returns the actions available on the turn, stand first.
func LegalActions(t Turn) []Action {
	actions := []Action{Stand}
	h := t.Hand
	if h == nil || h.Locked || h.Busted {
		return actions
	}

	if !h.FromSplitAce {
		actions = append(actions, Hit)
		if len(h.Cards) == 2 && !h.Doubled && t.Initial > 0 && t.Stack >= t.Initial {
			actions = append(actions, Double)
		}
	}
	if !h.FromSplitAce && CanSplit(h, t.HandCount, t.Stack, t.Initial) {
		actions = append(actions, SplitHand)
	}
	if CanInsure(t.DealerUp, t.Insurance, h, t.Stack, t.Initial) {
		actions = append(actions, Insure)
	}
	return actions
}

// IsLegal reports whether a is in the legal set for t.
func IsLegal(t Turn, a Action) bool {
	for _, legal := range LegalActions(t) {
		if legal == a {
			return true
		}
	}
	return false
}
