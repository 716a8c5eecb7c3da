package blackjack

import (
	"fmt"

	"github.com/lox/blackjack/internal/deck"
)

// DealerStand is the value at or above which the dealer stands.
const DealerStand = 17

// DealerStep describes one visible step of the dealer's play.
type DealerStep struct {
	Reveal bool
	Card   deck.Card
	Value  int
}

// Dealer holds the dealer hand. The second card stays hidden until Play.
type Dealer struct {
	Hand     *Hand
	Revealed bool
}

// NewDealer creates a dealer holding two cards.
func NewDealer(first, hole deck.Card) *Dealer {
	h := NewHand(0, first, hole)
	Evaluate(h, DealerContext)
	return &Dealer{Hand: h}
}

// UpCard returns the visible dealer card.
func (d *Dealer) UpCard() deck.Card {
	return d.Hand.Cards[0]
}

// Visible returns the cards a player may see.
func (d *Dealer) Visible() []deck.Card {
	if d.Revealed {
		return append([]deck.Card(nil), d.Hand.Cards...)
	}
	return []deck.Card{d.Hand.Cards[0]}
}

// Blackjack reports whether the dealer holds a natural.
func (d *Dealer) Blackjack() bool {
	return d.Hand.Blackjack
}

// Play reveals the hole card and draws while the hand is under 17, reporting
// every step to observe. The dealer never doubles, splits or insures.
func (d *Dealer) Play(src Drawer, observe func(DealerStep)) error {
	if observe == nil {
		observe = func(DealerStep) {}
	}
	if !d.Revealed {
		d.Revealed = true
		observe(DealerStep{Reveal: true, Card: d.Hand.Cards[1], Value: d.Hand.Value})
	}

	for d.Hand.Value < DealerStand {
		cards, err := src.Draw(1)
		if err != nil {
			return fmt.Errorf("dealer draw: %w", err)
		}
		d.Hand.Add(DealerContext, cards[0])
		observe(DealerStep{Card: cards[0], Value: d.Hand.Value})
	}
	d.Hand.Locked = true
	return nil
}
