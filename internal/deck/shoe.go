package deck

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
)

// ErrEmptyDeck is returned when a draw asks for more cards than remain.
var ErrEmptyDeck = errors.New("not enough cards in shoe")

// DeckSize is the number of cards in a single standard deck.
const DeckSize = 52

// Shoe is a multi-deck pool of cards. Draws sample uniformly at random
// without replacement. A Shoe is not safe for concurrent use; the table
// owning it serialises access.
type Shoe struct {
	decks int
	cards []Card
	// queued cards are drawn in order before any random sampling
	queued []Card
	rng    *rand.Rand
}

// NewShoe creates a shuffled shoe holding decks × 52 cards.
func NewShoe(decks int, rng *rand.Rand) *Shoe {
	if decks < 1 {
		decks = 1
	}
	s := &Shoe{
		decks: decks,
		cards: make([]Card, 0, decks*DeckSize),
		rng:   rng,
	}
	s.Reshuffle()
	return s
}

// Decks returns the number of decks the shoe is built from.
func (s *Shoe) Decks() int {
	return s.decks
}

// Size returns the card count of a full shoe.
func (s *Shoe) Size() int {
	return s.decks * DeckSize
}

// Remaining returns the number of cards left in the shoe.
func (s *Shoe) Remaining() int {
	return len(s.cards) + len(s.queued)
}

// Draw removes and returns n cards. If fewer than n remain the shoe is left
// untouched and ErrEmptyDeck is returned.
func (s *Shoe) Draw(n int) ([]Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid draw count %d", n)
	}
	if n > s.Remaining() {
		return nil, fmt.Errorf("draw %d with %d remaining: %w", n, s.Remaining(), ErrEmptyDeck)
	}

	out := make([]Card, 0, n)
	for len(out) < n && len(s.queued) > 0 {
		out = append(out, s.queued[0])
		s.queued = s.queued[1:]
	}
	for len(out) < n {
		i := s.rng.IntN(len(s.cards))
		out = append(out, s.cards[i])
		last := len(s.cards) - 1
		s.cards[i] = s.cards[last]
		s.cards = s.cards[:last]
	}
	return out, nil
}

// Reshuffle refills the shoe with decks × 52 cards in random order.
func (s *Shoe) Reshuffle() {
	s.ReshuffleExcluding(nil)
}

// ReshuffleExcluding refills the shoe but leaves out one copy of each card in
// inPlay, so cards still on the table are not duplicated.
func (s *Shoe) ReshuffleExcluding(inPlay []Card) {
	excluded := make(map[Card]int, len(inPlay))
	for _, c := range inPlay {
		excluded[c]++
	}

	s.cards = s.cards[:0]
	s.queued = nil
	for d := 0; d < s.decks; d++ {
		for suit := Spades; suit <= Clubs; suit++ {
			for rank := Two; rank <= Ace; rank++ {
				c := NewCard(rank, suit)
				if excluded[c] > 0 {
					excluded[c]--
					continue
				}
				s.cards = append(s.cards, c)
			}
		}
	}
	s.rng.Shuffle(len(s.cards), func(i, j int) {
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	})
}

// Stack arranges for the given cards to be the next ones drawn, in order.
// Each stacked card is taken out of the random pool when present so the shoe
// composition is preserved. Used for replays and deterministic tests.
func (s *Shoe) Stack(cards ...Card) {
	for _, c := range cards {
		for i := range s.cards {
			if s.cards[i] == c {
				last := len(s.cards) - 1
				s.cards[i] = s.cards[last]
				s.cards = s.cards[:last]
				break
			}
		}
		s.queued = append(s.queued, c)
	}
}

// Cards returns a copy of the cards remaining in the shoe.
func (s *Shoe) Cards() []Card {
	out := make([]Card, 0, s.Remaining())
	out = append(out, s.queued...)
	out = append(out, s.cards...)
	return out
}
