package deck

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

const suitCodes = "SHDC"

// String returns the single-letter code of the suit
func (s Suit) String() string {
	if s < Spades || s > Clubs {
		return "?"
	}
	return string(suitCodes[s])
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const rankCodes = "23456789TJQKA"

// String returns the single-letter code of the rank
func (r Rank) String() string {
	if r < Two || r > Ace {
		return "?"
	}
	return string(rankCodes[r-Two])
}

// Card represents a playing card. Its wire form is a two-character code,
// rank then suit, e.g. "AS" or "TD".
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard creates a new card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the two-character code of the card
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// IsTenValue returns true for tens and face cards
func (c Card) IsTenValue() bool {
	return c.Rank >= Ten && c.Rank <= King
}

// MarshalText encodes the card as its two-character code
func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a two-character card code
func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard parses a two-character code such as "AS", "td" or "9h".
// "10" is accepted as an alias for "T".
func ParseCard(code string) (Card, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if strings.HasPrefix(code, "10") {
		code = "T" + code[2:]
	}
	if len(code) != 2 {
		return Card{}, fmt.Errorf("invalid card code %q", code)
	}
	r := strings.IndexByte(rankCodes, code[0])
	if r < 0 {
		return Card{}, fmt.Errorf("invalid rank in card code %q", code)
	}
	s := strings.IndexByte(suitCodes, code[1])
	if s < 0 {
		return Card{}, fmt.Errorf("invalid suit in card code %q", code)
	}
	return Card{Rank: Two + Rank(r), Suit: Suit(s)}, nil
}

// MustParseCards parses space separated card codes and panics on error.
// Intended for tests and fixtures.
func MustParseCards(codes string) []Card {
	fields := strings.Fields(codes)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			panic(err)
		}
		cards = append(cards, c)
	}
	return cards
}

// Codes returns the two-character codes for a slice of cards
func Codes(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}
