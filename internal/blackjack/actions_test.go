package blackjack

import (
	"testing"

	"github.com/lox/blackjack/internal/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegalActions(t *testing.T) {
	ace := deck.NewCard(deck.Ace, deck.Hearts)
	six := deck.NewCard(deck.Six, deck.Hearts)

	tests := []struct {
		name     string
		cards    string
		prepare  func(h *Hand)
		stack    int
		up       deck.Card
		ins      *Insurance
		expected []Action
	}{
		{name: "fresh hand", cards: "9S 7D", stack: 500, up: six, expected: []Action{Stand, Hit, Double}},
		{name: "cannot afford double", cards: "9S 7D", stack: 50, up: six, expected: []Action{Stand, Hit}},
		{name: "pair", cards: "8S 8D", stack: 500, up: six, expected: []Action{Stand, Hit, Double, SplitHand}},
		{name: "dealer ace", cards: "9S 7D", stack: 500, up: ace, expected: []Action{Stand, Hit, Double, Insure}},
		{name: "already insured", cards: "9S 7D", stack: 500, up: ace, ins: &Insurance{Wager: 50}, expected: []Action{Stand, Hit, Double}},
		{name: "after hit", cards: "5S 3D 2C", stack: 500, up: ace, expected: []Action{Stand, Hit}},
		{
			name:  "split ace only stands",
			cards: "AS 9D",
			prepare: func(h *Hand) {
				h.FromSplitAce = true
			},
			stack:    500,
			up:       six,
			expected: []Action{Stand},
		},
		{
			name:  "locked",
			cards: "9S 7D",
			prepare: func(h *Hand) {
				h.Locked = true
			},
			stack:    500,
			up:       six,
			expected: []Action{Stand},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := evaluated(tt.cards, single)
			if tt.prepare != nil {
				tt.prepare(h)
			}
			turn := Turn{Hand: h, HandCount: 1, Stack: tt.stack, Initial: 100, Insurance: tt.ins, DealerUp: tt.up}
			assert.Equal(t, tt.expected, LegalActions(turn))
		})
	}
}

func TestIsLegal(t *testing.T) {
	h := evaluated("9S 7D", single)
	turn := Turn{Hand: h, HandCount: 1, Stack: 500, Initial: 100, DealerUp: deck.NewCard(deck.Six, deck.Clubs)}
	assert.True(t, IsLegal(turn, Hit))
	assert.False(t, IsLegal(turn, SplitHand))
	assert.False(t, IsLegal(turn, Insure))
}

func TestParseAction(t *testing.T) {
	for in, want := range map[string]Action{
		"stand": Stand, "H": Hit, " double ": Double, "split": SplitHand, "insurance": Insure,
	} {
		got, err := ParseAction(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseAction("surrender")
	assert.ErrorIs(t, err, ErrIllegalAction)

	assert.True(t, Stand.Terminal())
	assert.True(t, Double.Terminal())
	assert.False(t, Hit.Terminal())
	assert.False(t, SplitHand.Terminal())
}
