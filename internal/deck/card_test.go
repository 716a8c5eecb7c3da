package deck

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Card
		wantErr  bool
	}{
		{name: "ace of spades", input: "AS", expected: Card{Rank: Ace, Suit: Spades}},
		{name: "ten as T", input: "TD", expected: Card{Rank: Ten, Suit: Diamonds}},
		{name: "ten as 10", input: "10h", expected: Card{Rank: Ten, Suit: Hearts}},
		{name: "lower case", input: "kc", expected: Card{Rank: King, Suit: Clubs}},
		{name: "two", input: "2H", expected: Card{Rank: Two, Suit: Hearts}},
		{name: "invalid rank", input: "XS", wantErr: true},
		{name: "invalid suit", input: "AX", wantErr: true},
		{name: "too long", input: "ASD", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCard(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCardCodes(t *testing.T) {
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			c := NewCard(rank, suit)
			code := c.String()
			require.Len(t, code, 2)
			parsed, err := ParseCard(code)
			require.NoError(t, err)
			assert.Equal(t, c, parsed)
		}
	}
}

func TestCardJSON(t *testing.T) {
	cards := MustParseCards("AS TD 8H")
	data, err := json.Marshal(cards)
	require.NoError(t, err)
	assert.JSONEq(t, `["AS","TD","8H"]`, string(data))

	var decoded []Card
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, cards, decoded)
}

func TestTenValue(t *testing.T) {
	assert.True(t, NewCard(Ten, Spades).IsTenValue())
	assert.True(t, NewCard(King, Hearts).IsTenValue())
	assert.False(t, NewCard(Ace, Hearts).IsTenValue())
	assert.False(t, NewCard(Nine, Hearts).IsTenValue())
}
