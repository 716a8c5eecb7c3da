package deck

import (
	"errors"
	"testing"

	"github.com/lox/blackjack/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShoeSize(t *testing.T) {
	s := NewShoe(6, randutil.New(1))
	assert.Equal(t, 6*DeckSize, s.Remaining())
	assert.Equal(t, 6*DeckSize, s.Size())

	counts := map[Card]int{}
	for _, c := range s.Cards() {
		counts[c]++
	}
	assert.Len(t, counts, DeckSize)
	for c, n := range counts {
		assert.Equal(t, 6, n, "card %s", c)
	}
}

func TestDrawWithoutReplacement(t *testing.T) {
	s := NewShoe(1, randutil.New(42))
	seen := map[Card]bool{}
	for s.Remaining() > 0 {
		cards, err := s.Draw(1)
		require.NoError(t, err)
		c := cards[0]
		assert.False(t, seen[c], "card %s drawn twice", c)
		seen[c] = true
	}
	assert.Len(t, seen, DeckSize)
}

func TestDrawEmptyLeavesShoeUnchanged(t *testing.T) {
	s := NewShoe(1, randutil.New(7))
	_, err := s.Draw(50)
	require.NoError(t, err)

	_, err = s.Draw(3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyDeck))
	assert.Equal(t, 2, s.Remaining())
}

func TestDrawDeterministicWithSeed(t *testing.T) {
	a := NewShoe(2, randutil.New(99))
	b := NewShoe(2, randutil.New(99))
	ca, err := a.Draw(10)
	require.NoError(t, err)
	cb, err := b.Draw(10)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)
}

func TestReshuffleExcluding(t *testing.T) {
	s := NewShoe(1, randutil.New(3))
	inPlay := MustParseCards("AS KD 8H")
	s.ReshuffleExcluding(inPlay)
	assert.Equal(t, DeckSize-3, s.Remaining())
	for _, c := range s.Cards() {
		assert.NotContains(t, inPlay, c)
	}

	s.Reshuffle()
	assert.Equal(t, DeckSize, s.Remaining())
}

func TestStack(t *testing.T) {
	s := NewShoe(1, randutil.New(5))
	s.Stack(MustParseCards("8S 8D AS")...)
	assert.Equal(t, DeckSize, s.Remaining())

	got, err := s.Draw(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"8S", "8D", "AS"}, Codes(got))
	assert.Equal(t, DeckSize-3, s.Remaining())
	for _, c := range s.Cards() {
		assert.NotContains(t, got, c)
	}
}
