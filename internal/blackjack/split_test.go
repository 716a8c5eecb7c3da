package blackjack

import (
	"errors"
	"testing"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stackedShoe(codes string) *deck.Shoe {
	s := deck.NewShoe(1, randutil.New(1))
	s.Stack(deck.MustParseCards(codes)...)
	return s
}

func TestCanSplit(t *testing.T) {
	pair := evaluated("8S 8D", single)
	assert.True(t, CanSplit(pair, 1, 500, 100))
	assert.False(t, CanSplit(pair, MaxHands, 500, 100), "hand limit")
	assert.False(t, CanSplit(pair, 1, 99, 100), "cannot afford")

	notPair := evaluated("8S 9D", single)
	assert.False(t, CanSplit(notPair, 1, 500, 100))
	assert.False(t, CanSplit(evaluated("KS QD", single), 1, 500, 100), "ten values of different rank")
	assert.True(t, CanSplit(evaluated("KS KD", single), 1, 500, 100))

	hit := evaluated("8S 8D", single)
	hit.Add(single, deck.MustParseCards("2C")...)
	assert.False(t, CanSplit(hit, 1, 500, 100), "three cards")
}

func TestSplitEights(t *testing.T) {
	h := evaluated("8S 8D", single)
	src := stackedShoe("3C TH")

	second, err := Split(h, 100, 1, src)
	require.NoError(t, err)

	assert.Len(t, h.Cards, 2)
	assert.Len(t, second.Cards, 2)
	assert.Equal(t, "8S 3C", h.String())
	assert.Equal(t, "8D TH", second.String())
	assert.Equal(t, 11, h.Value)
	assert.Equal(t, 18, second.Value)
	assert.Equal(t, 100, second.Bet)
	assert.False(t, h.FromSplitAce)
}

func TestSplitAcesNeverBlackjack(t *testing.T) {
	h := evaluated("AS AD", single)
	src := stackedShoe("KC TH")

	second, err := Split(h, 100, 1, src)
	require.NoError(t, err)

	for _, hh := range []*Hand{h, second} {
		assert.Equal(t, 21, hh.Value)
		assert.False(t, hh.Blackjack)
		assert.True(t, hh.FromSplitAce)
	}

	legal := LegalActions(Turn{Hand: second, HandCount: 2, Stack: 1000, Initial: 100})
	assert.Equal(t, []Action{Stand}, legal)
}

func TestSplitDrawFailureLeavesHand(t *testing.T) {
	h := evaluated("8S 8D", single)
	src := deck.NewShoe(1, randutil.New(1))
	_, err := src.Draw(51)
	require.NoError(t, err)

	_, err = Split(h, 100, 1, src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, deck.ErrEmptyDeck))
	assert.Equal(t, "8S 8D", h.String())
	assert.True(t, h.Pair)
}

func TestResplit(t *testing.T) {
	h := evaluated("8S 8D", single)
	second, err := Split(h, 100, 1, stackedShoe("8C 2H"))
	require.NoError(t, err)
	assert.True(t, h.Pair, "new pair may be split again")
	assert.False(t, second.Pair)
	assert.True(t, CanSplit(h, 2, 500, 100))
}
