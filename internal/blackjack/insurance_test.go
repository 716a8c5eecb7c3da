package blackjack

import (
	"errors"
	"testing"

	"github.com/lox/blackjack/internal/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanInsure(t *testing.T) {
	ace := deck.NewCard(deck.Ace, deck.Spades)
	ten := deck.NewCard(deck.Ten, deck.Spades)
	h := evaluated("9S 7D", single)

	assert.True(t, CanInsure(ace, nil, h, 500, 200))
	assert.True(t, CanInsure(ace, &Insurance{}, h, 100, 200))
	assert.False(t, CanInsure(ten, nil, h, 500, 200), "dealer shows ten")
	assert.False(t, CanInsure(ace, &Insurance{Wager: 100}, h, 500, 200), "already insured")
	assert.False(t, CanInsure(ace, nil, h, 99, 200), "cannot afford")
	assert.False(t, CanInsure(ace, nil, h, 500, 1), "zero wager")

	h.Add(single, deck.MustParseCards("2C")...)
	assert.False(t, CanInsure(ace, nil, h, 500, 200), "three cards")
}

func TestInsuranceResolve(t *testing.T) {
	ins := &Insurance{Wager: InsuranceCost(200)}
	require.Equal(t, 100, ins.Wager)

	paid, err := ins.Resolve(true)
	require.NoError(t, err)
	assert.Equal(t, 300, paid)
	assert.True(t, ins.Settled)

	paid, err = ins.Resolve(true)
	assert.True(t, errors.Is(err, ErrAlreadySettled))
	assert.Zero(t, paid)
	assert.True(t, ins.Settled)
	assert.Equal(t, 300, ins.Payout)
}

func TestInsuranceForfeit(t *testing.T) {
	ins := &Insurance{Wager: 50}
	paid, err := ins.Resolve(false)
	require.NoError(t, err)
	assert.Zero(t, paid)
	assert.True(t, ins.Settled)
}
