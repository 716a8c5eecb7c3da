package blackjack

import (
	"testing"

	"github.com/lox/blackjack/internal/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDealerPlay(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		shoe   string
		final  int
		draws  int
		busted bool
	}{
		{name: "stands on 17", start: "TS 7D", final: 17},
		{name: "stands on soft 17", start: "AS 6D", final: 17},
		{name: "draws to 18", start: "TS 2D", shoe: "3C 3H", final: 18, draws: 2},
		{name: "busts", start: "TS 6D", shoe: "9C", final: 25, draws: 1, busted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards := deck.MustParseCards(tt.start)
			d := NewDealer(cards[0], cards[1])
			assert.Equal(t, []deck.Card{cards[0]}, d.Visible())

			var steps []DealerStep
			err := d.Play(stackedShoe(tt.shoe), func(s DealerStep) { steps = append(steps, s) })
			require.NoError(t, err)

			require.Len(t, steps, tt.draws+1)
			assert.True(t, steps[0].Reveal)
			assert.Equal(t, cards[1], steps[0].Card)
			assert.Equal(t, tt.final, d.Hand.Value)
			assert.Equal(t, tt.busted, d.Hand.Busted)
			assert.Len(t, d.Visible(), 2+tt.draws)
		})
	}
}

func TestDealerBlackjack(t *testing.T) {
	cards := deck.MustParseCards("AS KD")
	d := NewDealer(cards[0], cards[1])
	assert.True(t, d.Blackjack())
	assert.True(t, d.UpCard().IsAce())
}
