// Package odds estimates win, push and lose probabilities for the hands on a
// blackjack table. Estimates are advisory and never gate play.
package odds

import (
	"context"

	"github.com/lox/blackjack/internal/deck"
)

// HandState is the estimator's view of one player hand.
type HandState struct {
	Cards     []deck.Card `json:"cards"`
	Bet       int         `json:"bet"`
	Value     int         `json:"value"`
	Blackjack bool        `json:"blackjack"`
	Busted    bool        `json:"busted"`
	Locked    bool        `json:"locked"`
}

// PlayerState groups the hands of one player.
type PlayerState struct {
	ID    string      `json:"id"`
	Hands []HandState `json:"hands"`
	Total int         `json:"total"`
}

// Snapshot is the table state an estimate is computed from. Unseen holds
// every card not visible to the players: the shoe plus a hidden hole card.
type Snapshot struct {
	Table          string        `json:"table"`
	Version        uint64        `json:"version"`
	Round          int           `json:"round"`
	Stage          string        `json:"stage"`
	Unseen         []deck.Card   `json:"-"`
	Dealer         []deck.Card   `json:"dealer"`
	DealerRevealed bool          `json:"dealer_revealed"`
	Players        []PlayerState `json:"players"`
}

// HandOdds are outcome probabilities for a hand if the player stands now.
type HandOdds struct {
	Win  float64 `json:"win"`
	Push float64 `json:"push"`
	Lose float64 `json:"lose"`
}

// Estimate is the result for one snapshot.
type Estimate struct {
	Table   string                `json:"table"`
	Version uint64                `json:"version"`
	Players map[string][]HandOdds `json:"players"`
}

// Estimator computes an Estimate for a Snapshot.
type Estimator interface {
	Estimate(ctx context.Context, snap Snapshot) (Estimate, error)
}

// EstimatorFunc adapts a function to Estimator.
type EstimatorFunc func(ctx context.Context, snap Snapshot) (Estimate, error)

func (f EstimatorFunc) Estimate(ctx context.Context, snap Snapshot) (Estimate, error) {
	return f(ctx, snap)
}
