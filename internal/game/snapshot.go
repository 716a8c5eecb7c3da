package game

import (
	"time"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/odds"
)

// PlayerState is a read-only copy of a seat.
type PlayerState struct {
	ID            string               `json:"id"`
	Stack         int                  `json:"stack"`
	Bankroll      int                  `json:"bankroll"`
	RebuysUsed    int                  `json:"rebuys_used"`
	Bets          Bets                 `json:"bets"`
	Insurance     *blackjack.Insurance `json:"insurance,omitempty"`
	Hands         []*blackjack.Hand    `json:"hands,omitempty"`
	CurrentHand   int                  `json:"current_hand"`
	IsCurrentTurn bool                 `json:"is_current_turn"`
	InRound       bool                 `json:"in_round"`
	SittingOut    bool                 `json:"sitting_out"`
	PendingRebuy  bool                 `json:"pending_rebuy"`
	RebuyDeadline time.Time            `json:"rebuy_deadline,omitzero"`
	Won           int                  `json:"won"`
	Lost          int                  `json:"lost"`
	Odds          []odds.HandOdds      `json:"odds,omitempty"`
	Actions       []blackjack.Action   `json:"actions,omitempty"`
}

// TableState is a read-only copy of the table.
type TableState struct {
	ID             string        `json:"id"`
	Phase          Phase         `json:"phase"`
	Round          int           `json:"round"`
	Players        []PlayerState `json:"players"`
	Dealer         []deck.Card   `json:"dealer,omitempty"`
	DealerValue    int           `json:"dealer_value,omitempty"`
	DealerRevealed bool          `json:"dealer_revealed"`
	ShoeRemaining  int           `json:"shoe_remaining"`
	MinBet         int           `json:"min_bet"`
	MaxBet         int           `json:"max_bet"`
	StopReason     string        `json:"stop_reason,omitempty"`
}

// State returns a snapshot of the table.
func (t *Table) State() TableState {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := TableState{
		ID:            t.id,
		Phase:         t.phase,
		Round:         t.round,
		ShoeRemaining: t.shoe.Remaining(),
		MinBet:        t.cfg.MinBet,
		MaxBet:        t.cfg.MaxBet,
		StopReason:    t.stopReason,
	}
	if t.dealer != nil {
		s.Dealer = t.dealer.Visible()
		s.DealerRevealed = t.dealer.Revealed
		if t.dealer.Revealed {
			s.DealerValue = t.dealer.Hand.Value
		} else {
			s.DealerValue = blackjack.CardValue(t.dealer.UpCard())
		}
	}
	for _, p := range t.seats {
		s.Players = append(s.Players, t.playerStateLocked(p))
	}
	return s
}

// Player returns the state of one seat.
func (t *Table) Player(playerID string) (PlayerState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.seatLocked(playerID)
	if p == nil {
		return PlayerState{}, false
	}
	return t.playerStateLocked(p), true
}

func (t *Table) playerStateLocked(p *Player) PlayerState {
	ps := PlayerState{
		ID:            p.id,
		Stack:         p.wallet.Stack(),
		Bankroll:      p.wallet.Bankroll(),
		RebuysUsed:    p.rebuysUsed,
		Bets:          p.bets,
		CurrentHand:   p.currentHand,
		IsCurrentTurn: p.isCurrentTurn,
		InRound:       p.inRound,
		SittingOut:    p.sittingOut,
		PendingRebuy:  p.rebuy != nil,
		Won:           p.won,
		Lost:          p.lost,
	}
	if p.insurance != nil {
		ins := *p.insurance
		ps.Insurance = &ins
	}
	if p.rebuy != nil {
		ps.RebuyDeadline = p.rebuy.deadline
	}
	for _, h := range p.hands {
		ps.Hands = append(ps.Hands, h.Clone())
	}
	if p.isCurrentTurn && t.dealer != nil {
		ps.Actions = blackjack.LegalActions(p.turnState(t.dealer.UpCard()))
	}
	if t.estimate != nil {
		ps.Odds = t.estimate.Players[p.id]
	}
	return ps
}

// publishLocked hands the current state to the odds feed.
func (t *Table) publishLocked() {
	t.version++
	if t.feed == nil || t.dealer == nil {
		return
	}

	snap := odds.Snapshot{
		Table:          t.id,
		Version:        t.version,
		Round:          t.round,
		Stage:          string(t.phase),
		Unseen:         t.shoe.Cards(),
		Dealer:         t.dealer.Visible(),
		DealerRevealed: t.dealer.Revealed,
	}
	if !t.dealer.Revealed {
		snap.Unseen = append(snap.Unseen, t.dealer.Hand.Cards[1])
	}
	for _, p := range t.order {
		ps := odds.PlayerState{ID: p.id, Total: p.bets.Total}
		for _, h := range p.hands {
			ps.Hands = append(ps.Hands, odds.HandState{
				Cards:     append([]deck.Card(nil), h.Cards...),
				Bet:       h.Bet,
				Value:     h.Value,
				Blackjack: h.Blackjack,
				Busted:    h.Busted,
				Locked:    h.Locked,
			})
		}
		snap.Players = append(snap.Players, ps)
	}
	t.feed.Publish(snap)
}

// attachEstimate records an estimate if it still describes the current
// state. Stale estimates are dropped.
func (t *Table) attachEstimate(est odds.Estimate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if est.Version != t.version || t.phase.Closed() {
		return
	}
	t.estimate = &est
	t.emit(Event{Type: EventOddsUpdated, Odds: &est})
}
