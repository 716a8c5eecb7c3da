package game

import (
	"fmt"
	"time"
)

// bettingPhase tracks the wagering window of the current round.
type bettingPhase struct {
	open     bool
	deadline time.Time
	placed   map[string]bool
}

func (b *bettingPhase) start(deadline time.Time) {
	b.open = true
	b.deadline = deadline
	b.placed = make(map[string]bool)
}

func (b *bettingPhase) close() {
	b.open = false
}

// eligible reports whether p takes part in this round's betting.
func (b *bettingPhase) eligible(p *Player) bool {
	return !p.sittingOut && !p.leaving && p.rebuy == nil
}

// complete reports whether every eligible player has bet. An empty table is
// complete so the round can be abandoned.
func (b *bettingPhase) complete(t *Table) bool {
	if !b.open {
		return false
	}
	for _, p := range t.seats {
		if b.eligible(p) && !b.placed[p.id] {
			return false
		}
	}
	return true
}

func (t *Table) validateBet(p *Player, amount int) error {
	switch {
	case amount <= 0:
		return fmt.Errorf("bet %d: %w", amount, ErrInvalidAmount)
	case amount < t.cfg.MinBet:
		return fmt.Errorf("bet %d below %d: %w", amount, t.cfg.MinBet, ErrBelowMinimum)
	case amount > t.cfg.MaxBet:
		return fmt.Errorf("bet %d above %d: %w", amount, t.cfg.MaxBet, ErrAboveMaximum)
	case !p.wallet.CanAfford(amount):
		return fmt.Errorf("bet %d with stack %d: %w", amount, p.wallet.Stack(), ErrInsufficientFunds)
	}
	return nil
}

// PlaceBet records an opening wager for the current round. Betting closes as
// soon as every eligible player has bet.
func (t *Table) PlaceBet(playerID string, amount int) error {
	if !t.acquire(playerID) {
		return ErrActionInProgress
	}
	defer t.release(playerID)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase.Closed() {
		return ErrTableStopping
	}
	p := t.seatLocked(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if t.phase != PhaseBetting || !t.betting.open {
		return ErrBettingClosed
	}
	if !t.betting.eligible(p) {
		return fmt.Errorf("%s is sitting out this round: %w", playerID, ErrBettingClosed)
	}
	if t.betting.placed[playerID] {
		return ErrAlreadyBet
	}
	if err := t.validateBet(p, amount); err != nil {
		return err
	}

	if err := p.withdraw(amount); err != nil {
		return err
	}
	p.bets.Initial = amount
	t.betting.placed[playerID] = true

	t.logger.Debug("Bet placed", "player", playerID, "amount", amount, "stack", p.wallet.Stack())
	t.emit(Event{Type: EventBetPlaced, Player: playerID, Amount: amount, Stack: p.wallet.Stack()})

	if t.betting.complete(t) {
		t.closeBettingLocked("all bets placed")
	}
	return nil
}

// closeBettingLocked ends the wagering window. Players without a bet sit out
// this round; if nobody bet the round is abandoned.
func (t *Table) closeBettingLocked(reason string) {
	t.betting.close()
	t.timers.stop(timerBetting)

	var order []*Player
	for _, p := range t.seats {
		if t.betting.placed[p.id] && p.bets.Initial > 0 {
			p.inRound = true
			order = append(order, p)
			continue
		}
		p.inRound = false
		if t.betting.eligible(p) {
			t.emit(Event{Type: EventPlayerSatOut, Player: p.id, Reason: "no bet"})
		}
	}
	t.emit(Event{Type: EventBettingClosed, Reason: reason, Amount: len(order)})

	if len(order) == 0 {
		t.logger.Info("No bets placed, round abandoned", "round", t.round)
		t.emit(Event{Type: EventRoundAbandoned, Reason: "no bets"})
		t.scheduleNextRoundLocked()
		return
	}

	t.order = order
	t.turn = 0
	t.dealLocked()
}
