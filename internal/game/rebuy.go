package game

import (
	"context"
	"fmt"
	"time"

	"github.com/lox/blackjack/internal/ledger"
)

// StopReasonBankrupt is recorded when rebuys leave fewer than the minimum
// seats.
const StopReasonBankrupt = "allPlayersRanOutOfMoney"

// rebuyOffer is a pending chance for a bankrupt player to buy back in.
type rebuyOffer struct {
	deadline time.Time
}

func (t *Table) rebuyAllowed(p *Player) bool {
	switch t.cfg.RebuyMode {
	case RebuyOn:
		return true
	case RebuyOnce:
		return p.rebuysUsed == 0
	default:
		return false
	}
}

// resolveBankruptciesLocked runs after settlement. Players who cannot cover
// the minimum bet are either removed or offered a rebuy; while offers are
// pending the table pauses in the rebuy phase.
func (t *Table) resolveBankruptciesLocked() {
	t.bankrupted = false

	var offers []*Player
	for _, p := range append([]*Player(nil), t.seats...) {
		if p.leaving || p.wallet.Stack() >= t.cfg.MinBet {
			continue
		}
		if !t.rebuyAllowed(p) {
			t.bankrupted = true
			_ = t.removePlayerLocked(context.Background(), p, "bankrupt")
			continue
		}
		offers = append(offers, p)
	}

	if len(offers) == 0 {
		t.afterRebuysLocked()
		return
	}

	t.setPhase(PhaseRebuy)
	window := t.cfg.rebuyWindow()
	for _, p := range offers {
		t.offerRebuyLocked(p, window)
	}
}

func (t *Table) offerRebuyLocked(p *Player, window time.Duration) {
	offer := &rebuyOffer{deadline: t.clock.Now().Add(window)}
	p.rebuy = offer
	t.logger.Info("Rebuy offered", "player", p.id, "stack", p.wallet.Stack(), "window", window)
	t.emit(Event{Type: EventRebuyOffered, Player: p.id, Stack: p.wallet.Stack(), Deadline: offer.deadline, Amount: t.cfg.MinBuyIn})
	t.armRebuyTimerLocked(p.id, offer, window)
}

func (t *Table) armRebuyTimerLocked(playerID string, offer *rebuyOffer, d time.Duration) {
	t.timers.start(rebuyTimerKey(playerID), d, func() {
		if !t.acquire(playerID) {
			t.mu.Lock()
			if p := t.seatLocked(playerID); p != nil && p.rebuy == offer {
				t.armRebuyTimerLocked(playerID, offer, actionRetryDelay)
			}
			t.mu.Unlock()
			return
		}
		defer t.release(playerID)

		t.mu.Lock()
		defer t.mu.Unlock()
		p := t.seatLocked(playerID)
		if p == nil || p.rebuy != offer || t.phase != PhaseRebuy {
			return
		}
		t.expireRebuyLocked(p)
	})
}

func (t *Table) expireRebuyLocked(p *Player) {
	p.rebuy = nil
	t.bankrupted = true
	t.logger.Info("Rebuy expired", "player", p.id)
	t.emit(Event{Type: EventRebuyExpired, Player: p.id})
	_ = t.removePlayerLocked(context.Background(), p, "rebuy expired")

	if t.pendingRebuysLocked() == 0 {
		t.afterRebuysLocked()
	}
}

func (t *Table) pendingRebuysLocked() int {
	n := 0
	for _, p := range t.seats {
		if p.rebuy != nil {
			n++
		}
	}
	return n
}

// afterRebuysLocked continues once no offer is pending: stop if bankruptcy
// left too few seats, wait for players if others simply left, or carry on.
func (t *Table) afterRebuysLocked() {
	if t.activeSeatsLocked() < t.cfg.MinSeats && t.bankrupted {
		t.logger.Info("Too few solvent players, stopping", "seats", t.activeSeatsLocked(), "min", t.cfg.MinSeats)
		t.beginStopLocked(StopReasonBankrupt)
		go func() {
			if err := t.Stop(context.Background(), StopReasonBankrupt); err != nil {
				t.logger.Error("Stop failed", "error", err)
			}
		}()
		return
	}
	t.scheduleNextRoundLocked()
}

// Rebuy accepts a pending rebuy offer. The amount is normalised like an
// initial buy-in and committed to the player's stack. A failed commit leaves
// the offer open until it expires.
func (t *Table) Rebuy(ctx context.Context, playerID string, amount int) error {
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
	if p.rebuy == nil {
		return ErrNoPendingRebuy
	}
	if amount <= 0 {
		return fmt.Errorf("rebuy %d: %w", amount, ErrInvalidAmount)
	}

	if err := t.ledger.Refresh(ctx, p.wallet); err != nil {
		return err
	}
	normalized, err := ledger.NormalizeBuyIn(amount, t.cfg.MinBuyIn, t.cfg.MaxBuyIn, p.wallet.Bankroll())
	if err != nil {
		return err
	}
	if err := t.ledger.CommitRebuy(ctx, p.wallet, normalized); err != nil {
		return err
	}

	t.timers.stop(rebuyTimerKey(p.id))
	p.rebuy = nil
	p.rebuysUsed++
	p.resetRound()
	t.logger.Info("Rebuy completed", "player", p.id, "amount", normalized, "stack", p.wallet.Stack())
	t.emit(Event{Type: EventRebuyCompleted, Player: p.id, Amount: normalized, Stack: p.wallet.Stack()})

	if t.pendingRebuysLocked() == 0 {
		t.afterRebuysLocked()
	}
	return nil
}
