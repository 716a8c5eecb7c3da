package game

import (
	"context"
	"errors"
	"fmt"
)

// StopReasonShutdown is used when a table is stopped from outside.
const StopReasonShutdown = "shutdown"

// Stop shuts the table down: timers are cancelled, pending rebuy offers
// expire, in-flight joins are drained and every stack is refunded to its
// bankroll. If a refund cannot be persisted the affected players stay seated,
// the table stays in the stopping phase and the error wraps ErrPersistence;
// calling Stop again retries.
func (t *Table) Stop(ctx context.Context, reason string) error {
	t.stopMu.Lock()
	defer t.stopMu.Unlock()

	t.mu.Lock()
	if t.phase == PhaseStopped {
		t.mu.Unlock()
		return nil
	}
	if t.phase != PhaseStopping {
		t.beginStopLocked(reason)
	}
	t.mu.Unlock()

	// joins that were admitted before stopping refund themselves
	t.pending.Wait()

	t.mu.Lock()
	var errs []error
	for _, p := range append([]*Player(nil), t.seats...) {
		if err := t.removePlayerLocked(ctx, p, "table stopped"); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		t.mu.Unlock()
		return fmt.Errorf("stop table %s: %w", t.id, errors.Join(errs...))
	}

	t.phase = PhaseStopped
	t.gen++
	t.logger.Info("Table stopped", "reason", t.stopReason, "rounds", t.round, "house", t.house)
	t.emit(Event{Type: EventTableStopped, Reason: t.stopReason})
	callbacks := append([]func(*Table)(nil), t.onStopped...)
	t.mu.Unlock()

	if t.stopFeed != nil {
		t.stopFeed()
	}
	close(t.done)
	for _, fn := range callbacks {
		fn(t)
	}
	return nil
}

// beginStopLocked moves the table into stopping. Wagers of an unfinished
// round are returned to stacks and pending rebuy offers expire.
func (t *Table) beginStopLocked(reason string) {
	if reason == "" {
		reason = StopReasonShutdown
	}
	t.stopReason = reason
	t.betting.close()

	for _, p := range t.seats {
		unsettled := p.inRound || (t.phase == PhaseBetting && p.bets.Total > 0)
		if unsettled {
			if refunded := p.voidRound(); refunded > 0 {
				t.emit(Event{Type: EventBetRefunded, Player: p.id, Amount: refunded, Stack: p.wallet.Stack()})
			}
		}
		if p.rebuy != nil {
			p.rebuy = nil
			t.emit(Event{Type: EventRebuyExpired, Player: p.id, Reason: "table stopping"})
		}
	}
	t.order = nil
	t.turn = 0

	t.setPhase(PhaseStopping)
	t.logger.Info("Table stopping", "reason", reason)
	t.emit(Event{Type: EventTableStopping, Reason: reason})
}
