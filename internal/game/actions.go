package game

import (
	"fmt"
	"time"

	"github.com/lox/blackjack/internal/blackjack"
)

// Act applies a player decision to their active hand. A second call for the
// same player while one is being processed fails with ErrActionInProgress.
func (t *Table) Act(playerID string, action blackjack.Action) error {
	if !t.acquire(playerID) {
		return ErrActionInProgress
	}
	defer t.release(playerID)

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.actLocked(playerID, action)
}

// armActionTimerLocked stands the player's hand when the action window
// closes. If the player's own action is in flight at that moment the timeout
// yields to it and checks again shortly.
func (t *Table) armActionTimerLocked(playerID string, d time.Duration) {
	gen := t.gen
	t.timers.start(timerAction, d, func() {
		if !t.acquire(playerID) {
			t.mu.Lock()
			if t.gen == gen {
				t.armActionTimerLocked(playerID, actionRetryDelay)
			}
			t.mu.Unlock()
			return
		}
		defer t.release(playerID)

		t.mu.Lock()
		defer t.mu.Unlock()
		if t.gen != gen || t.phase != PhasePlaying {
			return
		}
		t.logger.Info("Action timed out, standing", "player", playerID, "round", t.round)
		t.emit(Event{Type: EventActionTimeout, Player: playerID, Action: blackjack.Stand})
		if err := t.actLocked(playerID, blackjack.Stand); err != nil {
			t.logger.Warn("Timeout stand failed", "player", playerID, "error", err)
		}
	})
}

func (t *Table) actLocked(playerID string, action blackjack.Action) error {
	if t.phase.Closed() {
		return ErrTableStopping
	}
	p := t.currentPlayerLocked()
	if p == nil || p.id != playerID {
		if t.seatLocked(playerID) == nil {
			return ErrPlayerNotFound
		}
		return ErrNotYourTurn
	}

	h := p.activeHand()
	turn := p.turnState(t.dealer.UpCard())
	if !blackjack.IsLegal(turn, action) {
		return fmt.Errorf("%s on %s: %w", action, h, ErrIllegalAction)
	}

	var err error
	switch action {
	case blackjack.Stand:
		h.Locked = true
		t.emitAction(p, action)
	case blackjack.Hit:
		err = t.hitLocked(p, h)
	case blackjack.Double:
		err = t.doubleLocked(p, h)
	case blackjack.SplitHand:
		err = t.splitLocked(p, h)
	case blackjack.Insure:
		err = t.insureLocked(p)
	}
	if err != nil {
		return err
	}

	if h.Done() {
		h.Locked = true
		p.currentHand++
	}
	t.enterTurnLocked()
	return nil
}

func (t *Table) emitAction(p *Player, action blackjack.Action) {
	h := p.activeHand()
	t.emit(Event{
		Type:   EventActionTaken,
		Player: p.id,
		Hand:   p.currentHand,
		Action: action,
		Cards:  h.Cards,
		Value:  h.Value,
		Amount: p.bets.Total,
		Stack:  p.wallet.Stack(),
	})
}

func (t *Table) hitLocked(p *Player, h *blackjack.Hand) error {
	cards, err := t.drawLocked(1)
	if err != nil {
		return err
	}
	h.Add(p.evalContext(), cards...)
	t.emitAction(p, blackjack.Hit)
	if h.Busted {
		h.Locked = true
		t.emit(Event{Type: EventHandBusted, Player: p.id, Hand: p.currentHand, Value: h.Value})
	}
	return nil
}

func (t *Table) doubleLocked(p *Player, h *blackjack.Hand) error {
	wager := p.bets.Initial
	if err := p.withdraw(wager); err != nil {
		return err
	}
	cards, err := t.drawLocked(1)
	if err != nil {
		p.wallet.Deposit(wager)
		p.bets.Total -= wager
		return err
	}
	h.Bet += wager
	h.Doubled = true
	h.Add(p.evalContext(), cards...)
	h.Locked = true
	t.emitAction(p, blackjack.Double)
	if h.Busted {
		t.emit(Event{Type: EventHandBusted, Player: p.id, Hand: p.currentHand, Value: h.Value})
	}
	return nil
}

func (t *Table) splitLocked(p *Player, h *blackjack.Hand) error {
	wager := p.bets.Initial
	if err := p.withdraw(wager); err != nil {
		return err
	}
	second, err := blackjack.Split(h, wager, len(p.hands), shoeDrawer{t})
	if err != nil {
		p.wallet.Deposit(wager)
		p.bets.Total -= wager
		return err
	}

	idx := p.currentHand
	p.hands = append(p.hands, nil)
	copy(p.hands[idx+2:], p.hands[idx+1:])
	p.hands[idx+1] = second

	// split aces receive exactly one card each
	if h.FromSplitAce {
		h.Locked = true
		second.Locked = true
	}

	t.emitAction(p, blackjack.SplitHand)
	t.emit(Event{Type: EventHandSplit, Player: p.id, Hand: idx, Cards: h.Cards, Value: h.Value})
	t.emit(Event{Type: EventCardDealt, Player: p.id, Hand: idx + 1, Cards: second.Cards, Value: second.Value})
	return nil
}

func (t *Table) insureLocked(p *Player) error {
	cost := blackjack.InsuranceCost(p.bets.Initial)
	if err := p.withdraw(cost); err != nil {
		return err
	}
	p.insurance = &blackjack.Insurance{Wager: cost}
	p.bets.Insurance = cost
	t.emit(Event{Type: EventInsuranceBought, Player: p.id, Amount: cost, Stack: p.wallet.Stack()})
	return nil
}
