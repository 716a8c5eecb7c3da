package game

import (
	"context"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/deck"
)

// maybeScheduleRoundLocked arms the next round once enough players are
// seated. Callers are in the waiting phase.
func (t *Table) maybeScheduleRoundLocked() {
	if t.activeSeatsLocked() < t.cfg.MinSeats || t.timers.has(timerRound) {
		return
	}
	if t.cfg.RoundDelay <= 0 {
		t.startRoundLocked()
		return
	}
	t.afterFunc(timerRound, t.cfg.RoundDelay, t.startRoundLocked)
}

// scheduleNextRoundLocked returns to waiting and queues the next round.
func (t *Table) scheduleNextRoundLocked() {
	t.order = nil
	t.turn = 0
	t.setPhase(PhaseWaiting)
	t.maybeScheduleRoundLocked()
}

func (t *Table) startRoundLocked() {
	if t.phase != PhaseWaiting {
		return
	}
	for _, p := range append([]*Player(nil), t.seats...) {
		if p.leaving {
			_ = t.removePlayerLocked(context.Background(), p, "left")
		}
	}
	if t.activeSeatsLocked() < t.cfg.MinSeats {
		return
	}

	t.round++
	t.dealer = nil
	t.order = nil
	t.turn = 0
	t.estimate = nil
	for _, p := range t.seats {
		p.resetRound()
		if !p.leaving {
			p.sittingOut = false
		}
	}

	if t.shoe.Remaining() < t.cfg.ReshuffleThreshold {
		t.shoe.Reshuffle()
		t.logger.Info("Shoe reshuffled", "round", t.round, "decks", t.shoe.Decks(), "cards", t.shoe.Size())
		t.emit(Event{Type: EventShoeReshuffled, Reason: "threshold", Amount: t.shoe.Remaining()})
	}

	t.setPhase(PhaseBetting)
	t.logger.Info("Round started", "round", t.round, "players", len(t.seats))
	t.emit(Event{Type: EventRoundStarted, Amount: len(t.seats)})

	window := t.cfg.bettingWindow()
	deadline := t.clock.Now().Add(window)
	t.betting.start(deadline)
	t.emit(Event{Type: EventBettingOpened, Amount: t.cfg.MinBet, Deadline: deadline})
	t.afterFunc(timerBetting, window, func() {
		t.closeBettingLocked("timeout")
	})
}

// dealLocked deals two cards to every bettor and the dealer, one at a time
// in seating order with the dealer last.
func (t *Table) dealLocked() {
	t.setPhase(PhasePlaying)

	cards, err := t.drawLocked(2*len(t.order) + 2)
	if err != nil {
		t.abortRoundLocked(err)
		return
	}

	for _, p := range t.order {
		p.hands = []*blackjack.Hand{blackjack.NewHand(p.bets.Initial)}
		p.currentHand = 0
	}
	next := 0
	var dealerCards [2]deck.Card
	for pass := 0; pass < 2; pass++ {
		for _, p := range t.order {
			p.hands[0].Cards = append(p.hands[0].Cards, cards[next])
			next++
		}
		dealerCards[pass] = cards[next]
		next++
	}
	t.dealer = blackjack.NewDealer(dealerCards[0], dealerCards[1])

	for _, p := range t.order {
		h := p.hands[0]
		blackjack.Evaluate(h, p.evalContext())
		t.emit(Event{Type: EventCardDealt, Player: p.id, Hand: 0, Cards: h.Cards, Value: h.Value})
	}
	up := t.dealer.UpCard()
	t.emit(Event{Type: EventDealerUpCard, Cards: []deck.Card{up}, Value: blackjack.CardValue(up)})
	if up.IsAce() {
		t.emit(Event{Type: EventInsuranceOffered})
	}

	t.turn = 0
	t.enterTurnLocked()
}

// enterTurnLocked finds the next hand needing a decision, auto-standing
// hands that are locked, busted or at 21. With no hands left the dealer
// plays.
func (t *Table) enterTurnLocked() {
	for t.turn < len(t.order) {
		p := t.order[t.turn]
		for p.currentHand < len(p.hands) {
			h := p.hands[p.currentHand]
			if h.Done() {
				if !h.Locked {
					h.Locked = true
					t.emit(Event{Type: EventAutoStand, Player: p.id, Hand: p.currentHand, Value: h.Value})
				}
				p.currentHand++
				continue
			}

			p.isCurrentTurn = true
			t.gen++
			window := t.cfg.actionWindow()
			deadline := t.clock.Now().Add(window)
			t.emit(Event{
				Type:     EventTurnStarted,
				Player:   p.id,
				Hand:     p.currentHand,
				Cards:    h.Cards,
				Value:    h.Value,
				Actions:  blackjack.LegalActions(p.turnState(t.dealer.UpCard())),
				Deadline: deadline,
			})
			t.armActionTimerLocked(p.id, window)
			t.publishLocked()
			return
		}
		p.isCurrentTurn = false
		t.turn++
	}
	t.playDealerLocked()
}

func (t *Table) currentPlayerLocked() *Player {
	if t.phase != PhasePlaying || t.turn >= len(t.order) {
		return nil
	}
	return t.order[t.turn]
}

func (t *Table) playDealerLocked() {
	t.setPhase(PhaseDealer)

	err := t.dealer.Play(shoeDrawer{t}, func(step blackjack.DealerStep) {
		if step.Reveal {
			t.emit(Event{Type: EventDealerRevealed, Cards: t.dealer.Hand.Cards[:2], Value: step.Value})
			return
		}
		t.emit(Event{Type: EventDealerDrew, Cards: []deck.Card{step.Card}, Value: step.Value})
	})
	if err != nil {
		t.abortRoundLocked(err)
		return
	}
	if t.dealer.Hand.Busted {
		t.emit(Event{Type: EventDealerBusted, Value: t.dealer.Hand.Value})
	}
	t.publishLocked()
	t.settleLocked()
}

// settleLocked pays insurance and every hand, then resolves bankrupt
// players.
func (t *Table) settleLocked() {
	t.setPhase(PhaseSettling)

	dealerBlackjack := t.dealer.Blackjack()
	results := make([]PlayerResult, 0, len(t.order))
	for _, p := range t.order {
		returned, gross := 0, 0

		if p.insurance != nil && p.insurance.Wager > 0 {
			paid, err := p.insurance.Resolve(dealerBlackjack)
			if err == nil {
				returned += paid
				if paid > p.insurance.Wager {
					gross += paid - p.insurance.Wager
				}
				t.emit(Event{Type: EventInsuranceSettled, Player: p.id, Amount: paid})
			}
		}

		for i, h := range p.hands {
			credit, err := blackjack.Settle(h, t.dealer.Hand)
			if err != nil {
				continue
			}
			returned += credit
			if h.Payout > 0 {
				gross += h.Payout
			}
			t.emit(Event{Type: EventHandSettled, Player: p.id, Hand: i, Result: h.Result, Amount: h.Payout, Value: h.Value})
		}

		p.wallet.Deposit(returned)
		net := returned - p.bets.Total
		t.house -= net
		if net >= 0 {
			p.won = net
		} else {
			p.lost = -net
		}
		p.inRound = false
		p.isCurrentTurn = false

		results = append(results, PlayerResult{
			Player:   p.id,
			Wagered:  p.bets.Total,
			Returned: returned,
			Net:      net,
			Score:    t.score(gross),
			Stack:    p.wallet.Stack(),
		})
	}

	t.logger.Info("Round settled", "round", t.round, "dealer", t.dealer.Hand.Value, "house", t.house)
	t.emit(Event{Type: EventRoundSettled, Cards: t.dealer.Hand.Cards, Value: t.dealer.Hand.Value, Results: results})
	t.publishLocked()
	t.resolveBankruptciesLocked()
}

// abortRoundLocked voids the round after an unrecoverable error, returning
// every wager.
func (t *Table) abortRoundLocked(err error) {
	t.logger.Error("Round aborted", "round", t.round, "error", err)
	for _, p := range t.order {
		if p.inRound {
			p.voidRound()
		}
	}
	t.emit(Event{Type: EventRoundAborted, Reason: err.Error()})
	t.scheduleNextRoundLocked()
}
