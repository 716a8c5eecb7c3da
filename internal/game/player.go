package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/ledger"
)

// Bets tracks the chips a player has put at risk this round. Total always
// equals the chips withdrawn from the stack for the round.
type Bets struct {
	Initial   int `json:"initial"`
	Total     int `json:"total"`
	Insurance int `json:"insurance"`
}

// Player is a seat at the table. It is only built by newPlayer and only
// touched while the table lock is held.
type Player struct {
	id     string
	wallet *ledger.Wallet

	rebuysUsed int
	hands      []*blackjack.Hand
	bets       Bets
	insurance  *blackjack.Insurance

	isCurrentTurn bool
	currentHand   int
	won           int
	lost          int

	inRound    bool
	sittingOut bool
	// leaving marks a player whose refund failed to persist; they sit out
	// until removal succeeds.
	leaving bool
	rebuy   *rebuyOffer

	seatedAt time.Time
}

func newPlayer(id string, wallet *ledger.Wallet, seatedAt time.Time) (*Player, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("player id is required")
	}
	if wallet == nil {
		return nil, fmt.Errorf("player %s: wallet is required", id)
	}
	if wallet.ID() != id {
		return nil, fmt.Errorf("player %s: wallet belongs to %s", id, wallet.ID())
	}
	if wallet.Stack() <= 0 {
		return nil, fmt.Errorf("player %s: no chips committed", id)
	}
	return &Player{
		id:       id,
		wallet:   wallet,
		seatedAt: seatedAt,
	}, nil
}

// ID returns the player identifier.
func (p *Player) ID() string {
	return p.id
}

func (p *Player) resetRound() {
	p.hands = nil
	p.bets = Bets{}
	p.insurance = nil
	p.isCurrentTurn = false
	p.currentHand = 0
	p.won = 0
	p.lost = 0
	p.inRound = false
}

func (p *Player) activeHand() *blackjack.Hand {
	if p.currentHand < 0 || p.currentHand >= len(p.hands) {
		return nil
	}
	return p.hands[p.currentHand]
}

func (p *Player) evalContext() blackjack.EvalContext {
	return blackjack.EvalContext{PlayerHand: true, HandCount: len(p.hands)}
}

func (p *Player) turnState(dealerUp deck.Card) blackjack.Turn {
	return blackjack.Turn{
		Hand:      p.activeHand(),
		HandCount: len(p.hands),
		Stack:     p.wallet.Stack(),
		Initial:   p.bets.Initial,
		Insurance: p.insurance,
		DealerUp:  dealerUp,
	}
}

// withdraw takes amount from the stack and records it against the round in
// one step so Bets.Total never drifts from the chips actually withdrawn.
func (p *Player) withdraw(amount int) error {
	if !p.wallet.Withdraw(amount) {
		return fmt.Errorf("%s needs %d, has %d: %w", p.id, amount, p.wallet.Stack(), ErrInsufficientFunds)
	}
	p.bets.Total += amount
	return nil
}

// voidRound returns every chip wagered this round to the stack.
func (p *Player) voidRound() int {
	refunded := p.bets.Total
	p.wallet.Deposit(refunded)
	p.bets = Bets{}
	p.hands = nil
	p.insurance = nil
	p.inRound = false
	p.isCurrentTurn = false
	return refunded
}

// forfeitRound drops the player's hands; wagered chips stay with the house.
func (p *Player) forfeitRound() int {
	forfeited := p.bets.Total
	p.bets = Bets{}
	p.hands = nil
	p.insurance = nil
	p.inRound = false
	p.isCurrentTurn = false
	return forfeited
}
