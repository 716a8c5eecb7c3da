package game

import (
	"errors"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/ledger"
)

// Errors shared with the lower layers are re-exported so callers only need
// this package for errors.Is checks.
var (
	ErrInvalidAmount        = ledger.ErrInvalidAmount
	ErrInsufficientBankroll = ledger.ErrInsufficientBankroll
	ErrPersistence          = ledger.ErrPersistence
	ErrEmptyDeck            = deck.ErrEmptyDeck
	ErrIllegalAction        = blackjack.ErrIllegalAction
	ErrAlreadySettled       = blackjack.ErrAlreadySettled
)

var (
	ErrBelowMinimum      = errors.New("amount below minimum")
	ErrAboveMaximum      = errors.New("amount above maximum")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTableStopping     = errors.New("table is stopping")
	ErrActionInProgress  = errors.New("action already in progress")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrAlreadySeated     = errors.New("player already seated")
	ErrTableFull         = errors.New("table is full")
	ErrNoPendingRebuy    = errors.New("no pending rebuy")
	ErrBettingClosed     = errors.New("betting is closed")
	ErrAlreadyBet        = errors.New("bet already placed")
)
