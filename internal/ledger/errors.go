package ledger

import "errors"

var (
	// ErrInvalidAmount is returned for zero or negative chip amounts.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientBankroll is returned when a bankroll cannot cover a buy-in.
	ErrInsufficientBankroll = errors.New("insufficient bankroll")
	// ErrPersistence wraps any failure to save an account.
	ErrPersistence = errors.New("persistence failure")
	// ErrNotFound is returned by stores for unknown accounts.
	ErrNotFound = errors.New("account not found")
)
