package blackjack

import "errors"

var (
	// ErrIllegalAction is returned when an action is not in the legal set for the current turn.
	ErrIllegalAction = errors.New("illegal action")
	// ErrAlreadySettled is returned when a side bet or hand is resolved twice.
	ErrAlreadySettled = errors.New("already settled")
)
