// Package notify provides sinks for table events.
package notify

import (
	"github.com/lox/blackjack/internal/game"
)

// Multi fans an event out to every non-nil notifier in order.
func Multi(notifiers ...game.Notifier) game.Notifier {
	var out multi
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

type multi []game.Notifier

func (m multi) Notify(e game.Event) {
	for _, n := range m {
		n.Notify(e)
	}
}
