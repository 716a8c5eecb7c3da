package notify

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
)

// LogSink writes table events to a logger. Round milestones are logged at
// info level, everything else at debug.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &LogSink{logger: logger.WithPrefix("events")}
}

func (s *LogSink) Notify(e game.Event) {
	kv := []any{"table", e.Table, "round", e.Round}
	if e.Player != "" {
		kv = append(kv, "player", e.Player)
	}
	if len(e.Cards) > 0 {
		kv = append(kv, "cards", deck.Codes(e.Cards))
	}
	if e.Value != 0 {
		kv = append(kv, "value", e.Value)
	}
	if e.Amount != 0 {
		kv = append(kv, "amount", e.Amount)
	}
	if e.Action != "" {
		kv = append(kv, "action", e.Action)
	}
	if e.Result != "" {
		kv = append(kv, "result", e.Result)
	}
	if e.Reason != "" {
		kv = append(kv, "reason", e.Reason)
	}

	switch e.Type {
	case game.EventRoundStarted, game.EventRoundSettled, game.EventRoundAborted,
		game.EventPlayerJoined, game.EventPlayerLeft, game.EventRebuyOffered,
		game.EventRebuyExpired, game.EventTableStopping, game.EventTableStopped:
		s.logger.Info(e.Type.String(), kv...)
	default:
		s.logger.Debug(e.Type.String(), kv...)
	}
}
