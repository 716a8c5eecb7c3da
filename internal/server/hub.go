package server

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/game"
)

// subscriber receives messages for the tables it follows.
type subscriber interface {
	SendMessage(msg *Message) error
}

// Hub fans table events out to subscribed connections. It is a
// game.Notifier: Notify runs under the table lock, so delivery only queues
// onto each connection's buffered send channel.
type Hub struct {
	logger *log.Logger

	mu   sync.RWMutex
	subs map[string]map[subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Hub{
		logger: logger.WithPrefix("hub"),
		subs:   make(map[string]map[subscriber]struct{}),
	}
}

// Subscribe adds s to the audience of table.
func (h *Hub) Subscribe(table string, s subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[table]
	if !ok {
		set = make(map[subscriber]struct{})
		h.subs[table] = set
	}
	set[s] = struct{}{}
}

// Unsubscribe removes s from table.
func (h *Hub) Unsubscribe(table string, s subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(table, s)
}

func (h *Hub) unsubscribeLocked(table string, s subscriber) {
	set, ok := h.subs[table]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, table)
	}
}

// Drop removes s from every table.
func (h *Hub) Drop(s subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for table := range h.subs {
		h.unsubscribeLocked(table, s)
	}
}

// Subscribers returns how many subscribers follow table.
func (h *Hub) Subscribers(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[table])
}

func (h *Hub) Notify(e game.Event) {
	msg, err := NewMessage(MessageTypeEvent, e)
	if err != nil {
		h.logger.Error("Failed to encode event", "type", e.Type, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]subscriber, 0, len(h.subs[e.Table]))
	for s := range h.subs[e.Table] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if c, ok := s.(*Connection); ok {
			c.observe(e)
		}
		if err := s.SendMessage(msg); err != nil {
			h.logger.Debug("Dropped event for subscriber", "type", e.Type, "table", e.Table, "error", err)
		}
	}

	if e.Type == game.EventTableStopped {
		h.mu.Lock()
		delete(h.subs, e.Table)
		h.mu.Unlock()
	}
}
