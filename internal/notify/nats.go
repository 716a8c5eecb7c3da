package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/game"
	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is the subject root events are published under.
const DefaultSubjectPrefix = "blackjack"

// Publisher is the part of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes every event as JSON on "<prefix>.<table>.events".
// Publishing is buffered by the client so Notify does not block on the
// network.
type NATSSink struct {
	pub    Publisher
	prefix string
	logger *log.Logger
}

// NewNATSSink creates a sink over pub. An empty prefix uses
// DefaultSubjectPrefix.
func NewNATSSink(pub Publisher, prefix string, logger *log.Logger) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &NATSSink{pub: pub, prefix: prefix, logger: logger.WithPrefix("nats")}
}

// Subject returns the subject events of table are published on.
func (s *NATSSink) Subject(table string) string {
	return fmt.Sprintf("%s.%s.events", s.prefix, table)
}

func (s *NATSSink) Notify(e game.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		s.logger.Error("Failed to encode event", "type", e.Type, "error", err)
		return
	}
	if err := s.pub.Publish(s.Subject(e.Table), data); err != nil {
		s.logger.Warn("Failed to publish event", "type", e.Type, "table", e.Table, "error", err)
	}
}

// ConnectNATS dials a NATS server with reconnects enabled.
func ConnectNATS(url, name string, logger *log.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectHandler(func(nc *nats.Conn) {
			logger.Warn("NATS disconnected", "error", nc.LastError())
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}
