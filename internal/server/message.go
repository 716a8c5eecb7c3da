package server

import (
	"encoding/json"
	"time"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
)

// MessageType represents a WebSocket message type.
type MessageType string

const (
	// Client to server messages
	MessageTypeJoin        MessageType = "join"
	MessageTypeLeave       MessageType = "leave"
	MessageTypeBet         MessageType = "bet"
	MessageTypeAction      MessageType = "action"
	MessageTypeRebuy       MessageType = "rebuy"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeListTables  MessageType = "list_tables"
	MessageTypeState       MessageType = "state"

	// Server to client messages
	MessageTypeJoined     MessageType = "joined"
	MessageTypeLeft       MessageType = "left"
	MessageTypeAck        MessageType = "ack"
	MessageTypeEvent      MessageType = "event"
	MessageTypeTableState MessageType = "table_state"
	MessageTypeTableList  MessageType = "table_list"
	MessageTypeError      MessageType = "error"
)

func (mt MessageType) String() string {
	return string(mt)
}

// Message is the envelope for every frame in both directions.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a message with the current timestamp.
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type JoinData struct {
	TableID  string `json:"tableId,omitempty"`
	PlayerID string `json:"playerId"`
	BuyIn    int    `json:"buyIn"`
}

type TableData struct {
	TableID string `json:"tableId,omitempty"`
}

type BetData struct {
	Amount int `json:"amount"`
}

type ActionData struct {
	Action string `json:"action"`
}

type RebuyData struct {
	Amount int `json:"amount"`
}

// Server → Client Messages

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AckData struct {
	Command MessageType `json:"command"`
}

type JoinedData struct {
	TableID  string          `json:"tableId"`
	PlayerID string          `json:"playerId"`
	State    game.TableState `json:"state"`
}

type LeftData struct {
	TableID  string `json:"tableId"`
	PlayerID string `json:"playerId"`
}

// TableInfo is a table summary plus the number of connections following it.
type TableInfo struct {
	session.TableSummary
	Spectators int `json:"spectators"`
}

type TableListData struct {
	Tables []TableInfo `json:"tables"`
}
