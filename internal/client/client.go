// Package client is a WebSocket client for the blackjack server, plus an
// Agent that seats a bot through it.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/server"
)

// ErrClosed is returned when sending on a closed client.
var ErrClosed = errors.New("client closed")

const (
	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second
)

// Handler receives messages of one type. Handlers run on the read goroutine
// in arrival order and must not block.
type Handler func(*server.Message)

// Client represents a WebSocket connection to the blackjack server.
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu       sync.RWMutex
	handlers map[server.MessageType][]Handler
}

// NewClient creates a client for serverURL. http and https URLs are
// rewritten to their WebSocket schemes and the /ws path is added when
// missing.
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		serverURL: serverURL,
		send:      make(chan *server.Message, 256),
		logger:    logger.WithPrefix("client"),
		ctx:       ctx,
		cancel:    cancel,
		handlers:  make(map[server.MessageType][]Handler),
	}
}

func wsURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/ws") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	}
	return u.String(), nil
}

// Connect dials the server and starts the read and write pumps.
func (c *Client) Connect(ctx context.Context) error {
	target, err := wsURL(c.serverURL)
	if err != nil {
		return err
	}
	c.logger.Info("Connecting to server", "url", target)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	go c.readPump()
	go c.writePump()

	c.logger.Info("Connected to server")
	return nil
}

// Close shuts the connection down. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.logger.Debug("Disconnected from server")
	})
	return nil
}

// Done is closed once the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// On registers a handler for a message type.
func (c *Client) On(mt server.MessageType, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[mt] = append(c.handlers[mt], h)
}

// Send queues a message for the server.
func (c *Client) Send(msg *server.Message) error {
	select {
	case <-c.ctx.Done():
		return ErrClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	default:
		return fmt.Errorf("send buffer full")
	}
}

func (c *Client) command(mt server.MessageType, data any) (string, error) {
	msg, err := server.NewMessage(mt, data)
	if err != nil {
		return "", err
	}
	msg.RequestID = uuid.NewString()
	return msg.RequestID, c.Send(msg)
}

// Join asks to sit playerID at tableID with buyIn chips. An empty tableID
// selects the server's default table.
func (c *Client) Join(tableID, playerID string, buyIn int) (string, error) {
	return c.command(server.MessageTypeJoin, server.JoinData{TableID: tableID, PlayerID: playerID, BuyIn: buyIn})
}

func (c *Client) Leave() (string, error) {
	return c.command(server.MessageTypeLeave, nil)
}

func (c *Client) Bet(amount int) (string, error) {
	return c.command(server.MessageTypeBet, server.BetData{Amount: amount})
}

func (c *Client) Act(action blackjack.Action) (string, error) {
	return c.command(server.MessageTypeAction, server.ActionData{Action: action.String()})
}

func (c *Client) Rebuy(amount int) (string, error) {
	return c.command(server.MessageTypeRebuy, server.RebuyData{Amount: amount})
}

// Subscribe streams a table's events without taking a seat.
func (c *Client) Subscribe(tableID string) (string, error) {
	return c.command(server.MessageTypeSubscribe, server.TableData{TableID: tableID})
}

func (c *Client) ListTables() (string, error) {
	return c.command(server.MessageTypeListTables, nil)
}

func (c *Client) readPump() {
	defer c.Close()
	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket error", "error", err)
			}
			return
		}
		c.logger.Debug("Received message", "type", msg.Type)
		c.dispatch(&msg)
	}
}

func (c *Client) dispatch(msg *server.Message) {
	c.mu.RLock()
	handlers := c.handlers[msg.Type]
	c.mu.RUnlock()
	if len(handlers) == 0 {
		c.logger.Debug("No handler for message type", "type", msg.Type)
		return
	}
	for _, h := range handlers {
		h(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn("Failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
