package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/game"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Time allowed for ledger writes made on behalf of a client
	commandTimeout = 10 * time.Second
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection is one websocket client. A connection plays as at most one
// player at one table, and may follow any number of tables as a spectator.
type Connection struct {
	conn      *websocket.Conn
	server    *Server
	send      chan *Message
	limiter   *rate.Limiter
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu       sync.RWMutex
	playerID string
	tableID  string
}

// NewConnection wraps an upgraded websocket.
func NewConnection(conn *websocket.Conn, s *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:    conn,
		server:  s,
		send:    make(chan *Message, 256),
		limiter: rate.NewLimiter(s.rateLimit, s.rateBurst),
		logger:  s.logger.WithPrefix("conn"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed once the connection has shut down.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues msg for the client without blocking. A client that
// cannot keep up is disconnected.
func (c *Connection) SendMessage(msg *Message) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("Connection send buffer full, closing connection", "player", c.GetPlayer())
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// Seat returns the player and table this connection plays at.
func (c *Connection) Seat() (playerID, tableID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID, c.tableID
}

// GetPlayer returns the associated player ID.
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// GetTable returns the table the player is seated at.
func (c *Connection) GetTable() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

func (c *Connection) setSeat(playerID, tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
	c.tableID = tableID
}

func (c *Connection) clearTable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = ""
}

// observe keeps the seat in sync when the table removes the player on its
// own, for bankruptcy or shutdown.
func (c *Connection) observe(e game.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tableID != e.Table {
		return
	}
	if e.Type == game.EventTableStopped || (e.Type == game.EventPlayerLeft && e.Player == c.playerID) {
		c.tableID = ""
	}
}

// readPump handles incoming messages from the client.
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		if !c.limiter.Allow() {
			c.sendError(msg.RequestID, "rate_limited", "Too many messages")
			continue
		}
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Debug("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func decode[T any](c *Connection, msg *Message) (T, bool) {
	var data T
	if len(msg.Data) == 0 {
		return data, true
	}
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg.RequestID, "invalid_message", "Failed to parse "+msg.Type.String()+" data")
		return data, false
	}
	return data, true
}

// handleMessage processes incoming messages from the client.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeJoin:
		if data, ok := decode[JoinData](c, msg); ok {
			c.handleJoin(msg.RequestID, data)
		}
	case MessageTypeLeave:
		c.handleLeave(msg.RequestID)
	case MessageTypeBet:
		if data, ok := decode[BetData](c, msg); ok {
			c.withSeat(msg, func(t *game.Table, player string) error {
				return t.PlaceBet(player, data.Amount)
			})
		}
	case MessageTypeAction:
		if data, ok := decode[ActionData](c, msg); ok {
			action, err := blackjack.ParseAction(data.Action)
			if err != nil {
				c.sendError(msg.RequestID, "invalid_action", err.Error())
				return
			}
			c.withSeat(msg, func(t *game.Table, player string) error {
				return t.Act(player, action)
			})
		}
	case MessageTypeRebuy:
		if data, ok := decode[RebuyData](c, msg); ok {
			c.withSeat(msg, func(t *game.Table, player string) error {
				ctx, cancel := context.WithTimeout(c.ctx, commandTimeout)
				defer cancel()
				return t.Rebuy(ctx, player, data.Amount)
			})
		}
	case MessageTypeSubscribe:
		if data, ok := decode[TableData](c, msg); ok {
			c.handleSubscribe(msg.RequestID, data)
		}
	case MessageTypeUnsubscribe:
		if data, ok := decode[TableData](c, msg); ok {
			c.server.hub.Unsubscribe(data.TableID, c)
			c.sendReply(msg.RequestID, MessageTypeAck, AckData{Command: msg.Type})
		}
	case MessageTypeState:
		if data, ok := decode[TableData](c, msg); ok {
			c.handleState(msg.RequestID, data)
		}
	case MessageTypeListTables:
		c.sendReply(msg.RequestID, MessageTypeTableList, c.server.tableList())
	default:
		c.sendError(msg.RequestID, "unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// lookup resolves a table id, falling back to the default table.
func (c *Connection) lookup(tableID string) (*game.Table, bool) {
	if tableID == "" {
		return c.server.manager.Default()
	}
	return c.server.manager.Get(tableID)
}

func (c *Connection) handleJoin(requestID string, data JoinData) {
	if data.PlayerID == "" {
		c.sendError(requestID, "invalid_message", "Player ID required")
		return
	}
	player, seatedAt := c.Seat()
	if seatedAt != "" {
		c.sendError(requestID, "already_seated", "Already seated at table "+seatedAt)
		return
	}
	if player != "" && player != data.PlayerID {
		c.sendError(requestID, "invalid_message", "Connection already plays as "+player)
		return
	}
	if !c.server.claim(data.PlayerID, c) {
		c.sendError(requestID, "already_seated", "Player is connected elsewhere")
		return
	}
	t, ok := c.lookup(data.TableID)
	if !ok {
		c.server.release(data.PlayerID, c)
		c.sendError(requestID, "table_not_found", "Table not found: "+data.TableID)
		return
	}

	c.logger.Info("Join request", "table", t.ID(), "player", data.PlayerID, "buy_in", data.BuyIn)
	// subscribe first so the joiner sees its own player_joined event
	c.server.hub.Subscribe(t.ID(), c)

	ctx, cancel := context.WithTimeout(c.ctx, commandTimeout)
	defer cancel()
	if err := t.Join(ctx, data.PlayerID, data.BuyIn); err != nil {
		c.server.hub.Unsubscribe(t.ID(), c)
		c.server.release(data.PlayerID, c)
		c.sendError(requestID, errorCode(err), err.Error())
		return
	}

	c.setSeat(data.PlayerID, t.ID())
	c.sendReply(requestID, MessageTypeJoined, JoinedData{
		TableID:  t.ID(),
		PlayerID: data.PlayerID,
		State:    t.State(),
	})
}

func (c *Connection) handleLeave(requestID string) {
	player, tableID := c.Seat()
	if tableID == "" {
		c.sendError(requestID, "not_seated", "Not seated at a table")
		return
	}
	c.logger.Info("Leave request", "table", tableID, "player", player)

	if err := c.server.leave(c.ctx, player, tableID); err != nil {
		c.sendError(requestID, errorCode(err), err.Error())
		return
	}
	c.clearTable()
	c.server.release(player, c)
	c.sendReply(requestID, MessageTypeLeft, LeftData{TableID: tableID, PlayerID: player})
}

// withSeat runs fn against the connection's table and acknowledges success.
func (c *Connection) withSeat(msg *Message, fn func(t *game.Table, player string) error) {
	player, tableID := c.Seat()
	if tableID == "" {
		c.sendError(msg.RequestID, "not_seated", "Not seated at a table")
		return
	}
	t, ok := c.server.manager.Get(tableID)
	if !ok {
		c.clearTable()
		c.sendError(msg.RequestID, "table_not_found", "Table not found: "+tableID)
		return
	}
	if err := fn(t, player); err != nil {
		c.sendError(msg.RequestID, errorCode(err), err.Error())
		return
	}
	c.sendReply(msg.RequestID, MessageTypeAck, AckData{Command: msg.Type})
}

func (c *Connection) handleSubscribe(requestID string, data TableData) {
	t, ok := c.lookup(data.TableID)
	if !ok {
		c.sendError(requestID, "table_not_found", "Table not found: "+data.TableID)
		return
	}
	c.server.hub.Subscribe(t.ID(), c)
	c.sendReply(requestID, MessageTypeTableState, t.State())
}

func (c *Connection) handleState(requestID string, data TableData) {
	if data.TableID == "" {
		data.TableID = c.GetTable()
	}
	t, ok := c.lookup(data.TableID)
	if !ok {
		c.sendError(requestID, "table_not_found", "Table not found: "+data.TableID)
		return
	}
	c.sendReply(requestID, MessageTypeTableState, t.State())
}

func (c *Connection) sendReply(requestID string, mt MessageType, data any) {
	msg, err := NewMessage(mt, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", mt, "error", err)
		return
	}
	msg.RequestID = requestID
	_ = c.SendMessage(msg)
}

func (c *Connection) sendError(requestID, code, message string) {
	c.sendReply(requestID, MessageTypeError, ErrorData{Code: code, Message: message})
}

// errorCode maps engine errors to stable protocol codes.
func errorCode(err error) string {
	codes := []struct {
		err  error
		code string
	}{
		{game.ErrActionInProgress, "action_in_progress"},
		{game.ErrNotYourTurn, "not_your_turn"},
		{game.ErrIllegalAction, "illegal_action"},
		{game.ErrBettingClosed, "betting_closed"},
		{game.ErrAlreadyBet, "already_bet"},
		{game.ErrBelowMinimum, "below_minimum"},
		{game.ErrAboveMaximum, "above_maximum"},
		{game.ErrInsufficientFunds, "insufficient_funds"},
		{game.ErrInsufficientBankroll, "insufficient_bankroll"},
		{game.ErrInvalidAmount, "invalid_amount"},
		{game.ErrTableStopping, "table_stopping"},
		{game.ErrTableFull, "table_full"},
		{game.ErrAlreadySeated, "already_seated"},
		{game.ErrPlayerNotFound, "player_not_found"},
		{game.ErrNoPendingRebuy, "no_pending_rebuy"},
		{game.ErrPersistence, "persistence"},
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
