package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
	"golang.org/x/time/rate"
)

// Server serves the websocket protocol for the tables of a session manager.
type Server struct {
	manager  *session.Manager
	hub      *Hub
	logger   *log.Logger
	upgrader websocket.Upgrader

	rateLimit rate.Limit
	rateBurst int

	mu          sync.RWMutex
	connections map[*Connection]bool
	players     map[string]*Connection
	httpServer  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit caps inbound messages per connection.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.rateLimit = rate.Limit(perSecond)
		s.rateBurst = burst
	}
}

// NewServer creates a server. hub must be the notifier the manager's tables
// were created with for clients to receive events.
func NewServer(manager *session.Manager, hub *Hub, logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		manager: manager,
		hub:     hub,
		logger:  logger.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		rateLimit:   20,
		rateBurst:   40,
		connections: make(map[*Connection]bool),
		players:     make(map[string]*Connection),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/tables", s.handleTables)
	return mux
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("Starting WebSocket server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes every connection and stops the listener. Seated players
// are removed from their tables as their connections close.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s)
	s.mu.Lock()
	s.connections[client] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "remote", r.RemoteAddr, "total", total)

	client.Start()
	go func() {
		<-client.Done()
		s.disconnect(client)
	}()
}

// disconnect treats a dropped connection as a leave so the player's stack
// is refunded before the seat is released.
func (s *Server) disconnect(c *Connection) {
	s.hub.Drop(c)
	player, tableID := c.Seat()
	if tableID != "" {
		s.logger.Info("Cleaning up disconnected player", "player", player, "table", tableID)
		if err := s.leave(context.Background(), player, tableID); err != nil {
			s.logger.Error("Failed to remove disconnected player", "player", player, "table", tableID, "error", err)
		}
	}
	if player != "" {
		s.release(player, c)
	}

	s.mu.Lock()
	delete(s.connections, c)
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client disconnected", "player", player, "total", total)
}

// leave removes player from tableID. A player already gone counts as
// success.
func (s *Server) leave(ctx context.Context, player, tableID string) error {
	t, ok := s.manager.Get(tableID)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	err := t.Leave(ctx, player)
	if errors.Is(err, game.ErrPlayerNotFound) || errors.Is(err, game.ErrTableStopping) {
		return nil
	}
	return err
}

// claim binds a player id to a single connection.
func (s *Server) claim(player string, c *Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.players[player]; ok && owner != c {
		return false
	}
	s.players[player] = c
	return true
}

func (s *Server) release(player string, c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.players[player] == c {
		delete(s.players, player)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func (s *Server) tableList() TableListData {
	summaries := s.manager.List()
	tables := make([]TableInfo, 0, len(summaries))
	for _, ts := range summaries {
		tables = append(tables, TableInfo{TableSummary: ts, Spectators: s.hub.Subscribers(ts.ID)})
	}
	return TableListData{Tables: tables}
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.tableList()); err != nil {
		s.logger.Error("Failed to encode tables", "error", err)
	}
}
