package client

import (
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/bot"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/server"
	"github.com/lox/blackjack/internal/statistics"
)

// Agent plays a bot over a Client: it bets when betting opens, acts on its
// turns, rebuys when offered and records every settled round.
type Agent struct {
	client   *Client
	bot      bot.Bot
	playerID string
	tableID  string
	buyIn    int
	logger   *log.Logger

	mu       sync.Mutex
	seated   bool
	stack    int
	minBet   int
	maxBet   int
	up       deck.Card
	round    statistics.RoundResult
	acted    bool
	stats    *statistics.Statistics
	lastErr  string
	finished chan struct{}
	once     sync.Once
}

// NewAgent wires an agent's handlers into c. Call Start once connected.
func NewAgent(c *Client, b bot.Bot, playerID, tableID string, buyIn int, logger *log.Logger) *Agent {
	a := &Agent{
		client:   c,
		bot:      b,
		playerID: playerID,
		tableID:  tableID,
		buyIn:    buyIn,
		logger:   logger.WithPrefix("agent").With("player", playerID),
		stack:    buyIn,
		stats:    statistics.New(1),
		finished: make(chan struct{}),
	}
	c.On(server.MessageTypeJoined, a.handleJoined)
	c.On(server.MessageTypeLeft, func(*server.Message) { a.finish() })
	c.On(server.MessageTypeEvent, a.handleEvent)
	c.On(server.MessageTypeError, a.handleError)
	go func() {
		<-c.Done()
		a.finish()
	}()
	return a
}

// Start requests the seat.
func (a *Agent) Start() error {
	_, err := a.client.Join(a.tableID, a.playerID, a.buyIn)
	return err
}

// Done is closed when the agent leaves, the table stops or the connection
// drops.
func (a *Agent) Done() <-chan struct{} {
	return a.finished
}

// Stats returns a copy of the rounds recorded so far.
func (a *Agent) Stats() statistics.Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := *a.stats
	s.Values = append([]float64(nil), a.stats.Values...)
	return s
}

func (a *Agent) PlayerID() string { return a.playerID }

func (a *Agent) BotName() string { return a.bot.Name() }

// LastError returns the most recent error code reported by the server.
func (a *Agent) LastError() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

func (a *Agent) finish() {
	a.once.Do(func() { close(a.finished) })
}

func (a *Agent) handleJoined(msg *server.Message) {
	var data server.JoinedData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		a.logger.Warn("Malformed joined message", "error", err)
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seated = true
	a.tableID = data.TableID
	a.minBet, a.maxBet = data.State.MinBet, data.State.MaxBet
	a.stats = statistics.New(a.minBet)
	for _, p := range data.State.Players {
		if p.ID == a.playerID {
			a.stack = p.Stack
		}
	}
	a.logger.Info("Seated", "table", data.TableID, "stack", a.stack)

	// betting may have opened before the reply arrived
	if data.State.Phase == game.PhaseBetting {
		a.betLocked()
	}
}

func (a *Agent) handleError(msg *server.Message) {
	var data server.ErrorData
	_ = json.Unmarshal(msg.Data, &data)
	a.mu.Lock()
	a.lastErr = data.Code
	a.mu.Unlock()
	a.logger.Debug("Server error", "code", data.Code, "message", data.Message)
}

func (a *Agent) handleEvent(msg *server.Message) {
	var e game.Event
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		a.logger.Warn("Malformed event", "error", err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.seated {
		return
	}
	mine := e.Player == a.playerID

	switch e.Type {
	case game.EventBettingOpened:
		a.round = statistics.RoundResult{}
		a.acted = false
		a.betLocked()

	case game.EventDealerUpCard:
		if len(e.Cards) > 0 {
			a.up = e.Cards[0]
		}

	case game.EventTurnStarted:
		if mine {
			a.actLocked(e)
		}

	case game.EventActionTaken:
		if mine {
			a.acted = true
			switch e.Action {
			case blackjack.Double:
				a.round.Doubled = true
			case blackjack.SplitHand:
				a.round.Split = true
			}
		}

	case game.EventInsuranceBought:
		if mine {
			a.round.Insured = true
		}

	case game.EventAutoStand:
		if mine && e.Value == 21 && !a.acted && !a.round.Split {
			a.round.Blackjack = true
		}

	case game.EventHandSettled:
		if mine {
			a.round.Hands++
			switch e.Result {
			case blackjack.ResultWin:
				a.round.Wins++
			case blackjack.ResultPush:
				a.round.Pushes++
			default:
				a.round.Losses++
			}
		}

	case game.EventRoundSettled:
		for _, r := range e.Results {
			if r.Player != a.playerID {
				continue
			}
			a.round.Net = r.Net
			a.round.Wagered = r.Wagered
			a.stats.Add(a.round)
			a.stack = r.Stack
		}
		a.round = statistics.RoundResult{}

	case game.EventRebuyOffered:
		if mine {
			a.stack = e.Stack
			if _, err := a.client.Rebuy(a.buyIn); err != nil {
				a.logger.Warn("Rebuy failed", "error", err)
			}
		}

	case game.EventRebuyCompleted:
		if mine {
			a.stack = e.Stack
		}

	case game.EventPlayerLeft:
		if mine {
			a.logger.Info("Removed from table", "reason", e.Reason)
			a.seated = false
			a.finish()
		}

	case game.EventTableStopped:
		a.seated = false
		a.finish()
	}
}

func (a *Agent) betLocked() {
	amount := a.bot.Bet(a.stack, a.minBet, a.maxBet)
	if amount == 0 {
		return
	}
	if _, err := a.client.Bet(amount); err != nil {
		a.logger.Warn("Bet failed", "error", err)
	}
}

func (a *Agent) actLocked(e game.Event) {
	hand := blackjack.NewHand(0, e.Cards...)
	blackjack.Evaluate(hand, blackjack.EvalContext{PlayerHand: true, HandCount: 1})
	action := a.bot.Decide(bot.View{Hand: hand, DealerUp: a.up, Actions: e.Actions, Stack: a.stack})
	a.logger.Debug("Decision", "hand", hand, "up", a.up, "action", action)
	if _, err := a.client.Act(action); err != nil {
		a.logger.Warn("Action failed", "error", err)
	}
}
