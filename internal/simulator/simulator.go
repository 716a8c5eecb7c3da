// Package simulator plays bots against an in-process table and collects
// per-bot statistics.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/bot"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/statistics"
)

// ErrStalled is returned when the table stops producing events before the
// simulation finishes.
var ErrStalled = errors.New("simulation stalled")

// Config holds configuration for running simulations.
type Config struct {
	Rounds   int
	Bots     []string
	Seed     int64
	BuyIn    int
	Bankroll int
	Table    game.Config
	Timeout  time.Duration
	Logger   *log.Logger
}

// PlayerSummary is one bot's outcome. Bankroll is read after the table
// stopped, so it includes the refunded stack.
type PlayerSummary struct {
	ID       string
	Bot      string
	Stats    *statistics.Statistics
	Bankroll int
}

// Result is the outcome of a simulation.
type Result struct {
	Rounds     int
	Players    []PlayerSummary
	House      int
	StopReason string
	Seed       int64
	Elapsed    time.Duration
}

// Simulator runs blackjack simulations.
type Simulator struct {
	config Config
	logger *log.Logger
}

// New creates a simulator, filling in defaults for unset fields.
func New(config Config) *Simulator {
	if config.Logger == nil {
		config.Logger = log.New(io.Discard)
	}
	if config.Table == (game.Config{}) {
		config.Table = game.DefaultConfig()
	}
	// bots act synchronously between rounds
	config.Table.RoundDelay = 0
	if config.BuyIn == 0 {
		config.BuyIn = config.Table.MaxBuyIn
	}
	if config.Bankroll == 0 {
		config.Bankroll = ledger.DefaultStartingBankroll
	}
	if config.Timeout == 0 {
		config.Timeout = time.Minute
	}
	if len(config.Bots) == 0 {
		config.Bots = []string{"basic"}
	}
	return &Simulator{config: config, logger: config.Logger.WithPrefix("simulator")}
}

type seat struct {
	id    string
	bot   bot.Bot
	stats *statistics.Statistics
	round roundTracker
}

// roundTracker gathers what a seat did during the current round.
type roundTracker struct {
	acted  bool
	result statistics.RoundResult
}

// queue buffers events emitted while the simulator calls into the table.
type queue struct {
	mu     sync.Mutex
	events []game.Event
}

func (q *queue) Notify(e game.Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

func (q *queue) pop() (game.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return game.Event{}, false
	}
	e := q.events[0]
	q.events = q.events[1:]
	return e, true
}

// Run plays until the configured number of rounds settle, the table stops,
// or ctx ends.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	cfg := s.config
	seed := randutil.Seed(cfg.Seed)
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	l := ledger.New(ledger.NewMemoryStore(),
		ledger.WithLogger(s.logger),
		ledger.WithStartingBankroll(cfg.Bankroll),
	)
	events := &queue{}
	table, err := game.NewTable("sim", cfg.Table, l,
		game.WithLogger(s.logger),
		game.WithSeed(randutil.Derive(seed, 0)),
		game.WithNotifier(events),
	)
	if err != nil {
		return nil, err
	}

	seats := make(map[string]*seat, len(cfg.Bots))
	order := make([]*seat, 0, len(cfg.Bots))
	for i, kind := range cfg.Bots {
		b, err := bot.New(kind, randutil.New(randutil.Derive(seed, i+1)), s.logger)
		if err != nil {
			return nil, err
		}
		st := &seat{id: fmt.Sprintf("%s-%d", kind, i+1), bot: b, stats: statistics.New(cfg.Table.MinBet)}
		if err := table.Join(ctx, st.id, cfg.BuyIn); err != nil {
			return nil, fmt.Errorf("seat %s: %w", st.id, err)
		}
		seats[st.id] = st
		order = append(order, st)
	}

	start := time.Now()
	res := &Result{Seed: seed}
	err = s.drive(ctx, table, events, seats, res)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if stopErr := table.Stop(stopCtx, game.StopReasonShutdown); stopErr != nil {
		err = errors.Join(err, stopErr)
	}

	res.Elapsed = time.Since(start)
	res.House = table.HouseBalance()
	res.StopReason = table.StopReason()
	for _, st := range order {
		sum := PlayerSummary{ID: st.id, Bot: st.bot.Name(), Stats: st.stats}
		if acct, aerr := l.Account(context.Background(), st.id); aerr == nil {
			sum.Bankroll = acct.Bankroll
		}
		res.Players = append(res.Players, sum)
	}
	s.logger.Info("Simulation finished", "rounds", res.Rounds, "house", res.House, "reason", res.StopReason, "elapsed", res.Elapsed)
	return res, err
}

func (s *Simulator) drive(ctx context.Context, table *game.Table, events *queue, seats map[string]*seat, res *Result) error {
	var up deck.Card
	for res.Rounds < s.config.Rounds {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("after %d rounds: %w", res.Rounds, err)
		}
		e, ok := events.pop()
		if !ok {
			return fmt.Errorf("phase %s after %d rounds: %w", table.Phase(), res.Rounds, ErrStalled)
		}

		switch e.Type {
		case game.EventBettingOpened:
			for id, st := range seats {
				ps, seated := table.Player(id)
				if !seated || ps.SittingOut {
					continue
				}
				st.round = roundTracker{}
				amount := st.bot.Bet(ps.Stack, s.config.Table.MinBet, s.config.Table.MaxBet)
				if amount == 0 {
					s.logger.Debug("Bot walked away", "player", id, "stack", ps.Stack)
					if err := table.Leave(ctx, id); err != nil {
						return err
					}
					continue
				}
				if err := table.PlaceBet(id, amount); err != nil {
					s.logger.Debug("Bet rejected", "player", id, "amount", amount, "error", err)
				}
			}

		case game.EventDealerUpCard:
			if len(e.Cards) > 0 {
				up = e.Cards[0]
			}

		case game.EventTurnStarted:
			st, ok := seats[e.Player]
			if !ok {
				continue
			}
			ps, seated := table.Player(e.Player)
			if !seated || !ps.IsCurrentTurn || e.Hand >= len(ps.Hands) {
				continue
			}
			view := bot.View{Hand: ps.Hands[e.Hand], DealerUp: up, Actions: e.Actions, Stack: ps.Stack}
			if err := s.act(table, st, view); err != nil {
				return err
			}

		case game.EventActionTaken:
			if st, ok := seats[e.Player]; ok {
				st.round.acted = true
				switch e.Action {
				case blackjack.Double:
					st.round.result.Doubled = true
				case blackjack.SplitHand:
					st.round.result.Split = true
				}
			}

		case game.EventInsuranceBought:
			if st, ok := seats[e.Player]; ok {
				st.round.result.Insured = true
			}

		case game.EventAutoStand:
			if st, ok := seats[e.Player]; ok && e.Value == 21 && !st.round.acted && !st.round.result.Split {
				st.round.result.Blackjack = true
			}

		case game.EventHandSettled:
			if st, ok := seats[e.Player]; ok {
				r := &st.round.result
				r.Hands++
				switch e.Result {
				case blackjack.ResultWin:
					r.Wins++
				case blackjack.ResultPush:
					r.Pushes++
				default:
					r.Losses++
				}
			}

		case game.EventRoundSettled:
			res.Rounds++
			for _, pr := range e.Results {
				st, ok := seats[pr.Player]
				if !ok {
					continue
				}
				r := st.round.result
				r.Net = pr.Net
				r.Wagered = pr.Wagered
				st.stats.Add(r)
				st.round = roundTracker{}
			}

		case game.EventRebuyOffered:
			if _, ok := seats[e.Player]; !ok {
				continue
			}
			if err := table.Rebuy(ctx, e.Player, s.config.BuyIn); err != nil {
				s.logger.Debug("Rebuy failed, leaving", "player", e.Player, "error", err)
				if err := table.Leave(ctx, e.Player); err != nil && !errors.Is(err, game.ErrPlayerNotFound) {
					return err
				}
			}

		case game.EventTableStopping, game.EventTableStopped:
			return nil
		}
	}
	return nil
}

// act asks the bot for a play, falling back to standing if the table
// rejects it.
func (s *Simulator) act(table *game.Table, st *seat, view bot.View) error {
	action := st.bot.Decide(view)
	err := table.Act(st.id, action)
	if err != nil && action != blackjack.Stand {
		s.logger.Debug("Action rejected", "player", st.id, "action", action, "error", err)
		err = table.Act(st.id, blackjack.Stand)
	}
	// the action timer may have moved the turn on
	if errors.Is(err, game.ErrNotYourTurn) {
		return nil
	}
	return err
}
