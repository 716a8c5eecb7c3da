package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/odds"
	"github.com/lox/blackjack/internal/randutil"
)

// Table is the root aggregate of a blackjack game: seats, shoe, dealer and
// the phase machine that drives rounds.
type Table struct {
	id     string
	cfg    Config
	ledger *ledger.Ledger
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand

	notifier  Notifier
	score     ScoreFunc
	estimator odds.Estimator
	feed      *odds.Feed
	stopFeed  context.CancelFunc

	mu         sync.Mutex
	phase      Phase
	round      int
	seats      []*Player
	order      []*Player
	turn       int
	shoe       *deck.Shoe
	dealer     *blackjack.Dealer
	timers     *timerSet
	gen        uint64
	betting    bettingPhase
	house      int
	version    uint64
	estimate   *odds.Estimate
	joining    map[string]bool
	bankrupted bool
	stopReason string
	onStopped  []func(*Table)

	inFlight sync.Map
	pending  sync.WaitGroup
	stopMu   sync.Mutex
	done     chan struct{}
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the table logger.
func WithLogger(logger *log.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// WithClock sets the clock driving timeouts.
func WithClock(clock quartz.Clock) Option {
	return func(t *Table) {
		t.clock = clock
	}
}

// WithRNG sets the random source for the shoe.
func WithRNG(rng *rand.Rand) Option {
	return func(t *Table) {
		t.rng = rng
	}
}

// WithSeed seeds the shoe deterministically.
func WithSeed(seed int64) Option {
	return func(t *Table) {
		t.rng = randutil.New(seed)
	}
}

// WithNotifier sets the event sink.
func WithNotifier(n Notifier) Option {
	return func(t *Table) {
		t.notifier = n
	}
}

// WithScoreFunc replaces the reward scoring function.
func WithScoreFunc(fn ScoreFunc) Option {
	return func(t *Table) {
		t.score = fn
	}
}

// WithEstimator attaches a probability estimator fed with table snapshots.
func WithEstimator(est odds.Estimator) Option {
	return func(t *Table) {
		t.estimator = est
	}
}

// NewTable creates a table in the waiting phase.
func NewTable(id string, cfg Config, l *ledger.Ledger, opts ...Option) (*Table, error) {
	if id == "" {
		return nil, fmt.Errorf("table id is required")
	}
	if l == nil {
		return nil, fmt.Errorf("table %s: ledger is required", id)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("table %s: %w", id, err)
	}

	t := &Table{
		id:       id,
		cfg:      cfg,
		ledger:   l,
		logger:   log.New(io.Discard),
		clock:    quartz.NewReal(),
		notifier: nopNotifier{},
		score:    LogScore,
		phase:    PhaseWaiting,
		joining:  make(map[string]bool),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.rng == nil {
		t.rng = randutil.New(randutil.Seed(0))
	}
	t.logger = t.logger.WithPrefix("table").With("table", id)
	t.timers = newTimerSet(t.clock)
	t.shoe = deck.NewShoe(cfg.Decks, t.rng)

	if t.estimator != nil {
		ctx, cancel := context.WithCancel(context.Background())
		t.stopFeed = cancel
		t.feed = odds.NewFeed(t.estimator, t.attachEstimate, t.logger)
		go t.feed.Run(ctx)
	}
	return t, nil
}

// ID returns the table identifier.
func (t *Table) ID() string {
	return t.id
}

// Config returns the table rules.
func (t *Table) Config() Config {
	return t.cfg
}

// Phase returns the current phase.
func (t *Table) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Round returns the number of rounds started.
func (t *Table) Round() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.round
}

// HouseBalance returns the house's net chips won from players.
func (t *Table) HouseBalance() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.house
}

// StopReason returns why the table stopped, if it has.
func (t *Table) StopReason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopReason
}

// Done is closed once the table reaches the stopped phase.
func (t *Table) Done() <-chan struct{} {
	return t.done
}

// OnStopped registers fn to run after the table has stopped.
func (t *Table) OnStopped(fn func(*Table)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStopped = append(t.onStopped, fn)
}

// Join seats a player, committing buyIn (normalised to the table's buy-in
// range) from their bankroll. A player joining mid-round sits out until the
// next round. If the table begins stopping while the buy-in is being
// committed, the chips are refunded and ErrTableStopping is returned.
func (t *Table) Join(ctx context.Context, playerID string, buyIn int) error {
	if buyIn <= 0 {
		return fmt.Errorf("buy-in %d: %w", buyIn, ErrInvalidAmount)
	}

	t.mu.Lock()
	if t.phase.Closed() {
		t.mu.Unlock()
		return ErrTableStopping
	}
	if t.seatLocked(playerID) != nil || t.joining[playerID] {
		t.mu.Unlock()
		return ErrAlreadySeated
	}
	if len(t.seats)+len(t.joining) >= t.cfg.MaxSeats {
		t.mu.Unlock()
		return ErrTableFull
	}
	t.joining[playerID] = true
	t.pending.Add(1)
	t.mu.Unlock()
	defer t.pending.Done()

	wallet, err := t.commitJoin(ctx, playerID, buyIn)

	t.mu.Lock()
	delete(t.joining, playerID)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if t.phase.Closed() {
		t.mu.Unlock()
		t.logger.Info("Join raced with stop, refunding", "player", playerID)
		if _, rerr := t.ledger.SyncStackToBankroll(ctx, wallet); rerr != nil {
			t.holdUnrefunded(playerID, wallet)
			return errors.Join(ErrTableStopping, rerr)
		}
		return ErrTableStopping
	}
	defer t.mu.Unlock()

	p, err := newPlayer(playerID, wallet, t.clock.Now())
	if err != nil {
		return err
	}
	p.sittingOut = t.phase != PhaseWaiting
	t.seats = append(t.seats, p)
	t.logger.Info("Player joined", "player", playerID, "stack", wallet.Stack(), "sitting_out", p.sittingOut)
	t.emit(Event{Type: EventPlayerJoined, Player: playerID, Amount: wallet.Stack(), Stack: wallet.Stack()})

	if t.phase == PhaseWaiting {
		t.maybeScheduleRoundLocked()
	}
	return nil
}

// holdUnrefunded seats a player whose buy-in could not be returned while the
// table was stopping, so that Stop keeps retrying the refund. It runs before
// the join releases t.pending.
func (t *Table) holdUnrefunded(playerID string, wallet *ledger.Wallet) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := newPlayer(playerID, wallet, t.clock.Now())
	if err != nil {
		t.logger.Error("Cannot hold unrefunded buy-in", "player", playerID, "stack", wallet.Stack(), "error", err)
		return
	}
	p.sittingOut = true
	p.leaving = true
	t.seats = append(t.seats, p)
	t.logger.Warn("Refund failed during stop, holding seat", "player", playerID, "stack", wallet.Stack())
}

func (t *Table) commitJoin(ctx context.Context, playerID string, buyIn int) (*ledger.Wallet, error) {
	wallet, err := t.ledger.Open(ctx, playerID)
	if err != nil {
		return nil, err
	}
	amount, err := ledger.NormalizeBuyIn(buyIn, t.cfg.MinBuyIn, t.cfg.MaxBuyIn, wallet.Bankroll())
	if err != nil {
		return nil, err
	}
	if err := t.ledger.CommitBuyIn(ctx, wallet, amount); err != nil {
		return nil, err
	}
	return wallet, nil
}

// Leave removes a player after refunding their stack to their bankroll. Bets
// placed during betting are returned first; wagers on hands already dealt
// are forfeited. If the refund cannot be persisted the player stays seated,
// sitting out, and the error wraps ErrPersistence.
func (t *Table) Leave(ctx context.Context, playerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase.Closed() {
		return ErrTableStopping
	}
	p := t.seatLocked(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}

	advance := false
	switch t.phase {
	case PhaseBetting:
		if p.bets.Total > 0 {
			refunded := p.voidRound()
			t.emit(Event{Type: EventBetRefunded, Player: p.id, Amount: refunded, Stack: p.wallet.Stack()})
		}
		delete(t.betting.placed, p.id)
	case PhasePlaying:
		if p.inRound {
			advance = t.forfeitLocked(p)
		}
	case PhaseRebuy:
		if p.rebuy != nil {
			t.timers.stop(rebuyTimerKey(p.id))
			p.rebuy = nil
		}
	}

	err := t.removePlayerLocked(ctx, p, "left")

	switch {
	case advance:
		t.enterTurnLocked()
	case t.phase == PhaseBetting && t.betting.complete(t):
		t.closeBettingLocked("all bets placed")
	case t.phase == PhaseRebuy && t.pendingRebuysLocked() == 0:
		t.afterRebuysLocked()
	}
	return err
}

// forfeitLocked removes a dealt player from the round, keeping their wagers
// with the house. It reports whether the turn was theirs and must move on.
func (t *Table) forfeitLocked(p *Player) bool {
	idx := -1
	for i, q := range t.order {
		if q == p {
			idx = i
			break
		}
	}
	wasTurn := idx == t.turn && p.isCurrentTurn
	forfeited := p.forfeitRound()
	t.house += forfeited
	t.emit(Event{Type: EventHandForfeited, Player: p.id, Amount: forfeited})

	if idx < 0 {
		return false
	}
	t.order = append(t.order[:idx], t.order[idx+1:]...)
	if idx < t.turn {
		t.turn--
	}
	if wasTurn {
		t.timers.stop(timerAction)
	}
	return wasTurn
}

// removePlayerLocked refunds the stack and unseats the player. On a failed
// refund the player stays seated and is flagged as leaving.
func (t *Table) removePlayerLocked(ctx context.Context, p *Player, reason string) error {
	refunded, err := t.ledger.SyncStackToBankroll(ctx, p.wallet)
	if err != nil {
		p.leaving = true
		p.sittingOut = true
		t.logger.Error("Refund failed, player kept seated", "player", p.id, "reason", reason, "error", err)
		return fmt.Errorf("remove %s: %w", p.id, err)
	}

	for i, q := range t.seats {
		if q == p {
			t.seats = append(t.seats[:i], t.seats[i+1:]...)
			break
		}
	}
	t.logger.Info("Player left", "player", p.id, "reason", reason, "refunded", refunded)
	t.emit(Event{Type: EventPlayerLeft, Player: p.id, Amount: refunded, Reason: reason})
	return nil
}

func (t *Table) seatLocked(playerID string) *Player {
	for _, p := range t.seats {
		if p.id == playerID {
			return p
		}
	}
	return nil
}

// activeSeatsLocked counts players able to take part in the next round.
func (t *Table) activeSeatsLocked() int {
	n := 0
	for _, p := range t.seats {
		if !p.leaving && p.rebuy == nil {
			n++
		}
	}
	return n
}

func (t *Table) setPhase(p Phase) {
	if t.phase == p {
		return
	}
	t.phase = p
	t.gen++
	t.timers.stopAll()
	t.emit(Event{Type: EventPhaseChanged})
}

func (t *Table) emit(e Event) {
	e.Table = t.id
	e.Round = t.round
	if e.Phase == "" {
		e.Phase = t.phase
	}
	if e.Cards != nil {
		e.Cards = append([]deck.Card(nil), e.Cards...)
	}
	e.Timestamp = t.clock.Now()
	t.notifier.Notify(e)
}

func (t *Table) acquire(playerID string) bool {
	_, busy := t.inFlight.LoadOrStore(playerID, struct{}{})
	return !busy
}

func (t *Table) release(playerID string) {
	t.inFlight.Delete(playerID)
}

// shoeDrawer draws for the rule engines, reshuffling the shoe (minus the
// cards on the table) once if it runs dry.
type shoeDrawer struct {
	t *Table
}

func (d shoeDrawer) Draw(n int) ([]deck.Card, error) {
	return d.t.drawLocked(n)
}

func (t *Table) drawLocked(n int) ([]deck.Card, error) {
	cards, err := t.shoe.Draw(n)
	if errors.Is(err, deck.ErrEmptyDeck) {
		t.shoe.ReshuffleExcluding(t.cardsInPlayLocked())
		t.logger.Info("Shoe ran dry, reshuffled", "remaining", t.shoe.Remaining())
		t.emit(Event{Type: EventShoeReshuffled, Reason: "empty", Amount: t.shoe.Remaining()})
		cards, err = t.shoe.Draw(n)
	}
	return cards, err
}

func (t *Table) cardsInPlayLocked() []deck.Card {
	var cards []deck.Card
	if t.dealer != nil {
		cards = append(cards, t.dealer.Hand.Cards...)
	}
	for _, p := range t.order {
		for _, h := range p.hands {
			cards = append(cards, h.Cards...)
		}
	}
	return cards
}
