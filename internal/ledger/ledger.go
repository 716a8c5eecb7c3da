package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// DefaultStartingBankroll is credited to accounts seen for the first time.
const DefaultStartingBankroll = 10000

// Ledger moves chips between bankrolls and table stacks and persists every
// movement through a Store.
type Ledger struct {
	store            Store
	logger           *log.Logger
	clock            quartz.Clock
	startingBankroll int
	saveTimeout      time.Duration
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger.WithPrefix("ledger")
	}
}

// WithClock sets the clock used for account timestamps.
func WithClock(clock quartz.Clock) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithStartingBankroll sets the bankroll given to new accounts.
func WithStartingBankroll(amount int) Option {
	return func(l *Ledger) {
		l.startingBankroll = amount
	}
}

// WithSaveTimeout bounds each store write.
func WithSaveTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.saveTimeout = d
	}
}

// New creates a ledger over store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:            store,
		logger:           log.New(io.Discard),
		clock:            quartz.NewReal(),
		startingBankroll: DefaultStartingBankroll,
		saveTimeout:      5 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Store returns the underlying store.
func (l *Ledger) Store() Store {
	return l.store
}

// Open loads the account for id, creating it with the starting bankroll on
// first sight, and returns a wallet with an empty stack.
func (l *Ledger) Open(ctx context.Context, id string) (*Wallet, error) {
	acct, err := l.Account(ctx, id)
	if err != nil {
		return nil, err
	}
	w := NewWallet(id, acct.Bankroll)
	w.rebuys = acct.Rebuys
	return w, nil
}

// Account returns the stored account, creating it if missing.
func (l *Ledger) Account(ctx context.Context, id string) (Account, error) {
	if id == "" {
		return Account{}, fmt.Errorf("empty account id")
	}
	acct, err := l.store.Load(ctx, id)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Account{}, fmt.Errorf("load account %s: %w", id, err)
	}

	acct = Account{ID: id, Bankroll: l.startingBankroll}
	if err := l.save(ctx, acct); err != nil {
		return Account{}, err
	}
	l.logger.Info("Account created", "account", id, "bankroll", acct.Bankroll)
	return acct, nil
}

// Refresh reloads the wallet's bankroll from the store, picking up grants and
// buy-ins made elsewhere since the wallet was opened.
func (l *Ledger) Refresh(ctx context.Context, w *Wallet) error {
	acct, err := l.store.Load(ctx, w.id)
	if err != nil {
		return fmt.Errorf("load account %s: %w", w.id, err)
	}
	w.mu.Lock()
	w.bankroll = acct.Bankroll
	w.rebuys = acct.Rebuys
	w.mu.Unlock()
	return nil
}

// Grant adds amount to an account bankroll. It is safe to call while the
// account is seated at a table.
func (l *Ledger) Grant(ctx context.Context, id string, amount int) (Account, error) {
	if amount <= 0 {
		return Account{}, ErrInvalidAmount
	}
	if _, err := l.Account(ctx, id); err != nil {
		return Account{}, err
	}
	acct, err := l.adjust(ctx, id, Delta{Bankroll: amount})
	if err != nil {
		return Account{}, err
	}
	l.logger.Info("Bankroll granted", "account", id, "amount", amount, "bankroll", acct.Bankroll)
	return acct, nil
}

// CommitBuyIn debits amount from the stored bankroll and moves the chips onto
// the stack. If the debit cannot be persisted nothing changes and
// ErrPersistence is returned.
func (l *Ledger) CommitBuyIn(ctx context.Context, w *Wallet, amount int) error {
	return l.commit(ctx, w, amount, 0)
}

// CommitRebuy commits a buy-in and records it against the account's rebuy
// count.
func (l *Ledger) CommitRebuy(ctx context.Context, w *Wallet, amount int) error {
	return l.commit(ctx, w, amount, 1)
}

func (l *Ledger) commit(ctx context.Context, w *Wallet, amount, rebuys int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.bankroll -= amount
	w.pendingBuyIn += amount

	acct, err := l.adjust(ctx, w.id, Delta{Bankroll: -amount, Stack: amount, Rebuys: rebuys})
	if err != nil {
		w.pendingBuyIn -= amount
		w.bankroll += amount
		l.logger.Warn("Buy-in rolled back", "account", w.id, "amount", amount, "error", err)
		return err
	}

	w.bankroll = acct.Bankroll
	w.rebuys = acct.Rebuys
	w.pendingBuyIn -= amount
	w.stack += amount
	w.committed += amount
	l.logger.Debug("Buy-in committed", "account", w.id, "amount", amount, "stack", w.stack, "bankroll", w.bankroll)
	return nil
}

// SyncStackToBankroll folds the stack back into the bankroll and persists it.
// On a failed save the stack is restored and ErrPersistence is returned. The
// refunded amount is returned on success.
func (l *Ledger) SyncStackToBankroll(ctx context.Context, w *Wallet) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	amount := w.stack
	w.bankroll += amount
	w.stack = 0

	acct, err := l.adjust(ctx, w.id, Delta{Bankroll: amount, Stack: -w.committed})
	if err != nil {
		w.stack = amount
		w.bankroll -= amount
		l.logger.Warn("Refund rolled back", "account", w.id, "amount", amount, "error", err)
		return 0, err
	}
	w.bankroll = acct.Bankroll
	w.committed = 0
	l.logger.Debug("Stack refunded", "account", w.id, "amount", amount, "bankroll", w.bankroll)
	return amount, nil
}

func (l *Ledger) save(ctx context.Context, acct Account) error {
	acct.UpdatedAt = l.clock.Now().UTC()
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()
	if err := l.store.Save(ctx, acct); err != nil {
		return fmt.Errorf("%w: save account %s: %v", ErrPersistence, acct.ID, err)
	}
	return nil
}

func (l *Ledger) adjust(ctx context.Context, id string, d Delta) (Account, error) {
	d.At = l.clock.Now().UTC()
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()
	acct, err := l.store.Adjust(ctx, id, d)
	switch {
	case err == nil:
		return acct, nil
	case errors.Is(err, ErrInsufficientBankroll):
		return Account{}, fmt.Errorf("account %s: %w", id, err)
	default:
		return Account{}, fmt.Errorf("%w: adjust account %s: %w", ErrPersistence, id, err)
	}
}

func (l *Ledger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.saveTimeout > 0 {
		return context.WithTimeout(ctx, l.saveTimeout)
	}
	return ctx, func() {}
}

// NormalizeBuyIn clamps requested into [min, max], lowering it to the
// bankroll when the bankroll sits between the two. It fails with
// ErrInsufficientBankroll when the bankroll cannot cover min.
func NormalizeBuyIn(requested, min, max, bankroll int) (int, error) {
	if bankroll < min {
		return 0, fmt.Errorf("bankroll %d below minimum buy-in %d: %w", bankroll, min, ErrInsufficientBankroll)
	}
	amount := requested
	if amount < min {
		amount = min
	}
	if max > 0 && amount > max {
		amount = max
	}
	if amount > bankroll {
		amount = bankroll
	}
	return amount, nil
}
