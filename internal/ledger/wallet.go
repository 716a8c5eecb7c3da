package ledger

import "sync"

// Wallet holds one player's chips: the stack in play at a table, a buy-in in
// the middle of being committed, and the persisted bankroll. All methods are
// safe for concurrent use.
type Wallet struct {
	mu           sync.Mutex
	id           string
	stack        int
	pendingBuyIn int
	bankroll     int
	rebuys       int
	// committed is the total bought in through this wallet and not yet
	// returned to the bankroll.
	committed int
}

// NewWallet creates a wallet with the given bankroll and an empty stack.
func NewWallet(id string, bankroll int) *Wallet {
	return &Wallet{id: id, bankroll: bankroll}
}

// ID returns the account identifier.
func (w *Wallet) ID() string {
	return w.id
}

// Stack returns the chips currently in play.
func (w *Wallet) Stack() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stack
}

// Bankroll returns the balance held outside the table.
func (w *Wallet) Bankroll() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bankroll
}

// PendingBuyIn returns chips debited from the bankroll that have not yet
// reached the stack.
func (w *Wallet) PendingBuyIn() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pendingBuyIn
}

// Total returns every chip owned through this wallet.
func (w *Wallet) Total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stack + w.pendingBuyIn + w.bankroll
}

// CanAfford reports whether the stack covers amount.
func (w *Wallet) CanAfford(amount int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return amount >= 0 && w.stack >= amount
}

// Withdraw takes amount from the stack. It returns false and changes nothing
// when the stack is too small or the amount is negative.
func (w *Wallet) Withdraw(amount int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if amount < 0 || w.stack < amount {
		return false
	}
	w.stack -= amount
	return true
}

// Deposit adds amount to the stack. Negative amounts are ignored.
func (w *Wallet) Deposit(amount int) {
	if amount <= 0 {
		return
	}
	w.mu.Lock()
	w.stack += amount
	w.mu.Unlock()
}
