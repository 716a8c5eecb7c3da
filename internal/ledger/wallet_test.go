package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithdrawDepositRoundTrip(t *testing.T) {
	w := NewWallet("alice", 0)
	w.Deposit(500)

	for _, amount := range []int{0, 1, 250, 500} {
		before := w.Stack()
		assert.True(t, w.Withdraw(amount))
		w.Deposit(amount)
		assert.Equal(t, before, w.Stack())
	}
}

func TestWithdrawNeverNegative(t *testing.T) {
	w := NewWallet("alice", 0)
	w.Deposit(100)

	assert.False(t, w.Withdraw(101))
	assert.False(t, w.Withdraw(-5))
	assert.Equal(t, 100, w.Stack())
	assert.True(t, w.CanAfford(100))
	assert.False(t, w.CanAfford(101))

	w.Deposit(-50)
	assert.Equal(t, 100, w.Stack())
}

func TestWithdrawConcurrent(t *testing.T) {
	w := NewWallet("alice", 0)
	w.Deposit(1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w.Withdraw(30) {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 33, succeeded)
	assert.Equal(t, 10, w.Stack())
}
