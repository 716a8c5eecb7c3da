package game

import (
	"time"

	"github.com/coder/quartz"
)

const (
	timerBetting = "betting"
	timerAction  = "action"
	timerRound   = "round"
)

// actionRetryDelay re-arms a timeout that fired while the player's own
// action was in flight.
const actionRetryDelay = time.Second

// timerSet owns the table's pending timers by key. Callers hold the table
// lock.
type timerSet struct {
	clock  quartz.Clock
	timers map[string]*quartz.Timer
}

func newTimerSet(clock quartz.Clock) *timerSet {
	return &timerSet{clock: clock, timers: make(map[string]*quartz.Timer)}
}

func (ts *timerSet) start(key string, d time.Duration, fn func()) {
	ts.stop(key)
	ts.timers[key] = ts.clock.AfterFunc(d, fn)
}

func (ts *timerSet) stop(key string) {
	if timer, ok := ts.timers[key]; ok {
		timer.Stop()
		delete(ts.timers, key)
	}
}

func (ts *timerSet) has(key string) bool {
	_, ok := ts.timers[key]
	return ok
}

func (ts *timerSet) stopAll() {
	for key, timer := range ts.timers {
		timer.Stop()
		delete(ts.timers, key)
	}
}

func rebuyTimerKey(playerID string) string {
	return "rebuy:" + playerID
}

// afterFunc arms a timer whose callback runs under the table lock only if no
// phase transition or new turn happened in between.
func (t *Table) afterFunc(key string, d time.Duration, fn func()) {
	gen := t.gen
	t.timers.start(key, d, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.gen != gen {
			return
		}
		delete(t.timers.timers, key)
		fn()
	})
}
