package odds

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// Feed runs an Estimator against the most recent snapshot only. Publishing
// never blocks; snapshots that arrive while an estimate is running replace
// one another and only the newest is computed next.
type Feed struct {
	estimator Estimator
	deliver   func(Estimate)
	logger    *log.Logger

	mu     sync.Mutex
	latest *Snapshot
	wake   chan struct{}
}

// NewFeed creates a feed that hands finished estimates to deliver.
func NewFeed(estimator Estimator, deliver func(Estimate), logger *log.Logger) *Feed {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Feed{
		estimator: estimator,
		deliver:   deliver,
		logger:    logger.WithPrefix("odds"),
		wake:      make(chan struct{}, 1),
	}
}

// Publish records snap as the latest state.
func (f *Feed) Publish(snap Snapshot) {
	f.mu.Lock()
	f.latest = &snap
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Run computes estimates until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.wake:
		}

		f.mu.Lock()
		snap := f.latest
		f.latest = nil
		f.mu.Unlock()
		if snap == nil {
			continue
		}

		est, err := f.estimator.Estimate(ctx, *snap)
		if err != nil {
			if ctx.Err() == nil {
				f.logger.Warn("Estimate failed", "table", snap.Table, "version", snap.Version, "error", err)
			}
			continue
		}
		f.deliver(est)
	}
}
