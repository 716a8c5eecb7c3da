package odds

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedLatestWins(t *testing.T) {
	release := make(chan struct{})
	started := make(chan uint64, 10)
	est := EstimatorFunc(func(ctx context.Context, snap Snapshot) (Estimate, error) {
		started <- snap.Version
		if snap.Version == 1 {
			<-release
		}
		return Estimate{Version: snap.Version}, nil
	})

	var mu sync.Mutex
	var delivered []uint64
	feed := NewFeed(est, func(e Estimate) {
		mu.Lock()
		delivered = append(delivered, e.Version)
		mu.Unlock()
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	feed.Publish(Snapshot{Version: 1})
	require.Equal(t, uint64(1), <-started)

	// while version 1 is computing, 2..4 collapse into the newest
	feed.Publish(Snapshot{Version: 2})
	feed.Publish(Snapshot{Version: 3})
	feed.Publish(Snapshot{Version: 4})
	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []uint64{1, 4}, delivered)
	mu.Unlock()
}

func TestFeedPublishDoesNotBlock(t *testing.T) {
	feed := NewFeed(EstimatorFunc(func(ctx context.Context, snap Snapshot) (Estimate, error) {
		return Estimate{}, nil
	}), func(Estimate) {}, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			feed.Publish(Snapshot{Version: uint64(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked without a running feed")
	}
}
