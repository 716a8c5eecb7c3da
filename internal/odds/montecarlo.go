package odds

import (
	"context"
	"runtime"
	"sync"

	"github.com/lox/blackjack/internal/blackjack"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/randutil"
	"golang.org/x/sync/errgroup"
)

// MonteCarlo estimates outcomes by completing the dealer hand from the
// unseen cards many times over.
type MonteCarlo struct {
	Trials  int
	Workers int
	Seed    int64
}

// NewMonteCarlo returns an estimator running trials simulations per snapshot.
func NewMonteCarlo(trials int, seed int64) *MonteCarlo {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return &MonteCarlo{Trials: trials, Workers: workers, Seed: seed}
}

// outcomeCounts holds win/push/lose tallies for every hand, flattened.
type outcomeCounts [][3]int

func (m *MonteCarlo) Estimate(ctx context.Context, snap Snapshot) (Estimate, error) {
	est := Estimate{Table: snap.Table, Version: snap.Version, Players: make(map[string][]HandOdds)}

	var hands []*blackjack.Hand
	for _, p := range snap.Players {
		for _, hs := range p.Hands {
			h := blackjack.NewHand(hs.Bet, hs.Cards...)
			blackjack.Evaluate(h, blackjack.EvalContext{PlayerHand: true, HandCount: len(p.Hands)})
			hands = append(hands, h)
		}
	}
	if len(hands) == 0 || len(snap.Dealer) == 0 {
		return est, nil
	}

	trials := m.Trials
	if trials <= 0 {
		trials = 1000
	}
	workers := m.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > trials {
		workers = trials
	}

	total := make(outcomeCounts, len(hands))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	perWorker := trials / workers
	remainder := trials % workers
	for w := 0; w < workers; w++ {
		n := perWorker
		if w < remainder {
			n++
		}
		seed := randutil.Derive(m.Seed+int64(snap.Version), w)
		g.Go(func() error {
			counts, err := simulate(ctx, snap, hands, n, seed)
			if err != nil {
				return err
			}
			mu.Lock()
			for i := range counts {
				for k := 0; k < 3; k++ {
					total[i][k] += counts[i][k]
				}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Estimate{}, err
	}

	i := 0
	for _, p := range snap.Players {
		odds := make([]HandOdds, len(p.Hands))
		for j := range p.Hands {
			c := total[i]
			n := float64(c[0] + c[1] + c[2])
			if n > 0 {
				odds[j] = HandOdds{Win: float64(c[0]) / n, Push: float64(c[1]) / n, Lose: float64(c[2]) / n}
			}
			i++
		}
		est.Players[p.ID] = odds
	}
	return est, nil
}

func simulate(ctx context.Context, snap Snapshot, hands []*blackjack.Hand, trials int, seed int64) (outcomeCounts, error) {
	rng := randutil.New(seed)
	pool := append([]deck.Card(nil), snap.Unseen...)
	counts := make(outcomeCounts, len(hands))
	dealer := &blackjack.Hand{}

	for trial := 0; trial < trials; trial++ {
		if trial%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		*dealer = blackjack.Hand{Cards: append(dealer.Cards[:0], snap.Dealer...)}
		drawn := 0
		draw := func() bool {
			if drawn >= len(pool) {
				return false
			}
			j := drawn + rng.IntN(len(pool)-drawn)
			pool[drawn], pool[j] = pool[j], pool[drawn]
			dealer.Cards = append(dealer.Cards, pool[drawn])
			drawn++
			return true
		}

		if !snap.DealerRevealed && len(dealer.Cards) < 2 && !draw() {
			continue
		}
		blackjack.Evaluate(dealer, blackjack.DealerContext)
		for dealer.Value < blackjack.DealerStand && draw() {
			blackjack.Evaluate(dealer, blackjack.DealerContext)
		}

		for i, h := range hands {
			switch result, _ := blackjack.Compare(h, dealer); result {
			case blackjack.ResultWin:
				counts[i][0]++
			case blackjack.ResultPush:
				counts[i][1]++
			default:
				counts[i][2]++
			}
		}
	}
	return counts, nil
}
