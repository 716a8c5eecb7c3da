// Package game runs a multiplayer blackjack table.
//
// A Table moves through phases: waiting, betting, playing, dealer,
// settling, rebuy, stopping and stopped. Players join with a buy-in committed
// through a ledger.Ledger, place bets, act on their hands in seating order and
// are settled against the dealer. Players whose stack drops below the minimum
// bet may be offered a timed rebuy.
//
// # Concurrency
//
// All table state is guarded by a single mutex. Timers are quartz AfterFunc
// handles tagged with a generation counter; every phase transition and every
// new turn bumps the generation so a late callback is a no-op. A per-player
// in-flight flag is claimed before the table lock is taken, so a second
// concurrent action for the same player (including a timeout firing stand)
// is rejected with ErrActionInProgress rather than queued.
//
// Notifications are delivered synchronously while the table lock is held.
// Notifier implementations must not block and must not call back into the
// table.
//
// # Basic Usage
//
//	l := ledger.New(ledger.NewMemoryStore())
//	t, err := game.NewTable("t1", game.DefaultConfig(), l,
//		game.WithLogger(logger),
//		game.WithNotifier(sink),
//	)
//	_ = t.Join(ctx, "alice", 500)
//	_ = t.PlaceBet("alice", 50)
//	_ = t.Act("alice", blackjack.Hit)
//	_ = t.Stop(ctx, game.StopReasonShutdown)
package game
