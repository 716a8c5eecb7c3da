// Package statistics accumulates per-round results from simulations and
// summarises them in units of the table minimum bet.
package statistics

import (
	"fmt"
	"math"
	"sort"
)

// RoundResult is one player's outcome for one round.
type RoundResult struct {
	Net       int  // chips won or lost, insurance included
	Wagered   int  // total chips put at risk
	Hands     int  // hands played after splits
	Wins      int  // hands won
	Pushes    int  // hands pushed
	Losses    int  // hands lost
	Blackjack bool // dealt a natural
	Doubled   bool // doubled at least one hand
	Split     bool // split at least once
	Insured   bool // bought insurance
}

// Statistics tracks a player's simulation results.
type Statistics struct {
	Unit   int // chips per unit, usually the table minimum bet
	Rounds int
	Sum    float64
	Sum2   float64   // sum of squares for the variance
	Values []float64 // per-round units for the median and percentiles

	Net     int
	Wagered int

	Hands      int
	Wins       int
	Pushes     int
	Losses     int
	Blackjacks int
	Doubles    int
	Splits     int
	Insured    int

	BiggestWin  int
	BiggestLoss int
}

// New returns statistics measured in units of unit chips.
func New(unit int) *Statistics {
	if unit <= 0 {
		unit = 1
	}
	return &Statistics{Unit: unit}
}

// Add incorporates a round result.
func (s *Statistics) Add(r RoundResult) {
	if s.Unit <= 0 {
		s.Unit = 1
	}
	units := float64(r.Net) / float64(s.Unit)
	s.Rounds++
	s.Sum += units
	s.Sum2 += units * units
	s.Values = append(s.Values, units)

	s.Net += r.Net
	s.Wagered += r.Wagered
	s.Hands += r.Hands
	s.Wins += r.Wins
	s.Pushes += r.Pushes
	s.Losses += r.Losses
	if r.Blackjack {
		s.Blackjacks++
	}
	if r.Doubled {
		s.Doubles++
	}
	if r.Split {
		s.Splits++
	}
	if r.Insured {
		s.Insured++
	}
	s.BiggestWin = max(s.BiggestWin, r.Net)
	s.BiggestLoss = min(s.BiggestLoss, r.Net)
}

// Mean returns the mean result in units per round.
func (s *Statistics) Mean() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.Sum / float64(s.Rounds)
}

// Variance returns the sample variance of the per-round results.
func (s *Statistics) Variance() float64 {
	if s.Rounds < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.Sum2 - float64(s.Rounds)*mean*mean) / float64(s.Rounds-1)
}

func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean.
func (s *Statistics) StdError() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Rounds))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean.
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Edge returns the player's return per chip wagered. Negative values are the
// house edge.
func (s *Statistics) Edge() float64 {
	if s.Wagered == 0 {
		return 0
	}
	return float64(s.Net) / float64(s.Wagered)
}

// WinRate returns the share of decided hands that were won.
func (s *Statistics) WinRate() float64 {
	decided := s.Wins + s.Losses
	if decided == 0 {
		return 0
	}
	return float64(s.Wins) / float64(decided)
}

// Median returns the median result in units.
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the value at p (0.0 to 1.0), interpolating between
// neighbouring results.
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Merge folds other into s. Both must share a unit.
func (s *Statistics) Merge(other *Statistics) error {
	if s.Unit != other.Unit {
		return fmt.Errorf("unit mismatch: %d vs %d", s.Unit, other.Unit)
	}
	s.Rounds += other.Rounds
	s.Sum += other.Sum
	s.Sum2 += other.Sum2
	s.Values = append(s.Values, other.Values...)
	s.Net += other.Net
	s.Wagered += other.Wagered
	s.Hands += other.Hands
	s.Wins += other.Wins
	s.Pushes += other.Pushes
	s.Losses += other.Losses
	s.Blackjacks += other.Blackjacks
	s.Doubles += other.Doubles
	s.Splits += other.Splits
	s.Insured += other.Insured
	s.BiggestWin = max(s.BiggestWin, other.BiggestWin)
	s.BiggestLoss = min(s.BiggestLoss, other.BiggestLoss)
	return nil
}

// Validate checks the accumulated counters agree with each other.
func (s *Statistics) Validate() error {
	if s.Rounds <= 0 {
		return fmt.Errorf("invalid rounds count: %d", s.Rounds)
	}
	if len(s.Values) != s.Rounds {
		return fmt.Errorf("values length (%d) does not match rounds (%d)", len(s.Values), s.Rounds)
	}
	if got := s.Wins + s.Pushes + s.Losses; got != s.Hands {
		return fmt.Errorf("hand outcomes (%d) do not match hands played (%d)", got, s.Hands)
	}
	if math.Abs(s.Sum*float64(s.Unit)-float64(s.Net)) > 1e-6*float64(s.Rounds) {
		return fmt.Errorf("ledger mismatch: units=%.6f net=%d unit=%d", s.Sum, s.Net, s.Unit)
	}
	if s.Blackjacks > s.Rounds {
		return fmt.Errorf("blackjacks (%d) exceed rounds (%d)", s.Blackjacks, s.Rounds)
	}
	return nil
}
