package game

import "math"

// ScoreFunc converts a player's gross winnings for a round into reward points.
type ScoreFunc func(gross int) int

// LogScore awards floor(10 × log10(1 + gross)) points.
func LogScore(gross int) int {
	if gross <= 0 {
		return 0
	}
	return int(math.Floor(10 * math.Log10(1+float64(gross))))
}
