// Package randutil builds reproducible random sources for shoes, simulations
// and odds workers.
package randutil

import (
	rand "math/rand/v2"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded from seed. Equal seeds produce equal
// sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(splitmix(u), splitmix(u+goldenRatio64)))
}

// Derive returns the seed for an independent stream of base, such as one
// odds worker or one simulated table. Streams of the same base never collide
// for distinct indexes.
func Derive(base int64, stream int) int64 {
	return int64(splitmix(uint64(base) ^ splitmix(uint64(stream)+goldenRatio64)))
}

// Seed returns base, or a clock-derived seed when base is zero.
func Seed(base int64) int64 {
	if base != 0 {
		return base
	}
	return int64(splitmix(uint64(time.Now().UnixNano())))
}

func splitmix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
