// Package rng defines the single randomness source a battle session draws
// from. Every consumer (expression rand(), deck reshuffles, random plays)
// shares one Source, so a seeded session replays identically.
package rng

import "math/rand"

// Source supplies all random draws for one session.
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// New creates a deterministic seeded source.
func New(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// Scripted is a test source replaying fixed sequences. Exhausted sequences
// return zero, keeping tests deterministic even when over-drawn.
type Scripted struct {
	Floats []float64
	Ints   []int
	fi, ii int
}

func (s *Scripted) Float64() float64 {
	if s.fi >= len(s.Floats) {
		return 0
	}
	v := s.Floats[s.fi]
	s.fi++
	return v
}

func (s *Scripted) Intn(n int) int {
	if s.ii >= len(s.Ints) {
		return 0
	}
	v := s.Ints[s.ii]
	s.ii++
	if n > 0 {
		v %= n
	}
	return v
}
