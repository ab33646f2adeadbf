package signals

import (
	"math/rand/v2"
	"sync"
)

// RandomSource feeds every non-deterministic choice the extractor makes: the
// generated case reference and synthesized payslip amounts.
type RandomSource interface {
	IntN(n int) int
	Float64() float64
}

// NewRandomSource returns a seeded source safe for concurrent use.
func NewRandomSource(seed uint64) RandomSource {
	return &lockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

type globalSource struct{}

func (globalSource) IntN(n int) int   { return rand.IntN(n) }
func (globalSource) Float64() float64 { return rand.Float64() }
