// Package randutil centralises how rooms, decks and AI opponents obtain
// their random sources so that a single server seed reproduces every game.
package randutil

import (
	rand "math/rand/v2"
	"sync"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from seed.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// NewFromTime returns a generator seeded from the wall clock along with the
// seed used, so callers can log it for replay.
func NewFromTime() (*rand.Rand, int64) {
	seed := time.Now().UnixNano()
	return New(seed), seed
}

// Source hands out independent child generators from one parent seed. It
// is safe for concurrent use; each child must stay on one goroutine.
type Source struct {
	mu     sync.Mutex
	parent *rand.Rand
}

// NewSource wraps a parent generator.
func NewSource(parent *rand.Rand) *Source {
	return &Source{parent: parent}
}

// Child derives a new generator from the next parent value.
func (s *Source) Child() *rand.Rand {
	s.mu.Lock()
	seed := s.parent.Int64()
	s.mu.Unlock()
	return New(seed)
}

// IntN draws from the parent directly.
func (s *Source) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parent.IntN(n)
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
