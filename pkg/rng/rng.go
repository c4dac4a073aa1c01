package rng

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	mathrand "math/rand/v2"
)

// Source is a seedable, re-seedable uniform source. It is not
// goroutine-safe: callers sharing a Source across goroutines must
// serialize access themselves, same as the single-threaded engine it
// stands in for.
type Source struct {
	r    *mathrand.Rand
	seed uint64
}

// NewSource returns a Source seeded with s.
func NewSource(s uint64) *Source {
	src := &Source{}
	src.Seed(s)
	return src
}

// Default returns a Source seeded from non-deterministic entropy, for
// callers that do not need a reproducible stream.
func Default() *Source {
	return NewSource(seedFromEntropy())
}

// Seed reseeds the source deterministically. Two sources seeded with
// the same value and driven through identical call sequences produce
// identical output sequences.
func (s *Source) Seed(seed uint64) {
	s.seed = seed
	s.r = mathrand.New(mathrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Randomize reseeds the source from a non-deterministic entropy source
// and returns the seed chosen, so the caller can log it for later
// reproduction.
func (s *Source) Randomize() uint64 {
	seed := seedFromEntropy()
	s.Seed(seed)
	return seed
}

// UniformInt returns a pseudo-random int in [a, b], inclusive of both
// endpoints. Panics if b < a.
func (s *Source) UniformInt(a, b int) int {
	if b < a {
		panic("rng: UniformInt: b < a")
	}
	span := uint64(b-a) + 1
	return a + int(s.r.Uint64N(span))
}

// UniformReal returns a pseudo-random float64 in [a, b), half-open.
// Panics if b < a.
func (s *Source) UniformReal(a, b float64) float64 {
	if b < a {
		panic("rng: UniformReal: b < a")
	}
	return a + s.r.Float64()*(b-a)
}

// seedFromEntropy draws a seed from crypto/rand. It is only called
// when seeding, outside the hot ingestion path.
func seedFromEntropy() uint64 {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		// crypto/rand failing to deliver bytes means the host entropy
		// source itself is broken; there is nothing useful a caller
		// could do with a partial seed.
		panic("rng: entropy source failed: " + err.Error())
	}
	return binary.LittleEndian.Uint64(buf[:])
}
