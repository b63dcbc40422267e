// Package rng provides the story's shared pseudo-random generator. Its whole
// state is a seed string plus the number of draws made since seeding, so any
// point in its sequence can be recreated exactly.
package rng

import (
	"encoding/binary"
	"math/rand/v2"

	"golang.org/x/crypto/blake2b"
)

// MaxDraws bounds the draw counts Restore accepts from saved data.
const MaxDraws = 1 << 24

// Generator is a seeded, replayable random source.
type Generator struct {
	seed string
	iter int
	src  *rand.Rand
}

// New returns a generator seeded with seed.
func New(seed string) *Generator {
	g := &Generator{}
	g.Restore(seed, 0)
	return g
}

func source(seed string) *rand.Rand {
	sum := blake2b.Sum256([]byte(seed))
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(sum[:8]), binary.LittleEndian.Uint64(sum[8:16])))
}

// Float64 draws a number in [0, 1) and advances the draw counter.
func (g *Generator) Float64() float64 {
	g.iter++
	return g.src.Float64()
}

// IntN draws an integer in [0, n).
func (g *Generator) IntN(n int) int {
	return int(g.Float64() * float64(n))
}

// Snapshot returns the seed and the number of draws made so far.
func (g *Generator) Snapshot() (string, int) {
	return g.seed, g.iter
}

// Restore reseeds and replays iter draws.
func (g *Generator) Restore(seed string, iter int) {
	g.seed = seed
	g.iter = 0
	g.src = source(seed)
	for g.iter < iter {
		g.Float64()
	}
}

// Fork returns an independent generator positioned at the same point.
func (g *Generator) Fork() *Generator {
	f := &Generator{}
	f.Restore(g.seed, g.iter)
	return f
}
