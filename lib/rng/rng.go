/*package rng contains a small, deterministic random number generator used to
generate initial conditions and particle displacements. Determinism matters
more here than quality: every rank of a run must be able to reproduce the same
stream from the same seed.*/
package rng

import (
	"math"
)

var (
	xorshiftMaxUint = float64(math.MaxUint32)
)

// RNG is an xorshift random number generator. It is not thread safe.
type RNG struct {
	w, x, y, z uint32
}

// New creates an RNG with a given seed.
func New(seed uint64) *RNG {
	gen := &RNG{uint32(seed), 123456789, 362436069, 521288629}
	// Mix the high bits of the seed in too, so that seeds which only differ
	// above bit 32 give different streams.
	gen.x ^= uint32(seed >> 32)
	return gen
}

func (gen *RNG) next() uint32 {
	t := gen.x ^ (gen.x << 11)
	gen.x, gen.y, gen.z = gen.y, gen.z, gen.w
	gen.w = gen.w ^ (gen.w >> 19) ^ (t ^ (t >> 8))
	return gen.w
}

// Uniform generates a single random number in the range [0, 1)
func (gen *RNG) Uniform() float64 {
	for {
		res := float64(math.MaxUint32-gen.next()) / xorshiftMaxUint
		if res != 1.0 {
			return res
		}
	}
}

// UniformIn generates a single random number in the range [lo, hi).
func (gen *RNG) UniformIn(lo, hi float64) float64 {
	return lo + (hi-lo)*gen.Uniform()
}

// UniformSequence generates one random number in the range [0, 1) for each
// element of the array target and writes them to that array.
func (gen *RNG) UniformSequence(target []float64) {
	for i := range target {
		target[i] = gen.Uniform()
	}
}

// Intn returns a random integer in [0, n). n must be positive.
func (gen *RNG) Intn(n int) int {
	if n <= 0 {
		panic("Internal error: RNG.Intn called with non-positive n.")
	}
	return int(gen.Uniform() * float64(n))
}

// Displacement returns a random vector with each component uniform in
// [-max, max).
func (gen *RNG) Displacement(max float64) [3]float64 {
	return [3]float64{
		gen.UniformIn(-max, max),
		gen.UniformIn(-max, max),
		gen.UniformIn(-max, max),
	}
}
