// Package sampling provides the deterministic random source and the three
// sampling primitives the synthesizers are built on. Every draw is a pure
// function of the seed and the call sequence, so a generated panel can be
// reproduced byte for byte from its seed.
package sampling

import "math"

const (
	lcgModulus    = 2147483647 // 2^31 - 1
	lcgMultiplier = 16807
)

// Rng is a Lehmer linear-congruential generator. Instances are cheap and
// must be threaded explicitly through every sampling call; there is no
// package-level random state.
type Rng struct {
	state int64
}

// New returns an Rng seeded from the given integer. The seed is normalized
// into [1, modulus-1] so that zero and negative seeds still produce a
// non-degenerate stream.
func New(seed int64) *Rng {
	s := seed % (lcgModulus - 1)
	if s <= 0 {
		s += lcgModulus - 1
	}
	return &Rng{state: s}
}

// Next returns the next deviate in [0, 1).
func (r *Rng) Next() float64 {
	r.state = (r.state * lcgMultiplier) % lcgModulus
	return float64(r.state-1) / float64(lcgModulus-1)
}

// Intn returns a uniform integer in [0, n). n must be positive.
func (r *Rng) Intn(n int) int {
	return int(r.Next() * float64(n))
}

// WeightedChoice returns the index of one item drawn with probability
// proportional to its weight. Weights need not be normalized. When every
// weight is zero the pick degrades to uniform instead of dividing by zero.
// An empty weight slice returns -1.
func WeightedChoice(weights []float64, rng *Rng) int {
	if len(weights) == 0 {
		return -1
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return rng.Intn(len(weights))
	}
	target := rng.Next() * total
	for i, w := range weights {
		target -= w
		if target <= 0 {
			return i
		}
	}
	return len(weights) - 1
}

// Shuffle returns a Fisher-Yates permutation of items. The input slice is
// never mutated.
func Shuffle[T any](items []T, rng *Rng) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// gaussianEpsilon floors the uniform input of the Box-Muller transform so
// the log term stays finite.
const gaussianEpsilon = 1e-4

// Gaussian returns a normally distributed deviate via the Box-Muller
// transform.
func Gaussian(mean, stdDev float64, rng *Rng) float64 {
	u1 := rng.Next()
	if u1 < gaussianEpsilon {
		u1 = gaussianEpsilon
	}
	u2 := rng.Next()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + stdDev*z
}
