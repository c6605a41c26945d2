// Package rng provides the weighted-selection primitive routers use
// to sample an outgoing edge each tick. The PRNG source is injected
// rather than global, mirroring how engine.Engine takes its
// context/time dependencies as constructor arguments instead of
// reaching for package-level state, so tests can pin it for
// determinism (spec.md §5).
package rng

import "math/rand"

// Source is the minimal PRNG surface flowsim depends on. *rand.Rand
// satisfies it directly; tests may supply a deterministic
// implementation.
type Source interface {
	Float64() float64
}

// New wraps a standard library PRNG seeded deterministically, for
// callers that don't need to inject their own Source.
func New(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// WeightedSelect draws an index in [0, len(weights)) with probability
// proportional to weights[i], using prefix sums per spec.md §4.3. It
// returns (-1, false) when there are no candidates or all weights are
// zero (or negative, which is treated as zero).
func WeightedSelect(src Source, weights []float64) (int, bool) {
	total := 0.0
	prefix := make([]float64, len(weights))
	for i, w := range weights {
		if w < 0 {
			w = 0
		}
		total += w
		prefix[i] = total
	}
	if len(weights) == 0 || total <= 0 {
		return -1, false
	}

	u := src.Float64() * total
	for i, p := range prefix {
		if p > u {
			return i, true
		}
	}
	// Tie-break: fall through to the last non-zero weight, guarding
	// against floating point rounding putting u exactly at the total.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i, true
		}
	}
	return -1, false
}
