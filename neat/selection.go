package neat

import (
	"fmt"
	"math/rand"
)

// Weighted pairs a payload with its selection weight.
type Weighted[T any] struct {
	Weight float64
	Value  T
}

// RouletteWheel picks one value with probability proportional to its weight.
// Entries with a non-positive weight are never chosen. It fails with
// ErrNoSelectableParent when no entry has a positive weight.
func RouletteWheel[T any](rng *rand.Rand, choices []Weighted[T]) (T, error) {
	var zero T
	total := 0.0
	last := -1
	for i, c := range choices {
		if c.Weight > 0 {
			total += c.Weight
			last = i
		}
	}
	if last < 0 {
		return zero, fmt.Errorf("roulette wheel over %d choices: %w", len(choices), ErrNoSelectableParent)
	}

	r := rng.Float64() * total
	cumulative := 0.0
	for _, c := range choices {
		if c.Weight <= 0 {
			continue
		}
		cumulative += c.Weight
		if r < cumulative {
			return c.Value, nil
		}
	}
	// Floating point slack can leave r just above the final sum.
	return choices[last].Value, nil
}
