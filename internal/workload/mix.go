// Package workload drives a segalloc allocator with a synthetic mix of
// allocate/release traffic and reports latency and success-rate metrics for
// the run, per spec.md §8's testable properties.
package workload

import "math/rand"

// SizeClass is one weighted band of a Mix.
type SizeClass struct {
	// Weight is this class's share of total requests; weights across a Mix
	// need not sum to 1 -- they are normalized at draw time.
	Weight   float64
	MinBytes int
	MaxBytes int
}

// Mix is an ordered set of weighted size classes a Generator draws from.
type Mix struct {
	Classes []SizeClass
}

// DefaultMix matches spec.md §8 scenario 3's distribution: 90% small
// [16, 1024], 5% medium [1024, 51200], 5% large [51200, 102400].
func DefaultMix() Mix {
	return Mix{
		Classes: []SizeClass{
			{Weight: 0.90, MinBytes: 16, MaxBytes: 1024},
			{Weight: 0.05, MinBytes: 1024, MaxBytes: 51200},
			{Weight: 0.05, MinBytes: 51200, MaxBytes: 102400},
		},
	}
}

// Generator draws request sizes from a Mix using a private random source, so
// concurrent generators never contend on a shared lock.
type Generator struct {
	mix   Mix
	total float64
	rng   *rand.Rand
}

// NewGenerator builds a Generator seeded independently of the package-level
// random source, so parallel workers produce independent sequences.
func NewGenerator(mix Mix, seed int64) *Generator {
	total := 0.0
	for _, c := range mix.Classes {
		total += c.Weight
	}

	return &Generator{mix: mix, total: total, rng: rand.New(rand.NewSource(seed))}
}

// Next draws one request size in bytes from the configured mix.
func (g *Generator) Next() int {
	roll := g.rng.Float64() * g.total

	cursor := 0.0
	for _, c := range g.mix.Classes {
		cursor += c.Weight
		if roll <= cursor {
			span := c.MaxBytes - c.MinBytes
			if span <= 0 {
				return c.MinBytes
			}

			return c.MinBytes + g.rng.Intn(span+1)
		}
	}

	last := g.mix.Classes[len(g.mix.Classes)-1]

	return last.MinBytes
}
