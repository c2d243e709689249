package downsample

import (
	"math/rand"
	"sort"
)

// Rand is the source of randomness used by the downsamplers. *rand.Rand
// satisfies it.
type Rand interface {
	// Intn returns a uniform integer in [0, n).
	Intn(n int) int
	// Float64 returns a uniform float64 in [0, 1).
	Float64() float64
}

// DefaultSeed is the seed used when the caller does not supply a Rand.
const DefaultSeed = 47382911

// NewRand returns a Rand that yields the same sequence for the same seed.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

func orDefault(rnd Rand) Rand {
	if rnd == nil {
		return NewRand(DefaultSeed)
	}
	return rnd
}

// sampleIndices returns k distinct indices drawn uniformly from [0, n), in
// ascending order.
func sampleIndices(rnd Rand, n, k int) []int {
	if k <= 0 {
		return nil
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if k >= n {
		return perm
	}
	// Partial Fisher-Yates shuffle.
	for i := 0; i < k; i++ {
		j := i + rnd.Intn(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	selected := perm[:k]
	sort.Ints(selected)
	return selected
}
