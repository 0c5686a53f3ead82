// Package bloom adapts bits-and-blooms Bloom filters to the host rule
// repository's negative prefilter.
package bloom

import (
	"math"
	"sync"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/popcorn/internal/popcorn/repos/hostrules"
)

// factory implements hostrules.BloomFactory using size().
type factory struct{}

// NewFactory returns a BloomFactory that sizes filters from capacity and FP rate.
func NewFactory() hostrules.BloomFactory { return factory{} }

// New constructs a filter sized for capacity keys at the target fpRate.
func (factory) New(capacity uint64, fpRate float64) hostrules.BloomFilter {
	m, k := size(capacity, fpRate)
	return &filter{bf: bitsbloom.New(uint(m), uint(k))}
}

// filter wraps a BloomFilter with a RWMutex; Add is serialized, lookups share.
type filter struct {
	mu sync.RWMutex
	bf *bitsbloom.BloomFilter
}

func (f *filter) Add(key []byte) {
	f.mu.Lock()
	f.bf.Add(key)
	f.mu.Unlock()
}

func (f *filter) MightContain(key []byte) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bf.Test(key)
}

// size computes m (bits) and k (hash functions):
//
//	m = - (n * ln p) / (ln 2)^2
//	k = (m / n) * ln 2
//
// Both are clamped to at least 1. Invalid p falls back to 1%.
func size(n uint64, p float64) (uint64, uint8) {
	if n == 0 {
		n = 1
	}
	if !(p > 0 && p < 1) {
		p = 0.01
	}
	ln2 := math.Ln2
	m := uint64(math.Ceil(-float64(n) * math.Log(p) / (ln2 * ln2)))
	if m == 0 {
		m = 1
	}
	k := uint8(math.Max(1, math.Round((float64(m)/float64(n))*ln2)))
	return m, k
}

var _ hostrules.BloomFilter = (*filter)(nil)
