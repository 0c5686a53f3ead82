package lru

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/popcorn/internal/popcorn/domain"
	"github.com/haukened/popcorn/internal/popcorn/repos/hostrules"
)

// decisionCache is an LRU-backed hostrules.DecisionCache with hit, miss and
// eviction counters.
type decisionCache struct {
	lru       *lru.Cache[string, domain.HostDecision]
	capacity  int
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache always misses. Used when size <= 0.
type disabledCache struct{}

// New creates a DecisionCache holding up to size hosts. If size <= 0, a
// disabled cache is returned that always misses and tracks no metrics.
func New(size int) (hostrules.DecisionCache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	dc := &decisionCache{capacity: size}
	// evict callback also fires on Purge
	cache, err := lru.NewWithEvict(size, func(_ string, _ domain.HostDecision) {
		atomic.AddUint64(&dc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	dc.lru = cache
	return dc, nil
}

func (c *decisionCache) Get(host string) (domain.HostDecision, bool) {
	if val, ok := c.lru.Get(host); ok {
		atomic.AddUint64(&c.hits, 1)
		return val, true
	}
	atomic.AddUint64(&c.misses, 1)
	return domain.HostDecision{}, false
}

func (c *decisionCache) Put(host string, d domain.HostDecision) {
	c.lru.Add(host, d)
}

func (c *decisionCache) Len() int { return c.lru.Len() }

func (c *decisionCache) Purge() { c.lru.Purge() }

func (c *decisionCache) Stats() hostrules.CacheStats {
	return hostrules.CacheStats{
		Capacity:  c.capacity,
		Size:      c.lru.Len(),
		Hits:      atomic.LoadUint64(&c.hits),
		Misses:    atomic.LoadUint64(&c.misses),
		Evictions: atomic.LoadUint64(&c.evictions),
	}
}

func (d *disabledCache) Get(string) (domain.HostDecision, bool) { return domain.HostDecision{}, false }

func (d *disabledCache) Put(string, domain.HostDecision) {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Purge() {}

func (d *disabledCache) Stats() hostrules.CacheStats { return hostrules.CacheStats{} }

var _ hostrules.DecisionCache = (*decisionCache)(nil)
var _ hostrules.DecisionCache = (*disabledCache)(nil)
