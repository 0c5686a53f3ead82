package hostrules

import (
	"sync"

	"github.com/haukened/popcorn/internal/popcorn/common/utils"
	"github.com/haukened/popcorn/internal/popcorn/domain"
)

// repository composes a Store, a Bloom filter (via factory) and a
// DecisionCache. Reads go bloom → cache → store; writes rebuild the store and
// swap in a fresh filter.
type repository struct {
	mu      sync.RWMutex
	store   Store
	cache   DecisionCache
	bloom   BloomFilter
	factory BloomFactory
	fpRate  float64
}

// NewRepository constructs a Repository.
// fpRate is the target false-positive rate for the Bloom filter when rebuilding.
func NewRepository(store Store, cache DecisionCache, factory BloomFactory, fpRate float64) Repository {
	return &repository{store: store, cache: cache, factory: factory, fpRate: fpRate}
}

// Decide returns a HostDecision for host.
// Policy: on store errors, prefer allow. The URL matcher has already applied
// its own fail-closed rules before it asks here.
func (r *repository) Decide(host string) domain.HostDecision {
	cn := utils.CanonicalHost(host)
	if cn == "" {
		return domain.EmptyHostDecision()
	}
	if !r.checkBloom(cn) {
		return domain.EmptyHostDecision()
	}
	if d, ok := r.checkCache(cn); ok {
		return d
	}
	dec := r.checkStore(cn)
	r.updateCache(cn, dec)
	return dec
}

// UpdateAll performs an atomic snapshot update across store, bloom, and cache.
func (r *repository) UpdateAll(rules []domain.HostRule, version uint64, updatedUnix int64) error {
	if err := r.store.RebuildAll(rules, version, updatedUnix); err != nil {
		return err
	}

	var n uint64
	for _, ru := range rules {
		if ru.Kind == domain.HostRuleExact || ru.Kind == domain.HostRuleSuffix {
			n++
		}
	}
	bf := r.factory.New(n, r.fpRate)
	for _, ru := range rules {
		switch ru.Kind {
		case domain.HostRuleExact:
			bf.Add([]byte(ru.Name))
		case domain.HostRuleSuffix:
			bf.Add([]byte(reverseString(ru.Name)))
		}
	}

	r.mu.Lock()
	r.bloom = bf
	r.cache.Purge()
	r.mu.Unlock()
	return nil
}

// Stats reports cache and store metrics.
func (r *repository) Stats() RepoStats {
	r.mu.RLock()
	cs := r.cache.Stats()
	r.mu.RUnlock()
	return RepoStats{Cache: cs, Store: r.store.Stats()}
}

// reverseString reverses the string runes. Must match the store's reversal
// so Bloom keys line up with suffix anchors.
func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// checkBloom returns true if the store must be consulted (maybe-positive), or
// false when the host is definitely not listed. Without a filter (nothing
// imported since start) the store is authoritative.
func (r *repository) checkBloom(cn string) bool {
	r.mu.RLock()
	bf := r.bloom
	r.mu.RUnlock()
	if bf == nil {
		return true
	}
	if bf.MightContain([]byte(cn)) {
		return true
	}
	// reversed anchors for suffix candidates, most specific first
	for _, a := range utils.ParentHosts(cn) {
		if bf.MightContain([]byte(reverseString(a))) {
			return true
		}
	}
	return false
}

func (r *repository) checkCache(cn string) (domain.HostDecision, bool) {
	r.mu.RLock()
	d, ok := r.cache.Get(cn)
	r.mu.RUnlock()
	return d, ok
}

// checkStore consults the authoritative store. Errors and misses allow.
func (r *repository) checkStore(cn string) domain.HostDecision {
	rule, ok, err := r.store.GetFirstMatch(cn)
	if err == nil && ok {
		return domain.HostDecision{Blocked: true, MatchedRule: rule.Name, Source: rule.Source, Kind: rule.Kind}
	}
	return domain.EmptyHostDecision()
}

func (r *repository) updateCache(cn string, dec domain.HostDecision) {
	r.mu.Lock()
	r.cache.Put(cn, dec)
	r.mu.Unlock()
}
