package hostrules

import "github.com/haukened/popcorn/internal/popcorn/domain"

// BloomFilter is the minimal interface the repository needs from Bloom filters.
type BloomFilter interface {
	Add(key []byte)
	MightContain(key []byte) bool
}

// BloomFactory builds filters sized for a dataset of the given capacity.
type BloomFactory interface {
	New(capacity uint64, fpRate float64) BloomFilter
}

// DecisionCache caches host decisions by canonical host.
type DecisionCache interface {
	Get(host string) (domain.HostDecision, bool)
	Put(host string, d domain.HostDecision)
	Len() int
	Purge()
	Stats() CacheStats
}

// Store is the persistent rule index.
//   - GetFirstMatch: exact rule for host, else the most specific suffix anchor
//   - RebuildAll: atomically replace every rule and stamp version metadata
type Store interface {
	GetFirstMatch(host string) (domain.HostRule, bool, error)
	RebuildAll(rules []domain.HostRule, version uint64, updatedUnix int64) error
	Stats() StoreStats
	Close() error
}

// CacheStats reports lightweight cache metrics.
type CacheStats struct {
	Capacity  int
	Size      int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// StoreStats reports counts and snapshot metadata of the store.
type StoreStats struct {
	Version     uint64
	UpdatedUnix int64
	ExactKeys   uint64
	SuffixKeys  uint64
}

// RepoStats combines cache and store metrics.
type RepoStats struct {
	Cache CacheStats
	Store StoreStats
}

// Repository answers "is this host blocked" for the URL matcher and accepts
// whole-list replacements from the importer.
type Repository interface {
	Decide(host string) domain.HostDecision
	UpdateAll(rules []domain.HostRule, version uint64, updatedUnix int64) error
	Stats() RepoStats
}
