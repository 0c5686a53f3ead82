package hostrules

import "github.com/haukened/popcorn/internal/popcorn/domain"

// NoopRepository never blocks. Used when no rule database is configured.
type NoopRepository struct{}

func (NoopRepository) Decide(string) domain.HostDecision { return domain.EmptyHostDecision() }

func (NoopRepository) UpdateAll([]domain.HostRule, uint64, int64) error { return nil }

func (NoopRepository) Stats() RepoStats { return RepoStats{} }

var _ Repository = NoopRepository{}
