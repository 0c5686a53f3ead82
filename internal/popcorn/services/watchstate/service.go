// Package watchstate keeps the viewer's local state: favorites, watchlist,
// continue watching, per-episode progress and a few settings.
package watchstate

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/haukened/popcorn/internal/popcorn/common/clock"
	"github.com/haukened/popcorn/internal/popcorn/common/log"
	"github.com/haukened/popcorn/internal/popcorn/domain"
	"github.com/haukened/popcorn/internal/popcorn/repos/kvstore"
)

// InstallPromptSuppression is how long a dismissed install prompt stays hidden.
const InstallPromptSuppression = 7 * 24 * time.Hour

// Service reads and writes watch state through a kvstore.Store. Each
// mutation is a read-modify-write of one key under the service lock.
type Service struct {
	mu       sync.Mutex
	store    kvstore.Store
	clock    clock.Clock
	validate *validator.Validate
	logger   log.Logger
}

// Options configures a Service.
type Options struct {
	Store  kvstore.Store
	Clock  clock.Clock
	Logger log.Logger
}

// New returns a Service. A nil store falls back to an in-memory one.
func New(opts Options) *Service {
	if opts.Store == nil {
		opts.Store = kvstore.NewMemory()
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Service{
		store:    opts.Store,
		clock:    opts.Clock,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   opts.Logger,
	}
}

// --- favorites and watchlist ---

// AddFavorite puts item at the front of the favorites list.
func (s *Service) AddFavorite(item domain.WatchlistItem) error {
	return s.addItem(KeyFavorites, item)
}

// RemoveFavorite drops id from the favorites list.
func (s *Service) RemoveFavorite(id int) error {
	return s.removeItem(KeyFavorites, id)
}

// IsFavorite reports whether id is on the favorites list.
func (s *Service) IsFavorite(id int) (bool, error) {
	return s.hasItem(KeyFavorites, id)
}

// Favorites returns the favorites list, newest first.
func (s *Service) Favorites() ([]domain.WatchlistItem, error) {
	return s.items(KeyFavorites)
}

// AddToWatchlist puts item at the front of the watchlist.
func (s *Service) AddToWatchlist(item domain.WatchlistItem) error {
	return s.addItem(KeyWatchlist, item)
}

// RemoveFromWatchlist drops id from the watchlist.
func (s *Service) RemoveFromWatchlist(id int) error {
	return s.removeItem(KeyWatchlist, id)
}

// IsInWatchlist reports whether id is on the watchlist.
func (s *Service) IsInWatchlist(id int) (bool, error) {
	return s.hasItem(KeyWatchlist, id)
}

// Watchlist returns the watchlist, newest first.
func (s *Service) Watchlist() ([]domain.WatchlistItem, error) {
	return s.items(KeyWatchlist)
}

func (s *Service) items(key string) ([]domain.WatchlistItem, error) {
	return kvstore.GetOr(s.store, key, []domain.WatchlistItem{})
}

// addItem prepends item with AddedAt set. An id already on the list is left alone.
func (s *Service) addItem(key string, item domain.WatchlistItem) error {
	if err := s.validate.Struct(item); err != nil {
		return fmt.Errorf("invalid item: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.items(key)
	if err != nil {
		return err
	}
	if indexOf(list, item.ID) >= 0 {
		return nil
	}
	item.AddedAt = s.clock.Now()
	list = append([]domain.WatchlistItem{item}, list...)
	if err := s.store.Set(key, list); err != nil {
		return err
	}
	s.logger.Debug(map[string]any{"list": key, "id": item.ID}, "item added")
	return nil
}

func (s *Service) removeItem(key string, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.items(key)
	if err != nil {
		return err
	}
	i := indexOf(list, id)
	if i < 0 {
		return nil
	}
	return s.store.Set(key, slices.Delete(list, i, i+1))
}

func (s *Service) hasItem(key string, id int) (bool, error) {
	list, err := s.items(key)
	if err != nil {
		return false, err
	}
	return indexOf(list, id) >= 0, nil
}

func indexOf(list []domain.WatchlistItem, id int) int {
	return slices.IndexFunc(list, func(it domain.WatchlistItem) bool { return it.ID == id })
}

// --- continue watching ---

// ContinueWatching returns the continue-watching list, most recent first.
func (s *Service) ContinueWatching() ([]domain.ContinueWatchingItem, error) {
	return kvstore.GetOr(s.store, KeyContinueWatching, []domain.ContinueWatchingItem{})
}

// AddContinueWatching moves item to the front, replacing any entry with the
// same id, and trims the list to domain.MaxContinueWatching.
func (s *Service) AddContinueWatching(item domain.ContinueWatchingItem) error {
	if err := s.validate.Struct(item.WatchlistItem); err != nil {
		return fmt.Errorf("invalid item: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.ContinueWatching()
	if err != nil {
		return err
	}
	list = slices.DeleteFunc(list, func(it domain.ContinueWatchingItem) bool { return it.ID == item.ID })
	item.LastWatchedAt = s.clock.Now()
	list = append([]domain.ContinueWatchingItem{item}, list...)
	if len(list) > domain.MaxContinueWatching {
		list = list[:domain.MaxContinueWatching]
	}
	return s.store.Set(KeyContinueWatching, list)
}

// RemoveContinueWatching drops id from the continue-watching list.
func (s *Service) RemoveContinueWatching(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.ContinueWatching()
	if err != nil {
		return err
	}
	n := len(list)
	list = slices.DeleteFunc(list, func(it domain.ContinueWatchingItem) bool { return it.ID == id })
	if len(list) == n {
		return nil
	}
	return s.store.Set(KeyContinueWatching, list)
}

// UpdateProgress records playback position for an entry already on the
// continue-watching list. Season and episode are replaced, so zero clears
// them. Unknown ids are ignored.
func (s *Service) UpdateProgress(id int, percent float64, season, episode int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.ContinueWatching()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(list, func(it domain.ContinueWatchingItem) bool { return it.ID == id })
	if i < 0 {
		return nil
	}
	list[i].Progress = math.Max(0, math.Min(100, percent))
	list[i].Season = season
	list[i].Episode = episode
	list[i].LastWatchedAt = s.clock.Now()
	return s.store.Set(KeyContinueWatching, list)
}

// --- episode tracking ---

type tracking map[string]domain.EpisodeProgress

func (s *Service) tracking() (tracking, error) {
	t, err := kvstore.GetOr(s.store, KeyEpisodeTracking, tracking{})
	if t == nil {
		t = tracking{}
	}
	return t, err
}

// ShowProgress returns the progress of a show, or false when nothing was recorded.
func (s *Service) ShowProgress(showID int) (domain.EpisodeProgress, bool, error) {
	t, err := s.tracking()
	if err != nil {
		return domain.EpisodeProgress{}, false, err
	}
	p, ok := t[strconv.Itoa(showID)]
	return p, ok, nil
}

// UpdateEpisodeProgress sets the current episode, creating the record on first use.
func (s *Service) UpdateEpisodeProgress(showID, season, episode int) error {
	return s.updateShow(showID, func(p *domain.EpisodeProgress) {
		p.CurrentSeason = season
		p.CurrentEpisode = episode
	})
}

// MarkEpisodeWatched adds the episode to the watched set and makes it current.
func (s *Service) MarkEpisodeWatched(showID, season, episode int) error {
	key := domain.EpisodeKey(season, episode)
	return s.updateShow(showID, func(p *domain.EpisodeProgress) {
		if !slices.Contains(p.WatchedEpisodes, key) {
			p.WatchedEpisodes = append(p.WatchedEpisodes, key)
		}
		p.CurrentSeason = season
		p.CurrentEpisode = episode
	})
}

// IsEpisodeWatched reports whether the episode is in the show's watched set.
func (s *Service) IsEpisodeWatched(showID, season, episode int) (bool, error) {
	p, ok, err := s.ShowProgress(showID)
	if err != nil || !ok {
		return false, err
	}
	return slices.Contains(p.WatchedEpisodes, domain.EpisodeKey(season, episode)), nil
}

// SeasonProgress counts watched episodes of one season against total.
func (s *Service) SeasonProgress(showID, season, total int) (domain.SeasonProgress, error) {
	p, _, err := s.ShowProgress(showID)
	if err != nil {
		return domain.SeasonProgress{}, err
	}
	prefix := strconv.Itoa(season) + "-"
	watched := 0
	for _, k := range p.WatchedEpisodes {
		if strings.HasPrefix(k, prefix) {
			watched++
		}
	}
	sp := domain.SeasonProgress{Watched: watched, Total: total}
	if total > 0 {
		sp.Percentage = int(math.Round(float64(watched) / float64(total) * 100))
	}
	return sp, nil
}

func (s *Service) updateShow(showID int, fn func(*domain.EpisodeProgress)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tracking()
	if err != nil {
		return err
	}
	k := strconv.Itoa(showID)
	p, ok := t[k]
	if !ok {
		p = domain.EpisodeProgress{ShowID: showID, CurrentSeason: 1, CurrentEpisode: 1, WatchedEpisodes: []string{}}
	}
	fn(&p)
	p.LastWatchedAt = s.clock.Now()
	t[k] = p
	return s.store.Set(KeyEpisodeTracking, t)
}

// --- settings ---

// APIKeys returns the stored keys, empty when none were saved.
func (s *Service) APIKeys() (domain.APIKeys, error) {
	return kvstore.GetOr(s.store, KeyAPIKeys, domain.APIKeys{})
}

// SetAPIKeys trims and stores keys.
func (s *Service) SetAPIKeys(keys domain.APIKeys) error {
	keys.TMDB = strings.TrimSpace(keys.TMDB)
	keys.YouTube = strings.TrimSpace(keys.YouTube)
	return s.store.Set(KeyAPIKeys, keys)
}

// HasAPIKeys reports whether the catalog key is set. The YouTube key is optional.
func (s *Service) HasAPIKeys() (bool, error) {
	k, err := s.APIKeys()
	return k.TMDB != "", err
}

// CatalogKey implements APIKeySource.
func (s *Service) CatalogKey() (string, error) {
	k, err := s.APIKeys()
	return k.TMDB, err
}

// UserProfile returns the stored profile.
func (s *Service) UserProfile() (domain.UserProfile, error) {
	return kvstore.GetOr(s.store, KeyUserProfile, domain.UserProfile{})
}

// SetUserProfile validates and stores p.
func (s *Service) SetUserProfile(p domain.UserProfile) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	if err := s.validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	return s.store.Set(KeyUserProfile, p)
}

// SplashShown reports whether the splash screen was already shown.
func (s *Service) SplashShown() (bool, error) { return kvstore.GetOr(s.store, KeySplashShown, false) }

// SetSplashShown records whether the splash screen was shown.
func (s *Service) SetSplashShown(shown bool) error { return s.store.Set(KeySplashShown, shown) }

// DismissInstallPrompt records the dismissal time.
func (s *Service) DismissInstallPrompt() error {
	return s.store.Set(KeyInstallPromptDismissed, s.clock.Now().UnixMilli())
}

// ShouldShowInstallPrompt is false for a week after a dismissal.
func (s *Service) ShouldShowInstallPrompt() (bool, error) {
	ms, err := kvstore.GetOr(s.store, KeyInstallPromptDismissed, int64(0))
	if err != nil {
		return false, err
	}
	if ms == 0 {
		return true, nil
	}
	return s.clock.Now().Sub(time.UnixMilli(ms)) >= InstallPromptSuppression, nil
}

var _ APIKeySource = (*Service)(nil)
