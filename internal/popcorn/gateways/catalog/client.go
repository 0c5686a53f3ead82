// Package catalog is a read-only client for a TMDB-style movie and TV
// catalog. Requests go through the caller's HTTP client, which in the app is
// the guarded page client.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdhtml "html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"

	"github.com/haukened/popcorn/internal/popcorn/common/log"
	"github.com/haukened/popcorn/internal/popcorn/domain"
)

const (
	DefaultBaseURL       = "https://api.themoviedb.org/3"
	DefaultImageBaseURL  = "https://image.tmdb.org/t/p"
	DefaultPlayerBaseURL = "https://vidsrc.to"
	PlaceholderImage     = "/placeholder.svg"

	maxBodyBytes = 4 << 20
)

// ErrMissingAPIKey is returned when no catalog key has been configured.
var ErrMissingAPIKey = errors.New("catalog api key not configured")

// Options configures a Client. Zero values get defaults.
type Options struct {
	BaseURL       string
	ImageBaseURL  string
	PlayerBaseURL string
	APIKey        string
	HTTPClient    *http.Client
	CacheSize     int
	CacheTTL      time.Duration
	RatePerSecond float64
	Burst         int
	Logger        log.Logger
}

// Client fetches catalog records. It is safe for concurrent use.
type Client struct {
	base       string
	imageBase  string
	playerBase string
	http       *http.Client
	cache      *expirable.LRU[string, []byte]
	limiter    *rate.Limiter
	sanitizer  *bluemonday.Policy
	logger     log.Logger

	mu     sync.RWMutex
	apiKey string
}

// New returns a Client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ImageBaseURL == "" {
		opts.ImageBaseURL = DefaultImageBaseURL
	}
	if opts.PlayerBaseURL == "" {
		opts.PlayerBaseURL = DefaultPlayerBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Client{
		base:       strings.TrimRight(opts.BaseURL, "/"),
		imageBase:  strings.TrimRight(opts.ImageBaseURL, "/"),
		playerBase: strings.TrimRight(opts.PlayerBaseURL, "/"),
		http:       opts.HTTPClient,
		cache:      expirable.NewLRU[string, []byte](opts.CacheSize, nil, opts.CacheTTL),
		limiter:    rate.NewLimiter(limit, opts.Burst),
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     opts.Logger,
		apiKey:     opts.APIKey,
	}
}

// SetAPIKey replaces the catalog key and drops cached responses.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = strings.TrimSpace(key)
	c.mu.Unlock()
	c.cache.Purge()
}

func (c *Client) key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

type pageResponse struct {
	Results []domain.Title `json:"results"`
}

// Trending returns this week's trending titles.
func (c *Client) Trending(ctx context.Context, mt domain.MediaType) ([]domain.Title, error) {
	return c.titles(ctx, "trending", "/trending/"+string(mt)+"/week", nil, mt)
}

// Popular returns the first page of popular titles for mt.
func (c *Client) Popular(ctx context.Context, mt domain.MediaType) ([]domain.Title, error) {
	return c.titles(ctx, "popular", "/"+string(mt)+"/popular", nil, mt)
}

// TopRated returns the first page of top rated titles for mt.
func (c *Client) TopRated(ctx context.Context, mt domain.MediaType) ([]domain.Title, error) {
	return c.titles(ctx, "top rated", "/"+string(mt)+"/top_rated", nil, mt)
}

// Details returns one title with genres, runtime and season count.
func (c *Client) Details(ctx context.Context, mt domain.MediaType, id int) (domain.Title, error) {
	var t domain.Title
	if err := c.get(ctx, "details", "/"+string(mt)+"/"+strconv.Itoa(id), nil, &t); err != nil {
		return domain.Title{}, err
	}
	t.MediaType = mt
	c.cleanTitle(&t)
	return t, nil
}

// Credits returns the cast of a title.
func (c *Client) Credits(ctx context.Context, mt domain.MediaType, id int) ([]domain.CastMember, error) {
	var resp struct {
		Cast []domain.CastMember `json:"cast"`
	}
	if err := c.get(ctx, "credits", "/"+string(mt)+"/"+strconv.Itoa(id)+"/credits", nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Cast {
		resp.Cast[i].Name = c.clean(resp.Cast[i].Name)
		resp.Cast[i].Character = c.clean(resp.Cast[i].Character)
	}
	return resp.Cast, nil
}

// Videos returns trailers and clips of a title.
func (c *Client) Videos(ctx context.Context, mt domain.MediaType, id int) ([]domain.Video, error) {
	var resp struct {
		Results []domain.Video `json:"results"`
	}
	if err := c.get(ctx, "videos", "/"+string(mt)+"/"+strconv.Itoa(id)+"/videos", nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Results {
		resp.Results[i].Name = c.clean(resp.Results[i].Name)
	}
	return resp.Results, nil
}

// SeasonDetails returns a season of a show with its episodes.
func (c *Client) SeasonDetails(ctx context.Context, showID, season int) (domain.Season, error) {
	var s domain.Season
	path := "/tv/" + strconv.Itoa(showID) + "/season/" + strconv.Itoa(season)
	if err := c.get(ctx, "season details", path, nil, &s); err != nil {
		return domain.Season{}, err
	}
	s.Name = c.clean(s.Name)
	s.Overview = c.clean(s.Overview)
	for i := range s.Episodes {
		s.Episodes[i].Name = c.clean(s.Episodes[i].Name)
		s.Episodes[i].Overview = c.clean(s.Episodes[i].Overview)
	}
	return s, nil
}

// Search runs a text search. An empty media type searches movies and shows.
func (c *Client) Search(ctx context.Context, mt domain.MediaType, query string) ([]domain.Title, error) {
	kind := string(mt)
	if kind == "" {
		kind = "multi"
	}
	return c.titles(ctx, "search", "/search/"+kind, url.Values{"query": {query}}, mt)
}

// DiscoverByGenre lists titles of one genre.
func (c *Client) DiscoverByGenre(ctx context.Context, mt domain.MediaType, genreID int) ([]domain.Title, error) {
	q := url.Values{"with_genres": {strconv.Itoa(genreID)}}
	return c.titles(ctx, "discover by genre", "/discover/"+string(mt), q, mt)
}

// AdvancedSearch discovers titles matching every non-zero filter.
func (c *Client) AdvancedSearch(ctx context.Context, mt domain.MediaType, f domain.SearchFilters) ([]domain.Title, error) {
	q := url.Values{}
	if f.Genre > 0 {
		q.Set("with_genres", strconv.Itoa(f.Genre))
	}
	if f.Year > 0 {
		if mt == domain.MediaTV {
			q.Set("first_air_date_year", strconv.Itoa(f.Year))
		} else {
			q.Set("primary_release_year", strconv.Itoa(f.Year))
		}
	}
	if f.MinRating > 0 {
		q.Set("vote_average.gte", strconv.FormatFloat(f.MinRating, 'f', -1, 64))
	}
	return c.titles(ctx, "advanced search", "/discover/"+string(mt), q, mt)
}

// ImageURL builds an image URL, or the placeholder when path is empty.
func (c *Client) ImageURL(path, size string) string {
	if path == "" {
		return PlaceholderImage
	}
	if size == "" {
		size = "w342"
	}
	return c.imageBase + "/" + size + path
}

// PlayerURL builds the embedded player URL. Season and episode are only
// used for shows.
func (c *Client) PlayerURL(mt domain.MediaType, id, season, episode int) string {
	if mt == domain.MediaTV {
		return fmt.Sprintf("%s/embed/tv/%d/%d/%d", c.playerBase, id, season, episode)
	}
	return fmt.Sprintf("%s/embed/movie/%d", c.playerBase, id)
}

func (c *Client) titles(ctx context.Context, op, path string, q url.Values, mt domain.MediaType) ([]domain.Title, error) {
	var resp pageResponse
	if err := c.get(ctx, op, path, q, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Results {
		if resp.Results[i].MediaType == "" {
			resp.Results[i].MediaType = mt
		}
		c.cleanTitle(&resp.Results[i])
	}
	return resp.Results, nil
}

// get fetches path and decodes the JSON body into dst. Successful bodies
// are cached by path and query, without the key.
func (c *Client) get(ctx context.Context, op, path string, q url.Values, dst any) error {
	key := c.key()
	if key == "" {
		return ErrMissingAPIKey
	}
	if q == nil {
		q = url.Values{}
	}
	cacheKey := path + "?" + q.Encode()
	if body, ok := c.cache.Get(cacheKey); ok {
		c.logger.Debug(map[string]any{"op": op, "path": path}, "catalog cache hit")
		return json.Unmarshal(body, dst)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("fetch %s: %w", op, err)
	}

	q.Set("api_key", key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn(map[string]any{"op": op, "path": path, "error": err.Error()}, "catalog request failed")
		return fmt.Errorf("fetch %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn(map[string]any{"op": op, "path": path, "status": resp.StatusCode}, "catalog provider error")
		return &domain.ProviderError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("fetch %s: %w", op, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s: %w", op, err)
	}
	c.cache.Add(cacheKey, body)
	return nil
}

func (c *Client) cleanTitle(t *domain.Title) {
	t.Title = c.clean(t.Title)
	t.Name = c.clean(t.Name)
	t.Overview = c.clean(t.Overview)
	for i := range t.Genres {
		t.Genres[i].Name = c.clean(t.Genres[i].Name)
	}
}

// clean strips markup from third-party text and returns plain text.
func (c *Client) clean(s string) string {
	if s == "" {
		return s
	}
	return stdhtml.UnescapeString(c.sanitizer.Sanitize(s))
}
