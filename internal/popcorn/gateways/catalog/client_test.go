package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/popcorn/internal/popcorn/domain"
)

type fakeProvider struct {
	hits atomic.Int32
	last atomic.Value // url.Values
}

func newServer(t *testing.T, routes map[string]string) (*httptest.Server, *fakeProvider) {
	t.Helper()
	fp := &fakeProvider{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp.hits.Add(1)
		fp.last.Store(r.URL.Query())
		body, ok := routes[r.URL.Path]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, fp
}

func newClient(srv *httptest.Server) *Client {
	return New(Options{BaseURL: srv.URL, APIKey: "k123", HTTPClient: srv.Client()})
}

func TestTrending(t *testing.T) {
	srv, fp := newServer(t, map[string]string{
		"/trending/movie/week": `{"results":[{"id":27205,"title":"Inception","overview":"<b>Dreams</b> &amp; heists","release_date":"2010-07-15"}]}`,
	})
	c := newClient(srv)

	got, err := c.Trending(context.Background(), domain.MediaMovie)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 27205, got[0].ID)
	assert.Equal(t, "Inception", got[0].DisplayTitle())
	assert.Equal(t, "Dreams & heists", got[0].Overview)
	assert.Equal(t, domain.MediaMovie, got[0].MediaType)
	assert.Equal(t, "2010", got[0].ReleaseYear())
	assert.Equal(t, "k123", fp.last.Load().(url.Values).Get("api_key"))
}

func TestCaching(t *testing.T) {
	srv, fp := newServer(t, map[string]string{
		"/tv/popular": `{"results":[{"id":1399,"name":"Game of Thrones"}]}`,
	})
	c := newClient(srv)

	for i := 0; i < 3; i++ {
		got, err := c.Popular(context.Background(), domain.MediaTV)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Game of Thrones", got[0].DisplayTitle())
	}
	assert.Equal(t, int32(1), fp.hits.Load())

	c.SetAPIKey("other")
	_, err := c.Popular(context.Background(), domain.MediaTV)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fp.hits.Load())
}

func TestProviderError(t *testing.T) {
	srv, _ := newServer(t, map[string]string{})
	c := newClient(srv)

	_, err := c.TopRated(context.Background(), domain.MediaMovie)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProvider)
	var pe *domain.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusNotFound, pe.StatusCode)
	assert.Equal(t, "top rated", pe.Op)
	assert.Contains(t, err.Error(), "failed to fetch top rated")
}

func TestMissingKey(t *testing.T) {
	srv, fp := newServer(t, map[string]string{})
	c := New(Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := c.Trending(context.Background(), domain.MediaMovie)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, int32(0), fp.hits.Load())
}

func TestDetailsCreditsVideos(t *testing.T) {
	srv, _ := newServer(t, map[string]string{
		"/movie/27205":         `{"id":27205,"title":"Inception","runtime":148,"genres":[{"id":28,"name":"Action"}]}`,
		"/movie/27205/credits": `{"cast":[{"id":6193,"name":"Leonardo DiCaprio","character":"Cobb<script>x</script>"}]}`,
		"/movie/27205/videos":  `{"results":[{"id":"v1","key":"YoHD9XEInc0","name":"Trailer","site":"YouTube","type":"Trailer"}]}`,
	})
	c := newClient(srv)
	ctx := context.Background()

	d, err := c.Details(ctx, domain.MediaMovie, 27205)
	require.NoError(t, err)
	assert.Equal(t, 148, d.Runtime)
	assert.Equal(t, []domain.Genre{{ID: 28, Name: "Action"}}, d.Genres)
	assert.Equal(t, domain.MediaMovie, d.MediaType)

	cast, err := c.Credits(ctx, domain.MediaMovie, 27205)
	require.NoError(t, err)
	require.Len(t, cast, 1)
	assert.Equal(t, "Cobb", cast[0].Character)

	vids, err := c.Videos(ctx, domain.MediaMovie, 27205)
	require.NoError(t, err)
	require.Len(t, vids, 1)
	assert.True(t, vids[0].IsYouTubeTrailer())
}

func TestSeasonDetails(t *testing.T) {
	srv, _ := newServer(t, map[string]string{
		"/tv/1399/season/1": `{"id":3624,"name":"Season 1","season_number":1,"episodes":[{"id":63056,"name":"Winter Is Coming","episode_number":1,"season_number":1}]}`,
	})
	c := newClient(srv)

	s, err := c.SeasonDetails(context.Background(), 1399, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, s.SeasonNumber)
	require.Len(t, s.Episodes, 1)
	assert.Equal(t, "Winter Is Coming", s.Episodes[0].Name)
}

func TestSearchAndDiscover(t *testing.T) {
	srv, fp := newServer(t, map[string]string{
		"/search/multi":   `{"results":[{"id":1,"name":"Dark","media_type":"tv"}]}`,
		"/search/movie":   `{"results":[]}`,
		"/discover/movie": `{"results":[{"id":2,"title":"Heat"}]}`,
		"/discover/tv":    `{"results":[]}`,
	})
	c := newClient(srv)
	ctx := context.Background()

	got, err := c.Search(ctx, "", "dark & stormy")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.MediaTV, got[0].MediaType)
	assert.Equal(t, "dark & stormy", fp.last.Load().(url.Values).Get("query"))

	_, err = c.Search(ctx, domain.MediaMovie, "heat")
	require.NoError(t, err)

	got, err = c.DiscoverByGenre(ctx, domain.MediaMovie, 80)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "80", fp.last.Load().(url.Values).Get("with_genres"))

	_, err = c.AdvancedSearch(ctx, domain.MediaTV, domain.SearchFilters{Genre: 18, Year: 2017, MinRating: 7.5})
	require.NoError(t, err)
	q := fp.last.Load().(url.Values)
	assert.Equal(t, "18", q.Get("with_genres"))
	assert.Equal(t, "2017", q.Get("first_air_date_year"))
	assert.Equal(t, "7.5", q.Get("vote_average.gte"))

	_, err = c.AdvancedSearch(ctx, domain.MediaMovie, domain.SearchFilters{Year: 1995})
	require.NoError(t, err)
	q = fp.last.Load().(url.Values)
	assert.Equal(t, "1995", q.Get("primary_release_year"))
	assert.Empty(t, q.Get("with_genres"))
}

func TestTransportErrorIsWrapped(t *testing.T) {
	blocked := &domain.BlockedRequestError{URL: "x", Primitive: "fetch"}
	c := New(Options{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, blocked
		})},
	})
	_, err := c.Trending(context.Background(), domain.MediaMovie)
	assert.ErrorIs(t, err, domain.ErrBlockedRequest)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestImageAndPlayerURL(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, PlaceholderImage, c.ImageURL("", "w780"))
	assert.Equal(t, "https://image.tmdb.org/t/p/w342/abc.jpg", c.ImageURL("/abc.jpg", ""))
	assert.Equal(t, "https://image.tmdb.org/t/p/original/abc.jpg", c.ImageURL("/abc.jpg", "original"))

	assert.Equal(t, "https://vidsrc.to/embed/movie/27205", c.PlayerURL(domain.MediaMovie, 27205, 0, 0))
	assert.Equal(t, "https://vidsrc.to/embed/tv/1399/2/5", c.PlayerURL(domain.MediaTV, 1399, 2, 5))
}
