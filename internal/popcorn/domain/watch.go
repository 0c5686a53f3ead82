package domain

import (
	"fmt"
	"time"
)

// MaxContinueWatching caps the continue-watching list.
const MaxContinueWatching = 20

// WatchlistItem is an entry of the favorites or watchlist.
type WatchlistItem struct {
	ID          int       `json:"id" validate:"required,gt=0"`
	Title       string    `json:"title"`
	PosterPath  string    `json:"poster_path"`
	VoteAverage float64   `json:"vote_average"`
	MediaType   MediaType `json:"media_type" validate:"required,oneof=movie tv"`
	AddedAt     time.Time `json:"addedAt"`
}

// ContinueWatchingItem remembers where the user left a title.
type ContinueWatchingItem struct {
	WatchlistItem
	Season        int       `json:"season,omitempty"`
	Episode       int       `json:"episode,omitempty"`
	Progress      float64   `json:"progress,omitempty"` // percentage watched
	LastWatchedAt time.Time `json:"lastWatchedAt"`
}

// EpisodeProgress tracks a single show.
type EpisodeProgress struct {
	ShowID          int       `json:"showId"`
	CurrentSeason   int       `json:"currentSeason"`
	CurrentEpisode  int       `json:"currentEpisode"`
	WatchedEpisodes []string  `json:"watchedEpisodes"`
	LastWatchedAt   time.Time `json:"lastWatchedAt"`
}

// EpisodeKey formats the "season-episode" identifier used in WatchedEpisodes.
func EpisodeKey(season, episode int) string {
	return fmt.Sprintf("%d-%d", season, episode)
}

// SeasonProgress summarizes how much of a season has been watched.
type SeasonProgress struct {
	Watched    int
	Total      int
	Percentage int
}

// APIKeys are the credentials the user supplies for third-party services.
type APIKeys struct {
	TMDB    string `json:"tmdb"`
	YouTube string `json:"youtube"`
}

// UserProfile is the locally stored profile.
type UserProfile struct {
	Name  string `json:"name" validate:"max=120"`
	Email string `json:"email" validate:"omitempty,email"`
}
