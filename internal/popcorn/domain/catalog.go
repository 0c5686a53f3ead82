package domain

import (
	"fmt"
	"strings"
)

// MediaType discriminates movies from TV shows in the catalog.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// ParseMediaType accepts "movie" or "tv" (case-insensitive).
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(strings.ToLower(strings.TrimSpace(s))) {
	case MediaMovie:
		return MediaMovie, nil
	case MediaTV:
		return MediaTV, nil
	default:
		return "", fmt.Errorf("unsupported MediaType: %q", s)
	}
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Title is a movie or show as returned by the catalog. Movies carry Title and
// ReleaseDate, shows carry Name and FirstAirDate.
type Title struct {
	ID              int       `json:"id"`
	Title           string    `json:"title,omitempty"`
	Name            string    `json:"name,omitempty"`
	PosterPath      string    `json:"poster_path"`
	BackdropPath    string    `json:"backdrop_path"`
	VoteAverage     float64   `json:"vote_average"`
	Overview        string    `json:"overview"`
	ReleaseDate     string    `json:"release_date,omitempty"`
	FirstAirDate    string    `json:"first_air_date,omitempty"`
	GenreIDs        []int     `json:"genre_ids,omitempty"`
	Genres          []Genre   `json:"genres,omitempty"`
	Runtime         int       `json:"runtime,omitempty"`
	NumberOfSeasons int       `json:"number_of_seasons,omitempty"`
	MediaType       MediaType `json:"media_type,omitempty"`
}

// DisplayTitle returns Title, then Name, then a placeholder.
func (t Title) DisplayTitle() string {
	switch {
	case t.Title != "":
		return t.Title
	case t.Name != "":
		return t.Name
	default:
		return "Unknown Title"
	}
}

// ReleaseYear returns the year part of the release or first-air date, or "N/A".
func (t Title) ReleaseYear() string {
	for _, d := range []string{t.ReleaseDate, t.FirstAirDate} {
		if y, _, _ := strings.Cut(d, "-"); y != "" {
			return y
		}
	}
	return "N/A"
}

type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
}

type Video struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
	Site string `json:"site"`
	Type string `json:"type"`
}

// IsYouTubeTrailer reports whether the video can be shown in the trailer slot.
func (v Video) IsYouTubeTrailer() bool { return v.Site == "YouTube" && v.Type == "Trailer" }

type Episode struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	EpisodeNumber int     `json:"episode_number"`
	SeasonNumber  int     `json:"season_number"`
	StillPath     string  `json:"still_path"`
	AirDate       string  `json:"air_date"`
	Runtime       int     `json:"runtime"`
	VoteAverage   float64 `json:"vote_average"`
}

type Season struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Overview     string    `json:"overview"`
	SeasonNumber int       `json:"season_number"`
	AirDate      string    `json:"air_date"`
	PosterPath   string    `json:"poster_path"`
	Episodes     []Episode `json:"episodes"`
}

// SearchFilters narrows an advanced search. Zero values are ignored.
type SearchFilters struct {
	Genre     int
	Year      int
	MinRating float64
}
