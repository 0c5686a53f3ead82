package watchstate

// Storage keys. They match the keys the viewer has always persisted under.
const (
	KeyFavorites              = "favorites"
	KeyWatchlist              = "watchlist"
	KeyContinueWatching       = "continueWatching"
	KeyEpisodeTracking        = "episode-tracking"
	KeyAPIKeys                = "apiKeys"
	KeyUserProfile            = "userProfile"
	KeySplashShown            = "splashShown"
	KeyInstallPromptDismissed = "installPromptDismissed"
)

// APIKeySource is consumed by the catalog wiring to pick up the user's key.
type APIKeySource interface {
	CatalogKey() (string, error)
}
