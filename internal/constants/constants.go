// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort         = "8080"
	DefaultDBPath       = "cratekeeper.db"
	DefaultDiscogsURL   = "https://api.discogs.com"
	DefaultAuthorizeURL = "https://www.discogs.com/oauth/authorize"
	DefaultHTTPTimeout  = 30 * time.Second
)

// Discogs API
const (
	CollectionPageSize = 100
	WantlistPageSize   = 100
	// AllReleasesFolder is the virtual folder that spans every real folder.
	AllReleasesFolder = 0
	// MinRequestInterval spaces successive API calls to stay under the
	// Discogs per-minute budget for authenticated clients.
	MinRequestInterval = 1100 * time.Millisecond
)

// Market price cache
const (
	MarketCacheKey    = "market_prices"
	MarketCacheTTL    = 30 * 24 * time.Hour
	PriceFetchDelay   = 500 * time.Millisecond
	CompletePhaseHold = 500 * time.Millisecond
)

// Database
const (
	CacheTable    = "cache"
	SessionsTable = "sessions"
)

// DefaultSessionName is used when an item is bookmarked with no sessions yet.
const DefaultSessionName = "My First Session"
