package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	FetchTimeout          time.Duration
	YouTubeBaseURL        string // Innertube and watch-page origin; tests point it at httptest
	YouTubeHL             string
	YouTubeGL             string
	ProviderRPS           float64 // <= 0 disables provider rate limiting
	ProviderBurst         int
	BackgroundConcurrency int
	DescriptionMaxChars   int
	CacheMaxEntries       int
	CacheCleanupInterval  time.Duration
	DatabaseURL           string // set = lookup history in PostgreSQL
	HistoryPath           string // sqlite history file when DatabaseURL is empty
	HTTPClient            *http.Client
	BrowserClient         *BrowserClient // nil = watch page fetched with HTTPClient
}

const defaultYouTubeBaseURL = "https://www.youtube.com"

var cfg = Config{
	FetchTimeout:   15 * time.Second,
	YouTubeBaseURL: defaultYouTubeBaseURL,
	YouTubeHL:      "en",
	YouTubeGL:      "US",
	HTTPClient:     http.DefaultClient,
}

// Cfg exposes the engine configuration for sub-packages (sources, history).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration. Empty fields fall
// back to defaults.
func Init(c Config) {
	if c.YouTubeBaseURL == "" {
		c.YouTubeBaseURL = defaultYouTubeBaseURL
	}
	if c.YouTubeHL == "" {
		c.YouTubeHL = "en"
	}
	if c.YouTubeGL == "" {
		c.YouTubeGL = "US"
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.FetchTimeout}
	}
	cfg = c
	Cfg = &cfg
}
