// go_stream: progressive YouTube metadata MCP server.
//
// Exposes stream_essential, stream_info, stream_cancel and stream_history.
// Playback data comes back after a single request; the rest of the metadata
// loads in the background and is cached once complete.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_stream/internal/engine"
	"github.com/anatolykoptev/go_stream/internal/engine/history"
	"github.com/anatolykoptev/go_stream/internal/engine/sources"
	"github.com/anatolykoptev/go_stream/internal/streamserver"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	c := initEngine()

	slog.Info("starting go_stream",
		slog.String("port", mcpPort),
		slog.Int("background_concurrency", c.BackgroundConcurrency),
	)

	opts := []streamserver.Option{
		streamserver.WithMaxConcurrent(c.BackgroundConcurrency),
		streamserver.WithDescriptionLimit(c.DescriptionMaxChars),
		streamserver.WithLanguage(c.YouTubeHL),
	}
	store, err := history.Open(context.Background(), c.DatabaseURL, c.HistoryPath)
	if err != nil {
		slog.Warn("lookup history disabled", slog.Any("error", err))
	} else {
		opts = append(opts, streamserver.WithHistory(store))
		slog.Info("lookup history initialized", slog.Bool("postgres", c.DatabaseURL != ""))
	}

	svc := streamserver.NewService(sources.NewYouTubeProvider(), sources.YouTubeHandle, opts...)
	defer svc.Close()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_stream",
		Version: version,
	}, nil)

	streamserver.RegisterTools(server, svc)
	slog.Info("tools registered", slog.Int("count", 4))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_stream",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 180 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() engine.Config {
	fetchTimeout := env.Duration("FETCH_TIMEOUT", 15*time.Second)
	c := engine.Config{
		FetchTimeout:          fetchTimeout,
		YouTubeBaseURL:        env.Str("YOUTUBE_BASE_URL", "https://www.youtube.com"),
		YouTubeHL:             env.Str("YOUTUBE_HL", "en"),
		YouTubeGL:             env.Str("YOUTUBE_GL", "US"),
		ProviderRPS:           env.Float("PROVIDER_RPS", 5),
		ProviderBurst:         env.Int("PROVIDER_BURST", 10),
		BackgroundConcurrency: env.Int("BACKGROUND_CONCURRENCY", 4),
		DescriptionMaxChars:   env.Int("DESCRIPTION_MAX_CHARS", 4000),
		CacheMaxEntries:       env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval:  env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		DatabaseURL:           env.Str("DATABASE_URL", ""),
		HistoryPath:           env.Str("HISTORY_PATH", history.DefaultPath()),
		HTTPClient: &http.Client{
			Timeout: fetchTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	bc, err := engine.NewBrowserClient(int(fetchTimeout/time.Second), env.Str("WEBSHARE_API_KEY", ""))
	if err != nil {
		slog.Warn("stealth client init failed, watch page fetched over plain HTTP", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Info("stealth browser client initialized")
	}

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 15*time.Minute)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
	return c
}
