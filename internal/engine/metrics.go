package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	EssentialFetches   atomic.Int64
	AdditionalFetches  atomic.Int64
	FetchErrors        atomic.Int64
	FieldFailures      atomic.Int64
	WatchPageFallbacks atomic.Int64
	RateLimitWaits     atomic.Int64
	Scheduled          atomic.Int64
	Deduplicated       atomic.Int64
	Canceled           atomic.Int64
	HistoryWrites      atomic.Int64
	HistoryErrors      atomic.Int64
}

var metricKeys = []string{
	"essential_fetches", "additional_fetches", "fetch_errors",
	"field_failures", "watch_page_fallbacks", "rate_limit_waits",
	"scheduled", "deduplicated", "canceled",
	"history_writes", "history_errors",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"essential_fetches":    metrics.EssentialFetches.Load(),
		"additional_fetches":   metrics.AdditionalFetches.Load(),
		"fetch_errors":         metrics.FetchErrors.Load(),
		"field_failures":       metrics.FieldFailures.Load(),
		"watch_page_fallbacks": metrics.WatchPageFallbacks.Load(),
		"rate_limit_waits":     metrics.RateLimitWaits.Load(),
		"scheduled":            metrics.Scheduled.Load(),
		"deduplicated":         metrics.Deduplicated.Load(),
		"canceled":             metrics.Canceled.Load(),
		"history_writes":       metrics.HistoryWrites.Load(),
		"history_errors":       metrics.HistoryErrors.Load(),
		"cache_hits":           hits,
		"cache_misses":         misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sources/ sub-package.
func IncrEssentialFetch()    { metrics.EssentialFetches.Add(1) }
func IncrAdditionalFetch()   { metrics.AdditionalFetches.Add(1) }
func IncrFetchError()        { metrics.FetchErrors.Add(1) }
func IncrWatchPageFallback() { metrics.WatchPageFallbacks.Add(1) }
func IncrRateLimitWait()     { metrics.RateLimitWaits.Add(1) }

// Incrementors for the tool layer.
func IncrScheduled()         { metrics.Scheduled.Add(1) }
func IncrDeduplicated()      { metrics.Deduplicated.Add(1) }
func IncrCanceled()          { metrics.Canceled.Add(1) }
func AddFieldFailures(n int) { metrics.FieldFailures.Add(int64(n)) }
func IncrHistoryWrite(ok bool) {
	if ok {
		metrics.HistoryWrites.Add(1)
		return
	}
	metrics.HistoryErrors.Add(1)
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
