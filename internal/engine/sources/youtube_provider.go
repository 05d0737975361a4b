package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_stream/internal/engine"
	"github.com/anatolykoptev/go_stream/internal/progressive"
)

// YouTubeProvider serves YouTube videos to the progressive extractor. It is
// stateless apart from its rate limiter and safe for concurrent use.
type YouTubeProvider struct {
	baseURL string
	hl, gl  string
	client  *http.Client
	browser *engine.BrowserClient
	limiter *rate.Limiter // nil = unlimited
	retry   engine.RetryConfig
}

var (
	_ progressive.Provider       = (*YouTubeProvider)(nil)
	_ progressive.EssentialData  = (*youtubeEssential)(nil)
	_ progressive.AdditionalData = (*youtubeAdditional)(nil)
)

// NewYouTubeProvider builds a provider from engine.Cfg.
func NewYouTubeProvider() *YouTubeProvider {
	c := engine.Cfg
	p := &YouTubeProvider{
		baseURL: strings.TrimRight(c.YouTubeBaseURL, "/"),
		hl:      c.YouTubeHL,
		gl:      c.YouTubeGL,
		client:  c.HTTPClient,
		browser: c.BrowserClient,
		retry:   engine.DefaultRetryConfig,
	}
	if c.ProviderRPS > 0 {
		burst := c.ProviderBurst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(c.ProviderRPS), burst)
	}
	return p
}

func (p *YouTubeProvider) Name() string { return ProviderYouTube }

// FetchEssentialData performs the single ANDROID /player round trip.
func (p *YouTubeProvider) FetchEssentialData(ctx context.Context, h progressive.ResourceHandle) (progressive.EssentialData, error) {
	engine.IncrEssentialFetch()
	resp, err := p.player(ctx, ytAndroid, h.ID())
	if err != nil {
		engine.IncrFetchError()
		return nil, err
	}
	if resp.VideoDetails == nil {
		engine.IncrFetchError()
		// Nothing to extract: surface YouTube's own explanation.
		if reason := resp.unavailableReason(); reason != "" {
			return nil, &progressive.ContentUnavailableError{Reason: reason, Err: errNoVideoDetails}
		}
		return nil, errNoVideoDetails
	}
	slog.Debug("youtube: essential data fetched", slog.String("id", h.ID()),
		slog.String("status", resp.PlayabilityStatus.Status))
	return &youtubeEssential{handle: h, resp: resp}, nil
}

// FetchAdditionalData runs /next and the WEB /player concurrently. The watch
// page stands in for /next when it fails. Only when neither source answers is
// the whole fetch an error.
func (p *YouTubeProvider) FetchAdditionalData(ctx context.Context, h progressive.ResourceHandle) (progressive.AdditionalData, error) {
	engine.IncrAdditionalFetch()
	data := &youtubeAdditional{}

	// Both goroutines record their own failure and return nil so one source
	// failing does not cancel the other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data.next, data.nextErr = p.watchNext(gctx, h.ID())
		return nil
	})
	g.Go(func() error {
		data.player, data.playerErr = p.player(gctx, ytWeb, h.ID())
		return nil
	})
	_ = g.Wait()

	if data.next == nil && data.player == nil {
		engine.IncrFetchError()
		return nil, errors.Join(data.nextErr, data.playerErr)
	}
	if data.nextErr != nil || data.playerErr != nil {
		slog.Warn("youtube: additional data partial", slog.String("id", h.ID()),
			slog.Any("next_error", data.nextErr), slog.Any("player_error", data.playerErr))
	}
	return data, nil
}

func (p *YouTubeProvider) player(ctx context.Context, c ytClient, videoID string) (*ytPlayerResp, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	body, err := postInnerTube(ctx, p.client, p.retry, p.baseURL, ytPlayerPath, c,
		newInnertubeReq(c, videoID, p.hl, p.gl, ""))
	if err != nil {
		return nil, err
	}
	var resp ytPlayerResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s player: %w", c.Name, err)
	}
	return &resp, nil
}

func (p *YouTubeProvider) watchNext(ctx context.Context, videoID string) (map[string]any, error) {
	next, err := p.next(ctx, videoID)
	if err == nil {
		return next, nil
	}
	slog.Warn("youtube: /next failed, trying watch page", slog.String("id", videoID), slog.Any("error", err))
	engine.IncrWatchPageFallback()

	if werr := p.wait(ctx); werr != nil {
		return nil, errors.Join(err, werr)
	}
	page, werr := p.fetchWatchPage(ctx, videoID)
	if werr != nil {
		return nil, errors.Join(err, fmt.Errorf("watch page: %w", werr))
	}
	data, werr := initialDataFromPage(page)
	if werr != nil {
		return nil, errors.Join(err, werr)
	}
	return data, nil
}

func (p *YouTubeProvider) next(ctx context.Context, videoID string) (map[string]any, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	visitorData := generateVisitorData()
	body, err := postInnerTube(ctx, p.client, p.retry, p.baseURL, ytNextPath, ytWeb,
		newInnertubeReq(ytWeb, videoID, p.hl, p.gl, visitorData))
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode /next: %w", err)
	}
	if dig(data, "contents", "twoColumnWatchNextResults") == nil {
		return nil, errors.New("/next: twoColumnWatchNextResults missing")
	}
	return data, nil
}

// wait blocks until the rate limiter admits one more request.
func (p *YouTubeProvider) wait(ctx context.Context) error {
	if p.limiter == nil || p.limiter.Allow() {
		return nil
	}
	engine.IncrRateLimitWait()
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("youtube rate limit: %w", err)
	}
	slog.Debug("youtube: rate limited", slog.Duration("waited", time.Since(start)))
	return nil
}
