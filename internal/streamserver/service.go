package streamserver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/anatolykoptev/go_stream/internal/engine"
	"github.com/anatolykoptev/go_stream/internal/engine/history"
	"github.com/anatolykoptev/go_stream/internal/progressive"
)

const (
	defaultWait = 20 * time.Second
	maxWait     = 120 * time.Second
)

// Resolver turns a user supplied link into a resource handle.
type Resolver func(link string) (progressive.ResourceHandle, error)

// Service runs lookups for the MCP tools: the essential phase on the caller's
// goroutine, the rest through the orchestrator.
type Service struct {
	provider progressive.Provider
	resolve  Resolver
	orch     *progressive.Orchestrator
	history  history.Store // nil = not recorded
	descMax  int
	hl       string
	log      *slog.Logger

	mu      sync.Mutex
	lookups map[string]lookup // by resource key, until the orchestrator reports back
}

type lookup struct {
	name      string
	essential time.Duration
	scheduled time.Time
}

type Option func(*serviceOptions)

type serviceOptions struct {
	history       history.Store
	maxConcurrent int
	descMax       int
	hl            string
	log           *slog.Logger
}

func WithHistory(s history.Store) Option { return func(o *serviceOptions) { o.history = s } }

// WithMaxConcurrent bounds the background loads running at once.
func WithMaxConcurrent(n int) Option { return func(o *serviceOptions) { o.maxConcurrent = n } }

// WithDescriptionLimit truncates descriptions to n runes at a word boundary.
func WithDescriptionLimit(n int) Option { return func(o *serviceOptions) { o.descMax = n } }

// WithLanguage keys cached results by interface language.
func WithLanguage(hl string) Option { return func(o *serviceOptions) { o.hl = hl } }

func WithLogger(l *slog.Logger) Option { return func(o *serviceOptions) { o.log = l } }

func NewService(p progressive.Provider, resolve Resolver, opts ...Option) *Service {
	o := serviceOptions{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Service{
		provider: p,
		resolve:  resolve,
		history:  o.history,
		descMax:  o.descMax,
		hl:       o.hl,
		log:      o.log,
		lookups:  make(map[string]lookup),
	}
	s.orch = progressive.NewOrchestrator(
		progressive.WithMaxConcurrent(o.maxConcurrent),
		progressive.WithOnComplete(s.complete),
		progressive.WithLogger(o.log),
	)
	return s
}

// Close stops background work and closes the history store.
func (s *Service) Close() {
	s.orch.Close()
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.log.Warn("history close failed", slog.Any("error", err))
		}
	}
}

func (s *Service) cacheKey(h progressive.ResourceHandle) string {
	return engine.CacheKey("stream_info", h.Key(), s.hl)
}

// Essential loads what playback needs and starts loading the rest in the
// background.
func (s *Service) Essential(ctx context.Context, link string) (*EssentialOutput, error) {
	h, err := s.resolve(link)
	if err != nil {
		return nil, err
	}

	if running, ok := s.running(h); ok {
		// A background load already owns this resource; answer with a fresh
		// essential round trip and point at the running handle.
		engine.IncrDeduplicated()
		res, _, err := s.loadEssential(ctx, progressive.NewExtractor(h, s.provider))
		if err != nil {
			return nil, err
		}
		out := essentialOutput(res)
		out.AdditionalHandle = running.ID().String()
		out.AdditionalState = running.State().String()
		return out, nil
	}

	e := progressive.NewExtractor(h, s.provider)
	res, took, err := s.loadEssential(ctx, e)
	if err != nil {
		s.record(ctx, h, lookup{essential: took}, nil, err)
		return nil, err
	}
	handle := s.schedule(ctx, e, lookup{name: res.Name, essential: took})

	out := essentialOutput(res)
	out.AdditionalHandle = handle.ID().String()
	out.AdditionalState = handle.State().String()
	return out, nil
}

// Info returns the complete metadata, waiting up to wait for the background
// part. When the wait runs out the essential part comes back with Pending set.
func (s *Service) Info(ctx context.Context, link string, wait time.Duration, refresh bool) (*StreamInfoOutput, error) {
	h, err := s.resolve(link)
	if err != nil {
		return nil, err
	}
	key := s.cacheKey(h)
	if !refresh {
		if out, ok := engine.CacheLoadJSON[StreamInfoOutput](ctx, key); ok {
			out.Cached = true
			return &out, nil
		}
	}

	var (
		handle *progressive.Handle
		ess    *progressive.EssentialResult
	)
	if running, ok := s.running(h); ok {
		engine.IncrDeduplicated()
		handle = running
	} else {
		e := progressive.NewExtractor(h, s.provider)
		res, took, err := s.loadEssential(ctx, e)
		if err != nil {
			s.record(ctx, h, lookup{essential: took}, nil, err)
			return nil, err
		}
		ess = res
		handle = s.schedule(ctx, e, lookup{name: res.Name, essential: took})
	}

	wctx, cancel := context.WithTimeout(ctx, clampWait(wait))
	defer cancel()
	res, err := handle.Wait(wctx)
	switch {
	case err == nil:
		out := infoOutput(res, s.descMax)
		engine.CacheStoreJSON(ctx, key, *out)
		return out, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		out := &StreamInfoOutput{Pending: true, Handle: handle.ID().String()}
		if ess != nil {
			out.Essential = essentialOutput(ess)
			out.Failures = out.Essential.Failures
		}
		return out, nil
	default:
		return nil, err
	}
}

// Cancel stops the background load of link, if one is running.
func (s *Service) Cancel(link string) (*StreamCancelOutput, error) {
	h, err := s.resolve(link)
	if err != nil {
		return nil, err
	}
	running, ok := s.running(h)
	if !ok || !running.Cancel() {
		return &StreamCancelOutput{Message: "no background load in flight for " + h.Key()}, nil
	}
	engine.IncrCanceled()
	s.mu.Lock()
	delete(s.lookups, h.Key())
	s.mu.Unlock()
	return &StreamCancelOutput{Canceled: true, Message: "canceled background load " + running.ID().String()}, nil
}

// History lists recent lookups.
func (s *Service) History(ctx context.Context, provider string, limit int) (*StreamHistoryOutput, error) {
	if s.history == nil {
		return nil, errors.New("lookup history is not configured")
	}
	entries, err := s.history.Recent(ctx, provider, limit)
	if err != nil {
		return nil, err
	}
	out := &StreamHistoryOutput{Entries: make([]HistoryEntry, 0, len(entries)), Total: len(entries)}
	for _, e := range entries {
		out.Entries = append(out.Entries, historyEntry(e))
	}
	return out, nil
}

// running returns the background load of h while it is queued or running.
// A resolved handle can linger until its goroutine returns.
func (s *Service) running(h progressive.ResourceHandle) (*progressive.Handle, bool) {
	hd, ok := s.orch.Lookup(h)
	if !ok {
		return nil, false
	}
	switch hd.State() {
	case progressive.HandleQueued, progressive.HandleRunning:
		return hd, true
	}
	return nil, false
}

func (s *Service) loadEssential(ctx context.Context, e *progressive.Extractor) (*progressive.EssentialResult, time.Duration, error) {
	var res *progressive.EssentialResult
	start := time.Now()
	err := engine.TrackOperation(ctx, "essential "+e.Handle().Key(), func(ctx context.Context) error {
		var err error
		res, err = progressive.LoadEssential(ctx, e)
		return err
	})
	took := time.Since(start)
	if err != nil {
		return nil, took, err
	}
	engine.AddFieldFailures(len(res.Failures))
	return res, took, nil
}

func (s *Service) schedule(ctx context.Context, e *progressive.Extractor, l lookup) *progressive.Handle {
	l.scheduled = time.Now()
	s.mu.Lock()
	s.lookups[e.Handle().Key()] = l
	s.mu.Unlock()

	engine.IncrScheduled()
	return s.orch.ScheduleAdditional(ctx, e)
}

// complete runs once per resolved background load.
func (s *Service) complete(h progressive.ResourceHandle, res *progressive.CombinedResult, err error) {
	s.mu.Lock()
	l := s.lookups[h.Key()]
	delete(s.lookups, h.Key())
	s.mu.Unlock()

	ctx := context.Background()
	if err == nil {
		engine.AddFieldFailures(len(res.AdditionalResult.Failures))
		engine.CacheStoreJSON(ctx, s.cacheKey(h), *infoOutput(res, s.descMax))
	}
	s.record(ctx, h, l, res, err)
}

func (s *Service) record(ctx context.Context, h progressive.ResourceHandle, l lookup, res *progressive.CombinedResult, err error) {
	if s.history == nil {
		return
	}
	entry := history.Entry{
		Key:        h.Key(),
		Provider:   h.Provider(),
		ResourceID: h.ID(),
		Name:       l.name,
		Essential:  l.essential,
	}
	if !l.scheduled.IsZero() {
		entry.Additional = time.Since(l.scheduled)
	}
	if res != nil {
		entry.Name = res.Name
		entry.FieldFailure = len(res.Failures)
	}
	if err != nil {
		entry.Error = err.Error()
	}
	werr := s.history.Record(ctx, entry)
	engine.IncrHistoryWrite(werr == nil)
	if werr != nil {
		s.log.Warn("history write failed", slog.String("key", entry.Key), slog.Any("error", werr))
	}
}

func clampWait(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultWait
	}
	return min(d, maxWait)
}
