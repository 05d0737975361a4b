package progressive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Orchestrator runs additional fetches in the background, at most one in flight
// per resource.
type Orchestrator struct {
	log        *slog.Logger
	sem        chan struct{} // nil = unbounded
	onComplete func(ResourceHandle, *CombinedResult, error)

	mu       sync.Mutex
	inflight map[string]*Handle
	closed   bool
	stop     chan struct{}
	wg       sync.WaitGroup
}

type Option func(*Orchestrator)

// WithMaxConcurrent bounds the number of additional fetches running at once.
// Extra work waits in the queue, where it can still be canceled before it
// reaches the provider. n <= 0 means unbounded.
func WithMaxConcurrent(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.sem = make(chan struct{}, n)
		}
	}
}

// WithOnComplete registers fn to run after a handle resolves with a result or
// an error. It is not called for canceled handles.
func WithOnComplete(fn func(ResourceHandle, *CombinedResult, error)) Option {
	return func(o *Orchestrator) { o.onComplete = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		log:      slog.Default(),
		inflight: make(map[string]*Handle),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ScheduleAdditional loads the additional phase of e in the background and
// returns a handle resolving to the merged result. While a fetch for the same
// resource is in flight the existing handle is returned and e is left untouched.
// A canceled handle no longer counts as in flight, even while its abandoned
// provider call is still running.
//
// The orchestrator owns e until the handle resolves. The work keeps ctx values
// but not its cancellation; use Handle.Cancel instead.
func (o *Orchestrator) ScheduleAdditional(ctx context.Context, e *Extractor) *Handle {
	key := e.Handle().Key()

	o.mu.Lock()
	if h, ok := o.live(key); ok {
		o.mu.Unlock()
		o.log.Debug("additional fetch already in flight",
			slog.String("key", key), slog.String("handle", h.ID().String()))
		return h
	}
	h := newHandle(e.Handle())
	if o.closed {
		o.mu.Unlock()
		h.resolve(nil, ErrOrchestratorClosed)
		return h
	}
	o.inflight[key] = h
	o.wg.Add(1)
	o.mu.Unlock()

	o.log.Debug("additional fetch scheduled",
		slog.String("key", key), slog.String("handle", h.ID().String()))
	go o.run(context.WithoutCancel(ctx), e, h)
	return h
}

// Lookup returns the in-flight handle for resource, if any.
func (o *Orchestrator) Lookup(resource ResourceHandle) (*Handle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.live(resource.Key())
}

// live returns the handle for key unless it was canceled. o.mu must be held.
func (o *Orchestrator) live(key string) (*Handle, bool) {
	h, ok := o.inflight[key]
	if !ok || h.State() == HandleCanceled {
		return nil, false
	}
	return h, true
}

// InFlight returns the number of handles not yet finished.
func (o *Orchestrator) InFlight() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.inflight)
}

// Close rejects new work, releases queued work with ErrOrchestratorClosed and
// waits for running work to return.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.stop)
	o.mu.Unlock()
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, e *Extractor, h *Handle) {
	defer o.wg.Done()
	defer o.forget(h)

	log := o.log.With(slog.String("key", h.Resource().Key()), slog.String("handle", h.ID().String()))

	if o.sem != nil {
		select {
		case o.sem <- struct{}{}:
			defer func() { <-o.sem }()
		case <-h.canceled:
			log.Debug("additional fetch canceled before start")
			return
		case <-o.stop:
			h.resolve(nil, ErrOrchestratorClosed)
			return
		}
	}
	if !h.start() {
		log.Debug("additional fetch canceled before start")
		return
	}

	start := time.Now()
	res, err := complete(ctx, e)
	if !h.resolve(res, err) {
		log.Debug("additional fetch finished after cancel, result discarded",
			slog.Duration("elapsed", time.Since(start)))
		return
	}
	if err != nil {
		log.Warn("additional fetch failed", slog.Duration("elapsed", time.Since(start)), slog.Any("error", err))
	} else {
		log.Debug("additional fetch complete",
			slog.Duration("elapsed", time.Since(start)), slog.Int("failures", len(res.Failures)))
	}
	if o.onComplete != nil {
		o.onComplete(h.Resource(), res, err)
	}
}

// complete runs phase 2 and merges both phases. FetchAdditional runs the
// essential phase first if it is still missing.
func complete(ctx context.Context, e *Extractor) (res *CombinedResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("additional fetch for %s panicked: %v", e.Handle(), r)
		}
	}()

	if err := e.FetchAdditional(ctx); err != nil {
		return nil, err
	}
	ess, err := AssembleEssential(e)
	if err != nil {
		return nil, err
	}
	add, err := AssembleAdditional(e)
	if err != nil {
		return nil, err
	}
	return Merge(ess, add), nil
}

func (o *Orchestrator) forget(h *Handle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := h.Resource().Key()
	if o.inflight[key] == h {
		delete(o.inflight, key)
	}
}
