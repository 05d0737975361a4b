package progressive

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// HandleState is the lifecycle of a scheduled additional fetch.
type HandleState int

const (
	HandleQueued HandleState = iota
	HandleRunning
	HandleDone
	HandleCanceled
)

func (s HandleState) String() string {
	switch s {
	case HandleQueued:
		return "queued"
	case HandleRunning:
		return "running"
	case HandleDone:
		return "done"
	case HandleCanceled:
		return "canceled"
	}
	return "unknown"
}

// Handle is the caller's view of one background additional fetch. It can be
// awaited, polled or canceled from any goroutine.
type Handle struct {
	id       uuid.UUID
	resource ResourceHandle

	mu       sync.Mutex
	state    HandleState
	result   *CombinedResult
	err      error
	done     chan struct{}
	canceled chan struct{}
}

func newHandle(resource ResourceHandle) *Handle {
	return &Handle{
		id:       uuid.New(),
		resource: resource,
		done:     make(chan struct{}),
		canceled: make(chan struct{}),
	}
}

func (h *Handle) ID() uuid.UUID            { return h.id }
func (h *Handle) Resource() ResourceHandle { return h.resource }
func (h *Handle) Key() string              { return h.resource.Key() }

// Done is closed once the handle has a result, an error, or was canceled.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) State() HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Wait blocks until the handle resolves or ctx ends. A ctx deadline only stops
// the wait; the background work keeps going.
func (h *Handle) Wait(ctx context.Context) (*CombinedResult, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Poll returns the outcome without blocking. ok is false while the work is
// still queued or running.
func (h *Handle) Poll() (res *CombinedResult, ok bool, err error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.result, true, h.err
	default:
		return nil, false, nil
	}
}

// Cancel stops the work. Queued work never reaches the provider; running work
// is not interrupted but its outcome is discarded. It reports whether this call
// canceled the handle.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == HandleDone || h.state == HandleCanceled {
		return false
	}
	h.state = HandleCanceled
	h.err = ErrCanceled
	close(h.canceled)
	close(h.done)
	return true
}

// start moves a queued handle to running. It fails when the handle was
// canceled in the meantime.
func (h *Handle) start() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != HandleQueued {
		return false
	}
	h.state = HandleRunning
	return true
}

// resolve stores the outcome unless the handle was canceled first.
func (h *Handle) resolve(res *CombinedResult, err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == HandleCanceled || h.state == HandleDone {
		return false
	}
	h.state = HandleDone
	h.result, h.err = res, err
	close(h.done)
	return true
}
