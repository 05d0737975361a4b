package progressive

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoPlayableStreams means neither a video nor an audio stream could be
	// extracted, so the resource cannot be played.
	ErrNoPlayableStreams = errors.New("no playable streams: neither video nor audio streams are available")

	// ErrCanceled resolves a Handle whose work was canceled.
	ErrCanceled = errors.New("additional fetch canceled")

	// ErrOrchestratorClosed resolves handles scheduled after Close.
	ErrOrchestratorClosed = errors.New("orchestrator closed")
)

// StateError reports an accessor used before its phase was reached.
// It is always a caller bug and is not worth retrying.
type StateError struct {
	Op       string
	Required Phase
	Current  Phase
}

func (e *StateError) Error() string {
	if e.Required == PhaseAdditionalLoaded {
		return fmt.Sprintf("%s: additional data not loaded (phase %s)", e.Op, e.Current)
	}
	return fmt.Sprintf("%s: essential data not loaded (phase %s)", e.Op, e.Current)
}

// FetchError wraps a failed provider round trip. The phase did not advance, so the
// same call may be retried.
type FetchError struct {
	Phase  Phase // phase that was being loaded
	Handle ResourceHandle
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for %s: %v", e.Phase, e.Handle, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError means the provider answered but the payload is unusable for
// the essential phase. The phase did not advance.
type ValidationError struct {
	Handle ResourceHandle
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validate essential data for %s: %s: %v", e.Handle, e.Reason, e.Err)
	}
	return fmt.Sprintf("validate essential data for %s: %s", e.Handle, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IncompleteEssentialDataError lists the must-have fields that were missing or
// invalid when building an EssentialResult.
type IncompleteEssentialDataError struct {
	Missing []string
	Errs    []error
}

func (e *IncompleteEssentialDataError) Error() string {
	return "incomplete essential data: missing or invalid " + strings.Join(e.Missing, ", ")
}

func (e *IncompleteEssentialDataError) Unwrap() []error { return e.Errs }

// ContentUnavailableError carries the provider's own explanation for why a
// resource cannot be extracted (removed, private, region locked, ...).
type ContentUnavailableError struct {
	Reason string
	Err    error
}

func (e *ContentUnavailableError) Error() string {
	return "content not available: " + e.Reason
}

func (e *ContentUnavailableError) Unwrap() error { return e.Err }
