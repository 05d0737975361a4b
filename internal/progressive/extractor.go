package progressive

import (
	"context"
	"errors"
	"strings"
)

// Extractor owns the two-phase fetch state of one resource.
//
// Not safe for concurrent use: phase transitions and the fetched payloads are
// mutated by whichever goroutine runs FetchEssential or FetchAdditional.
type Extractor struct {
	handle   ResourceHandle
	provider Provider

	phase      Phase
	essential  EssentialData
	additional AdditionalData
}

func NewExtractor(h ResourceHandle, p Provider) *Extractor {
	return &Extractor{handle: h, provider: p}
}

func (e *Extractor) Handle() ResourceHandle { return e.handle }
func (e *Extractor) Phase() Phase           { return e.phase }

func (e *Extractor) IsEssentialLoaded() bool  { return e.phase >= PhaseEssentialLoaded }
func (e *Extractor) IsAdditionalLoaded() bool { return e.phase >= PhaseAdditionalLoaded }

// FetchEssential performs the single essential round trip. Once the essential
// phase is reached further calls return nil without touching the provider.
// On error the phase stays Unstarted so the call can be retried.
func (e *Extractor) FetchEssential(ctx context.Context) error {
	if e.phase >= PhaseEssentialLoaded {
		return nil
	}

	data, err := e.provider.FetchEssentialData(ctx, e.handle)
	if err != nil {
		return &FetchError{Phase: PhaseEssentialLoaded, Handle: e.handle, Err: err}
	}
	if err := e.validateEssential(data); err != nil {
		return err
	}

	e.essential = data
	e.phase = PhaseEssentialLoaded
	return nil
}

// validateEssential rejects payloads that cannot even identify the resource.
// Field-level completeness is judged later by AssembleEssential.
func (e *Extractor) validateEssential(data EssentialData) error {
	if data == nil {
		return &ValidationError{Handle: e.handle, Reason: "provider returned no data"}
	}
	id, err := data.ID()
	if err != nil {
		return &ValidationError{Handle: e.handle, Reason: "resource id not extractable", Err: err}
	}
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Handle: e.handle, Reason: "resource id is empty"}
	}
	return nil
}

// FetchAdditional loads the enrichment data, running FetchEssential first when
// needed so the essential phase is never skipped. The phase advances once the
// provider answers; field-level problems surface later as FieldFailures.
func (e *Extractor) FetchAdditional(ctx context.Context) error {
	if e.phase >= PhaseAdditionalLoaded {
		return nil
	}
	if e.phase < PhaseEssentialLoaded {
		if err := e.FetchEssential(ctx); err != nil {
			return err
		}
	}

	data, err := e.provider.FetchAdditionalData(ctx, e.handle)
	if err != nil {
		return &FetchError{Phase: PhaseAdditionalLoaded, Handle: e.handle, Err: err}
	}
	if data == nil {
		return &FetchError{Phase: PhaseAdditionalLoaded, Handle: e.handle, Err: errors.New("provider returned no data")}
	}

	e.additional = data
	e.phase = PhaseAdditionalLoaded
	return nil
}

// EssentialVideoStreams returns the muxed video streams of the essential payload.
func (e *Extractor) EssentialVideoStreams() ([]VideoStream, error) {
	if err := e.requireEssential("essential video streams"); err != nil {
		return nil, err
	}
	return e.essential.VideoStreams()
}

func (e *Extractor) EssentialAudioStreams() ([]AudioStream, error) {
	if err := e.requireEssential("essential audio streams"); err != nil {
		return nil, err
	}
	return e.essential.AudioStreams()
}

func (e *Extractor) EssentialVideoOnlyStreams() ([]VideoStream, error) {
	if err := e.requireEssential("essential video-only streams"); err != nil {
		return nil, err
	}
	return e.essential.VideoOnlyStreams()
}

// EssentialData returns the raw essential payload.
func (e *Extractor) EssentialData() (EssentialData, error) {
	if err := e.requireEssential("essential data"); err != nil {
		return nil, err
	}
	return e.essential, nil
}

func (e *Extractor) AdditionalData() (AdditionalData, error) {
	if e.phase < PhaseAdditionalLoaded {
		return nil, &StateError{Op: "additional data", Required: PhaseAdditionalLoaded, Current: e.phase}
	}
	return e.additional, nil
}

func (e *Extractor) requireEssential(op string) error {
	if e.phase < PhaseEssentialLoaded {
		return &StateError{Op: op, Required: PhaseEssentialLoaded, Current: e.phase}
	}
	return nil
}
