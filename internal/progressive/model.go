// Package progressive loads media metadata in two phases: an essential phase that
// yields everything needed to start playback after one round trip, and an
// additional phase that enriches the result in the background.
//
// An Extractor is bound to one ResourceHandle and one Provider. It is not safe for
// concurrent use; callers serialize access, or hand it to an Orchestrator which owns
// it until the returned Handle resolves.
package progressive

import (
	"errors"
	"strings"
	"time"
)

// ResourceHandle identifies one remote resource. It is a value type and never
// changes after construction.
type ResourceHandle struct {
	provider string
	id       string
	url      string
}

// NewResourceHandle builds a handle for the resource id served by provider.
func NewResourceHandle(provider, id, url string) (ResourceHandle, error) {
	provider = strings.TrimSpace(provider)
	id = strings.TrimSpace(id)
	if provider == "" {
		return ResourceHandle{}, errors.New("resource handle: provider is required")
	}
	if id == "" {
		return ResourceHandle{}, errors.New("resource handle: id is required")
	}
	return ResourceHandle{provider: provider, id: id, url: strings.TrimSpace(url)}, nil
}

func (h ResourceHandle) Provider() string { return h.provider }
func (h ResourceHandle) ID() string       { return h.id }
func (h ResourceHandle) URL() string      { return h.url }

// Key is unique per provider and resource. The orchestrator uses it for single-flight.
func (h ResourceHandle) Key() string { return h.provider + ":" + h.id }

// IsZero reports whether h was not built by NewResourceHandle.
func (h ResourceHandle) IsZero() bool { return h.provider == "" && h.id == "" }

func (h ResourceHandle) String() string { return h.Key() }

// Phase is the monotonic progress marker of an Extractor.
type Phase int

const (
	PhaseUnstarted Phase = iota
	PhaseEssentialLoaded
	PhaseAdditionalLoaded
)

func (p Phase) String() string {
	switch p {
	case PhaseUnstarted:
		return "unstarted"
	case PhaseEssentialLoaded:
		return "essential_loaded"
	case PhaseAdditionalLoaded:
		return "additional_loaded"
	}
	return "unknown"
}

// StreamType classifies what kind of playback a resource offers.
type StreamType int

const (
	StreamTypeNone StreamType = iota
	StreamTypeVideo
	StreamTypeAudio
	StreamTypeLive
	StreamTypeAudioLive
	StreamTypePostLive
)

func (t StreamType) String() string {
	names := [...]string{"none", "video", "audio", "live", "audio_live", "post_live"}
	if t < 0 || int(t) >= len(names) {
		return "unknown"
	}
	return names[t]
}

func (t StreamType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// VideoStream describes one playable video rendition. VideoOnly streams carry no
// audio track and need to be paired with an AudioStream.
type VideoStream struct {
	Itag       int    `json:"itag"`
	URL        string `json:"url"`
	MimeType   string `json:"mime_type"`
	Codec      string `json:"codec,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	FPS        int    `json:"fps,omitempty"`
	Bitrate    int    `json:"bitrate,omitempty"`
	VideoOnly  bool   `json:"video_only"`
}

// AudioStream describes one playable audio rendition.
type AudioStream struct {
	Itag           int    `json:"itag"`
	URL            string `json:"url"`
	MimeType       string `json:"mime_type"`
	Codec          string `json:"codec,omitempty"`
	Bitrate        int    `json:"bitrate,omitempty"`
	AverageBitrate int    `json:"average_bitrate,omitempty"`
	TrackID        string `json:"track_id,omitempty"`
	TrackName      string `json:"track_name,omitempty"`
}

type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type DescriptionType string

const (
	DescriptionPlain    DescriptionType = "plain"
	DescriptionHTML     DescriptionType = "html"
	DescriptionMarkdown DescriptionType = "markdown"
)

type Description struct {
	Content string          `json:"content"`
	Type    DescriptionType `json:"type"`
}

// RelatedItem is a lightweight reference to another resource.
type RelatedItem struct {
	ID           string        `json:"id"`
	URL          string        `json:"url"`
	Name         string        `json:"name"`
	UploaderName string        `json:"uploader_name,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	ViewCount    int64         `json:"view_count"`
	Thumbnails   []Image       `json:"thumbnails,omitempty"`
}

// FieldFailure records one optional field that could not be extracted.
// It is data carried inside a result, never an error returned to the caller.
type FieldFailure struct {
	Field string
	Err   error
}

func (f FieldFailure) String() string {
	if f.Err == nil {
		return f.Field
	}
	return f.Field + ": " + f.Err.Error()
}

func (f FieldFailure) MarshalJSON() ([]byte, error) {
	return marshalFailure(f)
}
