package progressive

import (
	"encoding/json"
	"slices"
	"time"
)

// EssentialResult holds what is needed to start playback. It is built once per
// assembly and never modified afterwards.
type EssentialResult struct {
	Provider    string     `json:"provider"`
	URL         string     `json:"url"`
	OriginalURL string     `json:"original_url,omitempty"`
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	StreamType  StreamType `json:"stream_type"`
	AgeLimit    int        `json:"age_limit"`

	UploaderName    string        `json:"uploader_name,omitempty"`
	UploaderURL     string        `json:"uploader_url,omitempty"`
	Duration        time.Duration `json:"duration"`
	Thumbnails      []Image       `json:"thumbnails,omitempty"`
	DashManifestURL string        `json:"dash_manifest_url,omitempty"`
	HLSManifestURL  string        `json:"hls_manifest_url,omitempty"`

	VideoStreams     []VideoStream `json:"video_streams"`
	AudioStreams     []AudioStream `json:"audio_streams"`
	VideoOnlyStreams []VideoStream `json:"video_only_streams"`

	Failures []FieldFailure `json:"failures,omitempty"`
}

// AdditionalResult holds enrichment metadata. Counts are -1 when unknown; a
// field that could not be extracted is listed in Failures.
type AdditionalResult struct {
	Description       *Description `json:"description,omitempty"`
	ViewCount         int64        `json:"view_count"`
	LikeCount         int64        `json:"like_count"`
	DislikeCount      int64        `json:"dislike_count"`
	TextualUploadDate string       `json:"textual_upload_date,omitempty"`
	UploadDate        time.Time    `json:"upload_date,omitzero"`
	Category          string       `json:"category,omitempty"`
	Licence           string       `json:"licence,omitempty"`
	Tags              []string     `json:"tags,omitempty"`

	UploaderAvatars         []Image `json:"uploader_avatars,omitempty"`
	UploaderSubscriberCount int64   `json:"uploader_subscriber_count"`
	UploaderVerified        bool    `json:"uploader_verified"`
	SubChannelName          string  `json:"sub_channel_name,omitempty"`
	SubChannelURL           string  `json:"sub_channel_url,omitempty"`
	SubChannelAvatars       []Image `json:"sub_channel_avatars,omitempty"`

	RelatedItems []RelatedItem `json:"related_items,omitempty"`
	FeedURL      string        `json:"feed_url,omitempty"`

	Failures []FieldFailure `json:"failures,omitempty"`
}

// CombinedResult is the essential and additional data of one resource together
// with every field failure met on the way. It belongs to the caller.
type CombinedResult struct {
	EssentialResult
	AdditionalResult

	Failures []FieldFailure `json:"failures,omitempty"`
}

// Merge combines two results without modifying either. Essential failures come
// first in the combined failure list.
func Merge(ess *EssentialResult, add *AdditionalResult) *CombinedResult {
	out := &CombinedResult{}
	if ess != nil {
		out.EssentialResult = *ess
	}
	if add != nil {
		out.AdditionalResult = *add
	} else {
		out.AdditionalResult = emptyAdditional()
	}
	out.Failures = make([]FieldFailure, 0, len(out.EssentialResult.Failures)+len(out.AdditionalResult.Failures))
	out.Failures = append(out.Failures, out.EssentialResult.Failures...)
	out.Failures = append(out.Failures, out.AdditionalResult.Failures...)
	return out
}

// Failed reports whether field is among the recorded failures.
func (r *CombinedResult) Failed(field string) bool { return hasFailure(r.Failures, field) }

func (r *EssentialResult) Failed(field string) bool { return hasFailure(r.Failures, field) }

func (r *AdditionalResult) Failed(field string) bool { return hasFailure(r.Failures, field) }

func hasFailure(failures []FieldFailure, field string) bool {
	return slices.ContainsFunc(failures, func(f FieldFailure) bool { return f.Field == field })
}

func emptyAdditional() AdditionalResult {
	return AdditionalResult{ViewCount: -1, LikeCount: -1, DislikeCount: -1, UploaderSubscriberCount: -1}
}

func marshalFailure(f FieldFailure) ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		Field string `json:"field"`
		Error string `json:"error"`
	}{f.Field, msg})
}
