package streamserver

import (
	"time"

	"github.com/anatolykoptev/go_stream/internal/engine"
	"github.com/anatolykoptev/go_stream/internal/engine/history"
	"github.com/anatolykoptev/go_stream/internal/progressive"
)

// StreamEssentialInput is the input for stream_essential.
type StreamEssentialInput struct {
	URL string `json:"url" jsonschema:"YouTube watch, youtu.be, embed, shorts or live URL, or a bare 11-character video id"`
}

// StreamInfoInput is the input for stream_info.
type StreamInfoInput struct {
	URL         string `json:"url" jsonschema:"YouTube watch, youtu.be, embed, shorts or live URL, or a bare 11-character video id"`
	WaitSeconds int    `json:"wait_seconds,omitempty" jsonschema:"How long to wait for the additional metadata (default 20, max 120)"`
	Refresh     bool   `json:"refresh,omitempty" jsonschema:"Ignore the cached result and load again"`
}

// StreamCancelInput is the input for stream_cancel.
type StreamCancelInput struct {
	URL string `json:"url" jsonschema:"Link whose background metadata load should be canceled"`
}

// StreamHistoryInput is the input for stream_history.
type StreamHistoryInput struct {
	Provider string `json:"provider,omitempty" jsonschema:"Only show lookups of this provider (e.g. youtube)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum entries to return (default 20, max 100)"`
}

type Stream struct {
	Itag       int    `json:"itag"`
	URL        string `json:"url"`
	MimeType   string `json:"mime_type"`
	Codec      string `json:"codec,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	FPS        int    `json:"fps,omitempty"`
	Bitrate    int    `json:"bitrate,omitempty"`
	Language   string `json:"language,omitempty"`
}

type Related struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Uploader string `json:"uploader,omitempty"`
	Duration string `json:"duration"`
	Views    string `json:"views"`
}

// EssentialOutput is what playback needs.
type EssentialOutput struct {
	Provider        string   `json:"provider"`
	ID              string   `json:"id"`
	URL             string   `json:"url"`
	OriginalURL     string   `json:"original_url,omitempty"`
	Title           string   `json:"title"`
	StreamType      string   `json:"stream_type"`
	AgeLimit        int      `json:"age_limit"`
	Uploader        string   `json:"uploader,omitempty"`
	UploaderURL     string   `json:"uploader_url,omitempty"`
	Duration        string   `json:"duration"`
	DurationSeconds int64    `json:"duration_seconds"`
	Thumbnail       string   `json:"thumbnail,omitempty"`
	DashManifestURL string   `json:"dash_manifest_url,omitempty"`
	HLSManifestURL  string   `json:"hls_manifest_url,omitempty"`
	VideoStreams    []Stream `json:"video_streams"`
	AudioStreams    []Stream `json:"audio_streams"`
	VideoOnly       []Stream `json:"video_only_streams"`
	Failures        []string `json:"failures,omitempty"`

	// Set by stream_essential: the background load of the rest.
	AdditionalHandle string `json:"additional_handle,omitempty"`
	AdditionalState  string `json:"additional_state,omitempty"`
}

// AdditionalOutput is the enrichment metadata.
type AdditionalOutput struct {
	Description       string    `json:"description,omitempty"`
	DescriptionFormat string    `json:"description_format,omitempty"`
	Views             string    `json:"views"`
	ViewCount         int64     `json:"view_count"`
	Likes             string    `json:"likes"`
	LikeCount         int64     `json:"like_count"`
	DislikeCount      int64     `json:"dislike_count"`
	Uploaded          string    `json:"uploaded,omitempty"`
	UploadDate        string    `json:"upload_date,omitempty"`
	Category          string    `json:"category,omitempty"`
	Licence           string    `json:"licence,omitempty"`
	Tags              []string  `json:"tags,omitempty"`
	UploaderAvatar    string    `json:"uploader_avatar,omitempty"`
	Subscribers       string    `json:"subscribers"`
	SubscriberCount   int64     `json:"subscriber_count"`
	UploaderVerified  bool      `json:"uploader_verified"`
	SubChannel        string    `json:"sub_channel,omitempty"`
	SubChannelURL     string    `json:"sub_channel_url,omitempty"`
	FeedURL           string    `json:"feed_url,omitempty"`
	Related           []Related `json:"related,omitempty"`
}

// StreamInfoOutput is the output for stream_info. Additional is nil while the
// background load is still pending.
type StreamInfoOutput struct {
	Essential  *EssentialOutput  `json:"essential,omitempty"`
	Additional *AdditionalOutput `json:"additional,omitempty"`
	Failures   []string          `json:"failures,omitempty"`
	Pending    bool              `json:"pending,omitempty"`
	Handle     string            `json:"handle,omitempty"`
	Cached     bool              `json:"cached,omitempty"`
}

// StreamCancelOutput is the output for stream_cancel.
type StreamCancelOutput struct {
	Canceled bool   `json:"canceled"`
	Message  string `json:"message"`
}

type HistoryEntry struct {
	ID            int64  `json:"id"`
	Key           string `json:"key"`
	Title         string `json:"title,omitempty"`
	EssentialMS   int64  `json:"essential_ms"`
	AdditionalMS  int64  `json:"additional_ms"`
	FieldFailures int    `json:"field_failures"`
	Error         string `json:"error,omitempty"`
	At            string `json:"at"`
}

// StreamHistoryOutput is the output for stream_history.
type StreamHistoryOutput struct {
	Entries []HistoryEntry `json:"entries"`
	Total   int            `json:"total"`
}

func toStream(v progressive.VideoStream) Stream {
	return Stream{
		Itag:       v.Itag,
		URL:        v.URL,
		MimeType:   v.MimeType,
		Codec:      v.Codec,
		Resolution: v.Resolution,
		FPS:        v.FPS,
		Bitrate:    v.Bitrate,
	}
}

func toAudio(a progressive.AudioStream) Stream {
	lang := a.TrackName
	if lang == "" {
		lang = a.TrackID
	}
	return Stream{
		Itag:     a.Itag,
		URL:      a.URL,
		MimeType: a.MimeType,
		Codec:    a.Codec,
		Bitrate:  a.Bitrate,
		Language: lang,
	}
}

// bestImage picks the widest image.
func bestImage(images []progressive.Image) string {
	best := -1
	for i, img := range images {
		if best < 0 || img.Width > images[best].Width {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return images[best].URL
}

func failureStrings(failures []progressive.FieldFailure) []string {
	if len(failures) == 0 {
		return nil
	}
	out := make([]string, len(failures))
	for i, f := range failures {
		out[i] = f.String()
	}
	return out
}

func essentialOutput(r *progressive.EssentialResult) *EssentialOutput {
	out := &EssentialOutput{
		Provider:        r.Provider,
		ID:              r.ID,
		URL:             r.URL,
		OriginalURL:     r.OriginalURL,
		Title:           r.Name,
		StreamType:      r.StreamType.String(),
		AgeLimit:        r.AgeLimit,
		Uploader:        r.UploaderName,
		UploaderURL:     r.UploaderURL,
		Duration:        engine.FormatDuration(r.Duration),
		DurationSeconds: int64(r.Duration / time.Second),
		Thumbnail:       bestImage(r.Thumbnails),
		DashManifestURL: r.DashManifestURL,
		HLSManifestURL:  r.HLSManifestURL,
		VideoStreams:    make([]Stream, 0, len(r.VideoStreams)),
		AudioStreams:    make([]Stream, 0, len(r.AudioStreams)),
		VideoOnly:       make([]Stream, 0, len(r.VideoOnlyStreams)),
		Failures:        failureStrings(r.Failures),
	}
	for _, v := range r.VideoStreams {
		out.VideoStreams = append(out.VideoStreams, toStream(v))
	}
	for _, a := range r.AudioStreams {
		out.AudioStreams = append(out.AudioStreams, toAudio(a))
	}
	for _, v := range r.VideoOnlyStreams {
		out.VideoOnly = append(out.VideoOnly, toStream(v))
	}
	return out
}

func additionalOutput(r *progressive.AdditionalResult, descMax int) *AdditionalOutput {
	out := &AdditionalOutput{
		Views:            engine.FormatCount(r.ViewCount),
		ViewCount:        r.ViewCount,
		Likes:            engine.FormatCount(r.LikeCount),
		LikeCount:        r.LikeCount,
		DislikeCount:     r.DislikeCount,
		Uploaded:         r.TextualUploadDate,
		Category:         r.Category,
		Licence:          r.Licence,
		Tags:             r.Tags,
		UploaderAvatar:   bestImage(r.UploaderAvatars),
		Subscribers:      engine.FormatCount(r.UploaderSubscriberCount),
		SubscriberCount:  r.UploaderSubscriberCount,
		UploaderVerified: r.UploaderVerified,
		SubChannel:       r.SubChannelName,
		SubChannelURL:    r.SubChannelURL,
		FeedURL:          r.FeedURL,
	}
	if r.Description != nil {
		out.Description = r.Description.Content
		if descMax > 0 {
			out.Description = engine.TruncateAtWord(out.Description, descMax)
		}
		out.DescriptionFormat = string(r.Description.Type)
	}
	if !r.UploadDate.IsZero() {
		out.UploadDate = r.UploadDate.UTC().Format(time.DateOnly)
	}
	for _, item := range r.RelatedItems {
		out.Related = append(out.Related, Related{
			ID:       item.ID,
			URL:      item.URL,
			Title:    item.Name,
			Uploader: item.UploaderName,
			Duration: engine.FormatDuration(item.Duration),
			Views:    engine.FormatCount(item.ViewCount),
		})
	}
	return out
}

func infoOutput(r *progressive.CombinedResult, descMax int) *StreamInfoOutput {
	return &StreamInfoOutput{
		Essential:  essentialOutput(&r.EssentialResult),
		Additional: additionalOutput(&r.AdditionalResult, descMax),
		Failures:   failureStrings(r.Failures),
	}
}

func historyEntry(e history.Entry) HistoryEntry {
	return HistoryEntry{
		ID:            e.ID,
		Key:           e.Key,
		Title:         e.Name,
		EssentialMS:   e.Essential.Milliseconds(),
		AdditionalMS:  e.Additional.Milliseconds(),
		FieldFailures: e.FieldFailure,
		Error:         e.Error,
		At:            e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
