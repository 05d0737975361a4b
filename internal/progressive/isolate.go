package progressive

import "fmt"

// Field names used in FieldFailure records.
const (
	FieldUploaderName     = "uploader_name"
	FieldUploaderURL      = "uploader_url"
	FieldDuration         = "duration"
	FieldThumbnails       = "thumbnails"
	FieldDashManifestURL  = "dash_manifest_url"
	FieldHLSManifestURL   = "hls_manifest_url"
	FieldVideoStreams     = "video_streams"
	FieldAudioStreams     = "audio_streams"
	FieldVideoOnlyStreams = "video_only_streams"
	FieldOriginalURL      = "original_url"

	FieldDescription             = "description"
	FieldViewCount               = "view_count"
	FieldLikeCount               = "like_count"
	FieldDislikeCount            = "dislike_count"
	FieldTextualUploadDate       = "textual_upload_date"
	FieldUploadDate              = "upload_date"
	FieldCategory                = "category"
	FieldLicence                 = "licence"
	FieldTags                    = "tags"
	FieldUploaderAvatars         = "uploader_avatars"
	FieldUploaderSubscriberCount = "uploader_subscriber_count"
	FieldUploaderVerified        = "uploader_verified"
	FieldSubChannelName          = "sub_channel_name"
	FieldSubChannelURL           = "sub_channel_url"
	FieldSubChannelAvatars       = "sub_channel_avatars"
	FieldRelatedItems            = "related_items"
	FieldFeedURL                 = "feed_url"
)

// failureLog collects isolated field failures for one assembly.
type failureLog struct {
	failures []FieldFailure
}

func (l *failureLog) record(field string, err error) {
	l.failures = append(l.failures, FieldFailure{Field: field, Err: err})
}

// isolate reads one optional field. A failing or panicking accessor is recorded
// under field and fallback is returned, so extraction continues with the next field.
func isolate[T any](log *failureLog, field string, get func() (T, error), fallback T) T {
	v, err := guarded(get)
	if err != nil {
		log.record(field, err)
		return fallback
	}
	return v
}

func guarded[T any](get func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("panic during extraction: %v", r)
		}
	}()
	return get()
}
