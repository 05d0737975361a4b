package progressive

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// LoadEssential runs the essential round trip and assembles its result.
func LoadEssential(ctx context.Context, e *Extractor) (*EssentialResult, error) {
	if err := e.FetchEssential(ctx); err != nil {
		return nil, err
	}
	return AssembleEssential(e)
}

// AssembleEssential builds an EssentialResult from the extractor's essential
// payload. Must-have fields are validated together and fail the whole result;
// every other field is isolated and degrades into a FieldFailure.
func AssembleEssential(e *Extractor) (*EssentialResult, error) {
	data, err := e.EssentialData()
	if err != nil {
		return nil, err
	}

	res, err := requiredEssential(data)
	if err != nil {
		return nil, unavailable(data, err)
	}
	res.Provider = e.handle.Provider()

	var log failureLog
	res.OriginalURL = isolate(&log, FieldOriginalURL, data.OriginalURL, e.handle.URL())
	res.UploaderName = isolate(&log, FieldUploaderName, data.UploaderName, "")
	res.UploaderURL = isolate(&log, FieldUploaderURL, data.UploaderURL, "")
	res.Duration = isolate(&log, FieldDuration, data.Duration, time.Duration(0))
	res.Thumbnails = slices.Clone(isolate(&log, FieldThumbnails, data.Thumbnails, nil))
	res.DashManifestURL = isolate(&log, FieldDashManifestURL, data.DashManifestURL, "")
	res.HLSManifestURL = isolate(&log, FieldHLSManifestURL, data.HLSManifestURL, "")
	res.AudioStreams = slices.Clone(isolate(&log, FieldAudioStreams, data.AudioStreams, nil))
	res.VideoStreams = slices.Clone(isolate(&log, FieldVideoStreams, data.VideoStreams, nil))
	res.VideoOnlyStreams = slices.Clone(isolate(&log, FieldVideoOnlyStreams, data.VideoOnlyStreams, nil))
	res.Failures = log.failures

	// Video-only streams are optional and do not count as playable on their own.
	if len(res.VideoStreams) == 0 && len(res.AudioStreams) == 0 {
		return nil, unavailable(data, ErrNoPlayableStreams)
	}
	return res, nil
}

// requiredEssential reads the must-have identity fields. All of them are read
// before failing so the error names every missing field at once.
func requiredEssential(data EssentialData) (*EssentialResult, error) {
	var (
		missing []string
		errs    []error
	)
	miss := func(field string, err error) {
		missing = append(missing, field)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	url, err := guarded(data.URL)
	if err != nil || strings.TrimSpace(url) == "" {
		miss("url", err)
	}
	id, err := guarded(data.ID)
	if err != nil || strings.TrimSpace(id) == "" {
		miss("id", err)
	}
	// An empty name is allowed, an unreadable one is not.
	name, err := guarded(data.Name)
	if err != nil {
		miss("name", err)
	}
	streamType, err := guarded(data.StreamType)
	if err != nil || streamType == StreamTypeNone {
		miss("stream_type", err)
	}
	ageLimit, err := guarded(data.AgeLimit)
	if err != nil || ageLimit == -1 {
		miss("age_limit", err)
	}

	if len(missing) > 0 {
		return nil, &IncompleteEssentialDataError{Missing: missing, Errs: errs}
	}
	return &EssentialResult{
		URL:        url,
		ID:         id,
		Name:       name,
		StreamType: streamType,
		AgeLimit:   ageLimit,
	}, nil
}

// unavailable prefers the provider's own explanation when it has one.
func unavailable(data EssentialData, err error) error {
	reason, _ := guarded(func() (string, error) { return data.UnavailableReason(), nil })
	if reason == "" {
		return err
	}
	var cu *ContentUnavailableError
	if errors.As(err, &cu) {
		return err
	}
	return &ContentUnavailableError{Reason: reason, Err: err}
}

// AssembleAdditional builds an AdditionalResult. Every field is isolated, so it
// only fails when the additional phase has not been reached.
func AssembleAdditional(e *Extractor) (*AdditionalResult, error) {
	data, err := e.AdditionalData()
	if err != nil {
		return nil, err
	}

	var log failureLog
	res := &AdditionalResult{}

	if d, err := guarded(data.Description); err != nil {
		log.record(FieldDescription, err)
	} else {
		res.Description = &d
	}
	res.ViewCount = isolate(&log, FieldViewCount, data.ViewCount, -1)
	res.LikeCount = isolate(&log, FieldLikeCount, data.LikeCount, -1)
	res.DislikeCount = isolate(&log, FieldDislikeCount, data.DislikeCount, -1)
	res.TextualUploadDate = isolate(&log, FieldTextualUploadDate, data.TextualUploadDate, "")
	res.UploadDate = isolate(&log, FieldUploadDate, data.UploadDate, time.Time{})
	res.Category = isolate(&log, FieldCategory, data.Category, "")
	res.Licence = isolate(&log, FieldLicence, data.Licence, "")
	res.Tags = slices.Clone(isolate(&log, FieldTags, data.Tags, nil))

	res.UploaderAvatars = slices.Clone(isolate(&log, FieldUploaderAvatars, data.UploaderAvatars, nil))
	res.UploaderSubscriberCount = isolate(&log, FieldUploaderSubscriberCount, data.UploaderSubscriberCount, -1)
	res.UploaderVerified = isolate(&log, FieldUploaderVerified, data.UploaderVerified, false)
	res.SubChannelName = isolate(&log, FieldSubChannelName, data.SubChannelName, "")
	res.SubChannelURL = isolate(&log, FieldSubChannelURL, data.SubChannelURL, "")
	res.SubChannelAvatars = slices.Clone(isolate(&log, FieldSubChannelAvatars, data.SubChannelAvatars, nil))

	res.RelatedItems = slices.Clone(isolate(&log, FieldRelatedItems, data.RelatedItems, nil))
	res.FeedURL = isolate(&log, FieldFeedURL, data.FeedURL, "")

	res.Failures = log.failures
	return res, nil
}
