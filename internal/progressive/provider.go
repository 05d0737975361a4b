package progressive

import (
	"context"
	"time"
)

// Provider performs the remote calls for one kind of resource. The core only
// depends on the two capabilities below; transport and payload format belong to
// the implementation.
type Provider interface {
	Name() string

	// FetchEssentialData must complete in a single remote round trip.
	FetchEssentialData(ctx context.Context, h ResourceHandle) (EssentialData, error)

	// FetchAdditionalData may perform several round trips.
	FetchAdditionalData(ctx context.Context, h ResourceHandle) (AdditionalData, error)
}

// EssentialData exposes fields of an essential payload. Accessors only read data
// that was already fetched and may fail individually.
type EssentialData interface {
	URL() (string, error)
	OriginalURL() (string, error)
	ID() (string, error)
	Name() (string, error)
	StreamType() (StreamType, error)
	// AgeLimit returns -1 when the restriction is unknown.
	AgeLimit() (int, error)

	UploaderName() (string, error)
	UploaderURL() (string, error)
	Duration() (time.Duration, error)
	Thumbnails() ([]Image, error)
	DashManifestURL() (string, error)
	HLSManifestURL() (string, error)
	VideoStreams() ([]VideoStream, error)
	AudioStreams() ([]AudioStream, error)
	VideoOnlyStreams() ([]VideoStream, error)

	// UnavailableReason is non-empty when the provider flagged the resource as
	// unplayable (removed, private, region locked, ...).
	UnavailableReason() string
}

// AdditionalData exposes enrichment fields. Counts use -1 for unknown.
type AdditionalData interface {
	Description() (Description, error)
	ViewCount() (int64, error)
	LikeCount() (int64, error)
	DislikeCount() (int64, error)
	TextualUploadDate() (string, error)
	UploadDate() (time.Time, error)
	Category() (string, error)
	Licence() (string, error)
	Tags() ([]string, error)

	UploaderAvatars() ([]Image, error)
	UploaderSubscriberCount() (int64, error)
	UploaderVerified() (bool, error)
	SubChannelName() (string, error)
	SubChannelURL() (string, error)
	SubChannelAvatars() ([]Image, error)

	RelatedItems() ([]RelatedItem, error)
	FeedURL() (string, error)
}
