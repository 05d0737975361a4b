package progressive

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// fakeEssential serves fixed values; fields listed in errs fail, fields listed in
// panics panic.
type fakeEssential struct {
	url, id, name string
	streamType    StreamType
	ageLimit      int
	uploader      string
	duration      time.Duration
	video, vonly  []VideoStream
	audio         []AudioStream
	reason        string

	errs   map[string]error
	panics map[string]bool
}

func (f *fakeEssential) check(field string) error {
	if f.panics[field] {
		panic(field + " exploded")
	}
	return f.errs[field]
}

func get[T any](f *fakeEssential, field string, v T) (T, error) {
	if err := f.check(field); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func (f *fakeEssential) URL() (string, error)            { return get(f, "url", f.url) }
func (f *fakeEssential) OriginalURL() (string, error)    { return get(f, FieldOriginalURL, f.url) }
func (f *fakeEssential) ID() (string, error)             { return get(f, "id", f.id) }
func (f *fakeEssential) Name() (string, error)           { return get(f, "name", f.name) }
func (f *fakeEssential) StreamType() (StreamType, error) { return get(f, "stream_type", f.streamType) }
func (f *fakeEssential) AgeLimit() (int, error)          { return get(f, "age_limit", f.ageLimit) }
func (f *fakeEssential) UploaderName() (string, error)   { return get(f, FieldUploaderName, f.uploader) }
func (f *fakeEssential) UploaderURL() (string, error) {
	return get(f, FieldUploaderURL, "https://example.test/u/"+f.uploader)
}
func (f *fakeEssential) Duration() (time.Duration, error) { return get(f, FieldDuration, f.duration) }
func (f *fakeEssential) Thumbnails() ([]Image, error) {
	return get(f, FieldThumbnails, []Image{{URL: "https://example.test/t.jpg", Width: 480, Height: 360}})
}
func (f *fakeEssential) DashManifestURL() (string, error) { return get(f, FieldDashManifestURL, "") }
func (f *fakeEssential) HLSManifestURL() (string, error)  { return get(f, FieldHLSManifestURL, "") }
func (f *fakeEssential) VideoStreams() ([]VideoStream, error) {
	return get(f, FieldVideoStreams, f.video)
}
func (f *fakeEssential) AudioStreams() ([]AudioStream, error) {
	return get(f, FieldAudioStreams, f.audio)
}
func (f *fakeEssential) VideoOnlyStreams() ([]VideoStream, error) {
	return get(f, FieldVideoOnlyStreams, f.vonly)
}
func (f *fakeEssential) UnavailableReason() string { return f.reason }

func newFakeEssential(id string, videos, audios int) *fakeEssential {
	f := &fakeEssential{
		url:        "https://example.test/watch/" + id,
		id:         id,
		name:       "Resource " + id,
		streamType: StreamTypeVideo,
		uploader:   "someone",
		duration:   212 * time.Second,
	}
	for i := 0; i < videos; i++ {
		f.video = append(f.video, VideoStream{Itag: 18 + i, URL: "https://cdn.example.test/v", MimeType: "video/mp4"})
	}
	for i := 0; i < audios; i++ {
		f.audio = append(f.audio, AudioStream{Itag: 140 + i, URL: "https://cdn.example.test/a", MimeType: "audio/mp4"})
	}
	return f
}

type fakeAdditional struct {
	errs map[string]error
}

func (f *fakeAdditional) fail(field string) error { return f.errs[field] }

func addGet[T any](f *fakeAdditional, field string, v T) (T, error) {
	if err := f.fail(field); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func (f *fakeAdditional) Description() (Description, error) {
	return addGet(f, FieldDescription, Description{Content: "about", Type: DescriptionPlain})
}
func (f *fakeAdditional) ViewCount() (int64, error)    { return addGet(f, FieldViewCount, int64(1000)) }
func (f *fakeAdditional) LikeCount() (int64, error)    { return addGet(f, FieldLikeCount, int64(10)) }
func (f *fakeAdditional) DislikeCount() (int64, error) { return addGet(f, FieldDislikeCount, int64(1)) }
func (f *fakeAdditional) TextualUploadDate() (string, error) {
	return addGet(f, FieldTextualUploadDate, "Oct 25, 2009")
}
func (f *fakeAdditional) UploadDate() (time.Time, error) {
	return addGet(f, FieldUploadDate, time.Date(2009, 10, 25, 0, 0, 0, 0, time.UTC))
}
func (f *fakeAdditional) Category() (string, error) { return addGet(f, FieldCategory, "Music") }
func (f *fakeAdditional) Licence() (string, error)  { return addGet(f, FieldLicence, "Standard") }
func (f *fakeAdditional) Tags() ([]string, error)   { return addGet(f, FieldTags, []string{"a", "b"}) }
func (f *fakeAdditional) UploaderAvatars() ([]Image, error) {
	return addGet(f, FieldUploaderAvatars, []Image{{URL: "https://example.test/avatar.jpg"}})
}
func (f *fakeAdditional) UploaderSubscriberCount() (int64, error) {
	return addGet(f, FieldUploaderSubscriberCount, int64(42))
}
func (f *fakeAdditional) UploaderVerified() (bool, error) { return addGet(f, FieldUploaderVerified, true) }
func (f *fakeAdditional) SubChannelName() (string, error) { return addGet(f, FieldSubChannelName, "sub") }
func (f *fakeAdditional) SubChannelURL() (string, error) {
	return addGet(f, FieldSubChannelURL, "https://example.test/sub")
}
func (f *fakeAdditional) SubChannelAvatars() ([]Image, error) {
	return addGet(f, FieldSubChannelAvatars, []Image{{URL: "https://example.test/sub.jpg"}})
}
func (f *fakeAdditional) RelatedItems() ([]RelatedItem, error) {
	return addGet(f, FieldRelatedItems, []RelatedItem{{ID: "r1", Name: "Related", ViewCount: 5}})
}
func (f *fakeAdditional) FeedURL() (string, error) {
	return addGet(f, FieldFeedURL, "https://example.test/feed.xml")
}

// fakeProvider counts round trips. When gate is set the additional fetch blocks
// until gate is closed, after signaling on started.
type fakeProvider struct {
	essential     EssentialData
	essentialErr  error
	additional    AdditionalData
	additionalErr error

	gate    chan struct{}
	started chan struct{}

	essentialCalls  atomic.Int32
	additionalCalls atomic.Int32

	mu    sync.Mutex
	order []string
}

func newFakeProvider(ess *fakeEssential, add *fakeAdditional) *fakeProvider {
	p := &fakeProvider{essential: ess}
	if add != nil {
		p.additional = add
	}
	return p
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) FetchEssentialData(_ context.Context, _ ResourceHandle) (EssentialData, error) {
	p.essentialCalls.Add(1)
	p.note("essential")
	if p.essentialErr != nil {
		return nil, p.essentialErr
	}
	return p.essential, nil
}

func (p *fakeProvider) FetchAdditionalData(ctx context.Context, _ ResourceHandle) (AdditionalData, error) {
	p.additionalCalls.Add(1)
	p.note("additional")
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.additionalErr != nil {
		return nil, p.additionalErr
	}
	return p.additional, nil
}

func (p *fakeProvider) note(call string) {
	p.mu.Lock()
	p.order = append(p.order, call)
	p.mu.Unlock()
}

func (p *fakeProvider) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}

var errBoom = errors.New("boom")

func mustHandle(id string) ResourceHandle {
	h, err := NewResourceHandle("fake", id, "https://example.test/watch/"+id)
	if err != nil {
		panic(err)
	}
	return h
}
