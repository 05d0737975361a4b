package streamserver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/anatolykoptev/go_stream/internal/progressive"
)

type fakeEssential struct {
	id     string
	reason string
	noPlay bool
}

func (f *fakeEssential) URL() (string, error)         { return "https://video.example/" + f.id, nil }
func (f *fakeEssential) OriginalURL() (string, error) { return "", nil }
func (f *fakeEssential) ID() (string, error)          { return f.id, nil }
func (f *fakeEssential) Name() (string, error)        { return "Video " + f.id, nil }
func (f *fakeEssential) StreamType() (progressive.StreamType, error) {
	return progressive.StreamTypeVideo, nil
}
func (f *fakeEssential) AgeLimit() (int, error)           { return 0, nil }
func (f *fakeEssential) UploaderName() (string, error)    { return "Uploader", nil }
func (f *fakeEssential) UploaderURL() (string, error)     { return "", errors.New("no channel") }
func (f *fakeEssential) Duration() (time.Duration, error) { return 3*time.Minute + 5*time.Second, nil }
func (f *fakeEssential) Thumbnails() ([]progressive.Image, error) {
	return []progressive.Image{{URL: "small", Width: 120}, {URL: "large", Width: 1280}, {URL: "mid", Width: 480}}, nil
}
func (f *fakeEssential) DashManifestURL() (string, error) { return "", nil }
func (f *fakeEssential) HLSManifestURL() (string, error)  { return "", nil }
func (f *fakeEssential) VideoStreams() ([]progressive.VideoStream, error) {
	if f.noPlay {
		return nil, nil
	}
	return []progressive.VideoStream{{Itag: 18, URL: "https://cdn.example/18", MimeType: "video/mp4", Resolution: "360p"}}, nil
}
func (f *fakeEssential) AudioStreams() ([]progressive.AudioStream, error) {
	if f.noPlay {
		return nil, nil
	}
	return []progressive.AudioStream{{Itag: 140, URL: "https://cdn.example/140", MimeType: "audio/mp4", TrackID: "en.4"}}, nil
}
func (f *fakeEssential) VideoOnlyStreams() ([]progressive.VideoStream, error) { return nil, nil }
func (f *fakeEssential) UnavailableReason() string                            { return f.reason }

type fakeAdditional struct{}

func (fakeAdditional) Description() (progressive.Description, error) {
	return progressive.Description{Content: "one two three four five six seven", Type: progressive.DescriptionPlain}, nil
}
func (fakeAdditional) ViewCount() (int64, error)          { return 1_234_567, nil }
func (fakeAdditional) LikeCount() (int64, error)          { return -1, errors.New("hidden") }
func (fakeAdditional) DislikeCount() (int64, error)       { return -1, nil }
func (fakeAdditional) TextualUploadDate() (string, error) { return "Oct 25, 2009", nil }
func (fakeAdditional) UploadDate() (time.Time, error)     { return time.Date(2009, 10, 25, 6, 0, 0, 0, time.UTC), nil }
func (fakeAdditional) Category() (string, error)          { return "Music", nil }
func (fakeAdditional) Licence() (string, error)           { return "YouTube licence", nil }
func (fakeAdditional) Tags() ([]string, error)            { return []string{"a", "b"}, nil }
func (fakeAdditional) UploaderAvatars() ([]progressive.Image, error) {
	return []progressive.Image{{URL: "avatar", Width: 48}}, nil
}
func (fakeAdditional) UploaderSubscriberCount() (int64, error) { return 4_200_000, nil }
func (fakeAdditional) UploaderVerified() (bool, error)         { return true, nil }
func (fakeAdditional) SubChannelName() (string, error)         { return "", nil }
func (fakeAdditional) SubChannelURL() (string, error)          { return "", nil }
func (fakeAdditional) SubChannelAvatars() ([]progressive.Image, error) {
	return nil, nil
}
func (fakeAdditional) RelatedItems() ([]progressive.RelatedItem, error) {
	return []progressive.RelatedItem{{ID: "r1", URL: "https://video.example/r1", Name: "Next", Duration: 65 * time.Second, ViewCount: 2500}}, nil
}
func (fakeAdditional) FeedURL() (string, error) { return "https://video.example/feed", nil }

// fakeProvider serves fake payloads. Additional fetches block on gate when it
// is set; with gateFirst > 0 only that many calls block.
type fakeProvider struct {
	gate        chan struct{}
	gateFirst   int32
	unavailable string // essential fails with this ContentUnavailableError reason
	noPlay      bool

	essentialCalls  atomic.Int32
	additionalCalls atomic.Int32
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) FetchEssentialData(_ context.Context, h progressive.ResourceHandle) (progressive.EssentialData, error) {
	p.essentialCalls.Add(1)
	if p.unavailable != "" {
		return nil, &progressive.ContentUnavailableError{Reason: p.unavailable, Err: errors.New("gone")}
	}
	e := &fakeEssential{id: h.ID(), noPlay: p.noPlay}
	if p.noPlay {
		e.reason = "Private video"
	}
	return e, nil
}

func (p *fakeProvider) FetchAdditionalData(ctx context.Context, _ progressive.ResourceHandle) (progressive.AdditionalData, error) {
	n := p.additionalCalls.Add(1)
	if p.gate != nil && (p.gateFirst == 0 || n <= p.gateFirst) {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return fakeAdditional{}, nil
}

func fakeResolver(link string) (progressive.ResourceHandle, error) {
	if link == "bad" {
		return progressive.ResourceHandle{}, fmt.Errorf("no video id in %q", link)
	}
	return progressive.NewResourceHandle("fake", link, "https://video.example/"+link)
}
