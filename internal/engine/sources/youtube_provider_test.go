package sources

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_stream/internal/engine"
	"github.com/anatolykoptev/go_stream/internal/progressive"
)

// fakeYouTube serves the Innertube endpoints and the watch page from testdata.
type fakeYouTube struct {
	androidPlayer []byte
	webPlayer     []byte
	next          []byte
	nextStatus    int // 0 = 200
	webStatus     int // 0 = 200

	androidCalls atomic.Int32
	webCalls     atomic.Int32
	nextCalls    atomic.Int32
	watchCalls   atomic.Int32
}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err, "read fixture %s", name)
	return b
}

func newFakeYouTube(t *testing.T) *fakeYouTube {
	return &fakeYouTube{
		androidPlayer: loadFixture(t, "player_android.json"),
		webPlayer:     loadFixture(t, "player_web.json"),
		next:          loadFixture(t, "next.json"),
	}
}

func (f *fakeYouTube) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case ytPlayerPath:
		body, _ := io.ReadAll(r.Body)
		var req innertubeReq
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		switch req.Context.Client.ClientName {
		case ytAndroid.Name:
			f.androidCalls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.Write(f.androidPlayer)
		case ytWeb.Name:
			f.webCalls.Add(1)
			if f.webStatus != 0 {
				http.Error(w, "nope", f.webStatus)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(f.webPlayer)
		default:
			http.Error(w, "unknown client", http.StatusBadRequest)
		}
	case ytNextPath:
		f.nextCalls.Add(1)
		if f.nextStatus != 0 {
			http.Error(w, "nope", f.nextStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(f.next)
	case "/watch":
		f.watchCalls.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, `<!DOCTYPE html><html><head><title>watch</title></head><body><script>var ytInitialData = `)
		w.Write(f.next)
		io.WriteString(w, `;</script></body></html>`)
	default:
		http.NotFound(w, r)
	}
}

func newTestProvider(t *testing.T, fake *fakeYouTube) *YouTubeProvider {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	prev := *engine.Cfg
	t.Cleanup(func() { engine.Init(prev) })
	engine.Init(engine.Config{
		YouTubeBaseURL: srv.URL,
		FetchTimeout:   5 * time.Second,
		HTTPClient:     srv.Client(),
	})
	return NewYouTubeProvider()
}

func rickHandle(t *testing.T) progressive.ResourceHandle {
	t.Helper()
	h, err := YouTubeHandle("https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	return h
}

func TestYouTubeProviderEssential(t *testing.T) {
	fake := newFakeYouTube(t)
	p := newTestProvider(t, fake)

	e := progressive.NewExtractor(rickHandle(t), p)
	res, err := progressive.LoadEssential(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, ProviderYouTube, res.Provider)
	assert.Equal(t, "dQw4w9WgXcQ", res.ID)
	assert.Equal(t, "Never Gonna Give You Up", res.Name)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", res.URL)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", res.OriginalURL)
	assert.Equal(t, progressive.StreamTypeVideo, res.StreamType)
	assert.Equal(t, 0, res.AgeLimit)
	assert.Equal(t, "Rick Astley", res.UploaderName)
	assert.Equal(t, "https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw", res.UploaderURL)
	assert.Equal(t, 212*time.Second, res.Duration)
	assert.Len(t, res.Thumbnails, 2)
	assert.Equal(t, "https://manifest.example/dash", res.DashManifestURL)

	// The ciphered 720p format is skipped.
	require.Len(t, res.VideoStreams, 1)
	vs := res.VideoStreams[0]
	assert.Equal(t, 18, vs.Itag)
	assert.Equal(t, "video/mp4", vs.MimeType)
	assert.Equal(t, "avc1.42001E, mp4a.40.2", vs.Codec)
	assert.Equal(t, "360p", vs.Resolution)
	assert.False(t, vs.VideoOnly)

	require.Len(t, res.VideoOnlyStreams, 1)
	assert.True(t, res.VideoOnlyStreams[0].VideoOnly)
	assert.Equal(t, 1080, res.VideoOnlyStreams[0].Height)

	require.Len(t, res.AudioStreams, 2)
	a := res.AudioStreams[0]
	assert.Equal(t, 140, a.Itag)
	assert.Equal(t, "en.4", a.TrackID)
	assert.Equal(t, "mp4a.40.2", a.Codec)
	assert.Empty(t, res.Failures)

	assert.Equal(t, int32(1), fake.androidCalls.Load())
	assert.Zero(t, fake.webCalls.Load(), "essential phase touched WEB player")
	assert.Zero(t, fake.nextCalls.Load(), "essential phase touched /next")
}

func TestYouTubeProviderFullLoad(t *testing.T) {
	fake := newFakeYouTube(t)
	p := newTestProvider(t, fake)

	orch := progressive.NewOrchestrator(progressive.WithMaxConcurrent(2))
	defer orch.Close()

	e := progressive.NewExtractor(rickHandle(t), p)
	_, err := progressive.LoadEssential(context.Background(), e)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := orch.ScheduleAdditional(ctx, e).Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", res.ID)
	assert.Len(t, res.VideoStreams, 1, "essential part kept")
	require.NotNil(t, res.Description)
	assert.Equal(t, progressive.DescriptionMarkdown, res.Description.Type)
	assert.Contains(t, res.Description.Content, "[Spotify](https://spotify.example/rick)")
	assert.Equal(t, int64(1_500_000_000), res.ViewCount)
	assert.Equal(t, int64(18_000_000), res.LikeCount)
	assert.Equal(t, int64(-1), res.DislikeCount)
	assert.Equal(t, "Oct 25, 2009", res.TextualUploadDate)
	assert.Equal(t, 2009, res.UploadDate.UTC().Year())
	assert.Equal(t, "Music", res.Category)
	assert.Equal(t, ytLicence, res.Licence)
	assert.Equal(t, []string{"rick astley", "never gonna give you up"}, res.Tags)
	require.Len(t, res.UploaderAvatars, 1)
	assert.Contains(t, res.UploaderAvatars[0].URL, "https://yt3.ggpht.com/")
	assert.Equal(t, int64(4_200_000), res.UploaderSubscriberCount)
	assert.True(t, res.UploaderVerified)
	assert.Equal(t, "https://www.youtube.com/feeds/videos.xml?channel_id=UCuAXFkgsw1L7xaCfnd5JJOw", res.FeedURL)

	require.Len(t, res.RelatedItems, 2)
	first, second := res.RelatedItems[0], res.RelatedItems[1]
	assert.Equal(t, "yPYZpwSpKmA", first.ID)
	assert.Equal(t, "Together Forever", first.Name)
	assert.Equal(t, "Rick Astley", first.UploaderName)
	assert.Equal(t, 205*time.Second, first.Duration)
	assert.Equal(t, int64(120_345_678), first.ViewCount)
	assert.Equal(t, time.Hour+3*time.Minute+59*time.Second, second.Duration)
	assert.Zero(t, second.ViewCount)

	assert.Empty(t, res.Failures)
	assert.Equal(t, int32(1), fake.androidCalls.Load())
	assert.Equal(t, int32(1), fake.webCalls.Load())
	assert.Equal(t, int32(1), fake.nextCalls.Load())
	assert.Zero(t, fake.watchCalls.Load(), "watch page fetched although /next answered")
}

func TestYouTubeProviderWatchPageFallback(t *testing.T) {
	fake := newFakeYouTube(t)
	fake.nextStatus = http.StatusNotFound
	p := newTestProvider(t, fake)

	e := progressive.NewExtractor(rickHandle(t), p)
	require.NoError(t, e.FetchAdditional(context.Background()))
	add, err := progressive.AssembleAdditional(e)
	require.NoError(t, err)

	assert.Equal(t, int32(1), fake.watchCalls.Load())
	assert.Equal(t, int64(1_500_000_000), add.ViewCount)
	assert.Len(t, add.RelatedItems, 2)
	assert.Empty(t, add.Failures)
}

func TestYouTubeProviderPartialAdditional(t *testing.T) {
	fake := newFakeYouTube(t)
	fake.webStatus = http.StatusForbidden
	p := newTestProvider(t, fake)

	e := progressive.NewExtractor(rickHandle(t), p)
	require.NoError(t, e.FetchAdditional(context.Background()))
	add, err := progressive.AssembleAdditional(e)
	require.NoError(t, err)

	// Fields fed by the WEB player fail on their own; /next fields survive.
	for _, field := range []string{progressive.FieldCategory, progressive.FieldTags, progressive.FieldUploadDate} {
		assert.True(t, add.Failed(field), "expected %s to fail, failures = %v", field, add.Failures)
	}
	assert.False(t, add.Failed(progressive.FieldDescription))
	assert.False(t, add.Failed(progressive.FieldViewCount))
	assert.NotEmpty(t, add.FeedURL, "FeedURL falls back to the owner browse id")
}

func TestYouTubeProviderAdditionalBothSourcesFail(t *testing.T) {
	p := newTestProvider(t, newFakeYouTube(t))

	// Point every endpoint, the watch page included, at a server that 404s.
	dead := httptest.NewServer(http.NotFoundHandler())
	defer dead.Close()
	p.baseURL = dead.URL

	_, err := p.FetchAdditionalData(context.Background(), rickHandle(t))
	var serr *engine.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusNotFound, serr.Code)

	e := progressive.NewExtractor(rickHandle(t), p)
	require.Error(t, e.FetchAdditional(context.Background()))
	assert.Equal(t, progressive.PhaseUnstarted, e.Phase())
}

func TestYouTubeProviderContentUnavailable(t *testing.T) {
	fake := newFakeYouTube(t)
	fake.androidPlayer = []byte(`{"playabilityStatus":{"status":"ERROR","reason":"Video unavailable"}}`)
	p := newTestProvider(t, fake)

	e := progressive.NewExtractor(rickHandle(t), p)
	_, err := progressive.LoadEssential(context.Background(), e)
	var cu *progressive.ContentUnavailableError
	require.ErrorAs(t, err, &cu)
	assert.Equal(t, "Video unavailable", cu.Reason)
	var fe *progressive.FetchError
	assert.ErrorAs(t, err, &fe)
	assert.False(t, e.IsEssentialLoaded(), "phase advanced on failure")
}

func TestYouTubeProviderNoPlayableStreams(t *testing.T) {
	fake := newFakeYouTube(t)
	fake.androidPlayer = []byte(`{
		"playabilityStatus": {"status": "LOGIN_REQUIRED", "reason": "Sign in to confirm your age. This video may be inappropriate for some users."},
		"videoDetails": {"videoId": "dQw4w9WgXcQ", "title": "Age gated", "lengthSeconds": "60", "author": "Someone", "channelId": "UCx"}
	}`)
	p := newTestProvider(t, fake)

	e := progressive.NewExtractor(rickHandle(t), p)
	_, err := progressive.LoadEssential(context.Background(), e)
	require.ErrorIs(t, err, progressive.ErrNoPlayableStreams)
	var cu *progressive.ContentUnavailableError
	require.ErrorAs(t, err, &cu)
	assert.Contains(t, cu.Reason, "confirm your age")

	// The payload itself is loaded and readable; only assembly refused it.
	data, err := e.EssentialData()
	require.NoError(t, err)
	age, _ := data.AgeLimit()
	assert.Equal(t, 18, age)
}

func TestYouTubeProviderRateLimit(t *testing.T) {
	fake := newFakeYouTube(t)
	p := newTestProvider(t, fake)
	engine.Init(engine.Config{
		YouTubeBaseURL: p.baseURL,
		HTTPClient:     p.client,
		ProviderRPS:    1,
		ProviderBurst:  1,
	})
	p = NewYouTubeProvider()
	require.NotNil(t, p.limiter)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, p.wait(ctx), "first request passes")
	assert.Error(t, p.wait(ctx), "second request within the burst window is limited")
}
