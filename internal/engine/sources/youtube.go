package sources

// YouTube implementation is split across files by responsibility:
//   youtube.go             link handling (URL to ResourceHandle)
//   youtube_innertube.go   Innertube constants, client contexts, HTTP primitives
//   youtube_provider.go    progressive.Provider: ANDROID /player for the essential
//                          phase, /next + WEB /player in parallel for the additional one
//   youtube_player.go      /player response types and the essential payload
//   youtube_next.go        /next (ytInitialData) walking and the additional payload
//   youtube_description.go description runs to HTML to Markdown
//   youtube_watchpage.go   watch-page scrape used when /next fails

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_stream/internal/progressive"
)

// ProviderYouTube is the provider name carried by YouTube resource handles.
const ProviderYouTube = "youtube"

const ytCanonicalOrigin = "https://www.youtube.com"

var (
	videoIDRE = regexp.MustCompile(`(?:youtube(?:-nocookie)?\.com/(?:watch\?(?:.*&)?v=|embed/|shorts/|live/|v/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	bareIDRE  = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// extractVideoID pulls the 11-char video ID from any YouTube URL format.
func extractVideoID(rawURL string) string {
	m := videoIDRE.FindStringSubmatch(rawURL)
	if len(m) >= 2 {
		return m[1]
	}
	return ""
}

// YouTubeHandle builds a resource handle from a watch, youtu.be, embed, shorts or
// live URL, or from a bare 11-char video ID.
func YouTubeHandle(raw string) (progressive.ResourceHandle, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return progressive.ResourceHandle{}, errors.New("youtube: empty link")
	}

	id := ""
	original := raw
	if bareIDRE.MatchString(raw) {
		id = raw
		original = ytWatchURL(id)
	} else {
		if _, err := url.Parse(raw); err != nil {
			return progressive.ResourceHandle{}, fmt.Errorf("youtube: parse link: %w", err)
		}
		id = extractVideoID(raw)
	}
	if id == "" {
		return progressive.ResourceHandle{}, fmt.Errorf("youtube: no video id in %q", raw)
	}
	return progressive.NewResourceHandle(ProviderYouTube, id, original)
}

func ytWatchURL(id string) string {
	return ytCanonicalOrigin + "/watch?v=" + id
}

func ytChannelURL(channelID string) string {
	return ytCanonicalOrigin + "/channel/" + channelID
}

func ytFeedURL(channelID string) string {
	return ytCanonicalOrigin + "/feeds/videos.xml?channel_id=" + url.QueryEscape(channelID)
}
