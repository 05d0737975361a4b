package sources

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_stream/internal/progressive"
)

// --- /player response types ---

type ytPlayerResp struct {
	PlayabilityStatus ytPlayability    `json:"playabilityStatus"`
	VideoDetails      *ytVideoDetails  `json:"videoDetails"`
	StreamingData     *ytStreamingData `json:"streamingData"`
	Microformat       struct {
		PlayerMicroformatRenderer *ytMicroformat `json:"playerMicroformatRenderer"`
	} `json:"microformat"`
}

type ytPlayability struct {
	Status string `json:"status"` // OK, LOGIN_REQUIRED, UNPLAYABLE, ERROR, LIVE_STREAM_OFFLINE
	Reason string `json:"reason"`
}

type ytVideoDetails struct {
	VideoID       string   `json:"videoId"`
	Title         string   `json:"title"`
	LengthSeconds string   `json:"lengthSeconds"`
	ChannelID     string   `json:"channelId"`
	Author        string   `json:"author"`
	Keywords      []string `json:"keywords"`
	ViewCount     string   `json:"viewCount"`
	IsLive        bool     `json:"isLive"`
	IsLiveContent bool     `json:"isLiveContent"`
	IsPostLiveDvr bool     `json:"isPostLiveDvr"`
	Thumbnail     struct {
		Thumbnails []ytThumb `json:"thumbnails"`
	} `json:"thumbnail"`
}

type ytThumb struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type ytStreamingData struct {
	Formats         []ytFormat `json:"formats"`
	AdaptiveFormats []ytFormat `json:"adaptiveFormats"`
	DashManifestURL string     `json:"dashManifestUrl"`
	HLSManifestURL  string     `json:"hlsManifestUrl"`
}

type ytFormat struct {
	Itag            int    `json:"itag"`
	URL             string `json:"url"`
	SignatureCipher string `json:"signatureCipher"`
	MimeType        string `json:"mimeType"`
	Bitrate         int    `json:"bitrate"`
	AverageBitrate  int    `json:"averageBitrate"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	FPS             int    `json:"fps"`
	QualityLabel    string `json:"qualityLabel"`
	AudioTrack      *struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	} `json:"audioTrack"`
}

type ytMicroformat struct {
	Title struct {
		SimpleText string `json:"simpleText"`
	} `json:"title"`
	Description struct {
		SimpleText string `json:"simpleText"`
	} `json:"description"`
	Category          string `json:"category"`
	PublishDate       string `json:"publishDate"`
	UploadDate        string `json:"uploadDate"`
	ExternalChannelID string `json:"externalChannelId"`
	OwnerProfileURL   string `json:"ownerProfileUrl"`
	ViewCount         string `json:"viewCount"`
	IsFamilySafe      *bool  `json:"isFamilySafe"`
}

func (r *ytPlayerResp) unavailableReason() string {
	switch r.PlayabilityStatus.Status {
	case "", "OK":
		return ""
	}
	if r.PlayabilityStatus.Reason != "" {
		return r.PlayabilityStatus.Reason
	}
	return strings.ToLower(strings.ReplaceAll(r.PlayabilityStatus.Status, "_", " "))
}

// ageGated reports the age-verification wall YouTube raises for 18+ videos.
func (r *ytPlayerResp) ageGated() bool {
	if r.PlayabilityStatus.Status != "LOGIN_REQUIRED" {
		return false
	}
	reason := strings.ToLower(r.PlayabilityStatus.Reason)
	return strings.Contains(reason, "age") || strings.Contains(reason, "inappropriate")
}

// parseMimeType splits `video/mp4; codecs="avc1.42001E, mp4a.40.2"` into the
// media type and the codec list.
func parseMimeType(s string) (mime, codec string) {
	mime, params, _ := strings.Cut(s, ";")
	mime = strings.TrimSpace(mime)
	if _, c, ok := strings.Cut(params, "codecs="); ok {
		codec = strings.Trim(strings.TrimSpace(c), `"`)
	}
	return mime, codec
}

// --- essential payload ---

// youtubeEssential is the ANDROID /player answer seen through
// progressive.EssentialData.
type youtubeEssential struct {
	handle progressive.ResourceHandle
	resp   *ytPlayerResp
}

var errNoVideoDetails = errors.New("videoDetails missing from player response")

func (e *youtubeEssential) details() (*ytVideoDetails, error) {
	if e.resp.VideoDetails == nil {
		return nil, errNoVideoDetails
	}
	return e.resp.VideoDetails, nil
}

func (e *youtubeEssential) URL() (string, error) {
	d, err := e.details()
	if err != nil {
		return "", err
	}
	return ytWatchURL(d.VideoID), nil
}

func (e *youtubeEssential) OriginalURL() (string, error) {
	if u := e.handle.URL(); u != "" {
		return u, nil
	}
	return ytWatchURL(e.handle.ID()), nil
}

func (e *youtubeEssential) ID() (string, error) {
	d, err := e.details()
	if err != nil {
		return "", err
	}
	return d.VideoID, nil
}

func (e *youtubeEssential) Name() (string, error) {
	d, err := e.details()
	if err != nil {
		return "", err
	}
	return d.Title, nil
}

func (e *youtubeEssential) StreamType() (progressive.StreamType, error) {
	d, err := e.details()
	if err != nil {
		return progressive.StreamTypeNone, err
	}
	switch {
	case d.IsPostLiveDvr:
		return progressive.StreamTypePostLive, nil
	case d.IsLive:
		if sd := e.resp.StreamingData; sd != nil && len(sd.Formats) == 0 && !hasVideo(sd.AdaptiveFormats) {
			return progressive.StreamTypeAudioLive, nil
		}
		return progressive.StreamTypeLive, nil
	}
	return progressive.StreamTypeVideo, nil
}

func hasVideo(formats []ytFormat) bool {
	for _, f := range formats {
		if strings.HasPrefix(f.MimeType, "video/") {
			return true
		}
	}
	return false
}

func (e *youtubeEssential) AgeLimit() (int, error) {
	if e.resp.ageGated() {
		return 18, nil
	}
	if mf := e.resp.Microformat.PlayerMicroformatRenderer; mf != nil && mf.IsFamilySafe != nil && !*mf.IsFamilySafe {
		return 18, nil
	}
	return 0, nil
}

func (e *youtubeEssential) UploaderName() (string, error) {
	d, err := e.details()
	if err != nil {
		return "", err
	}
	if d.Author == "" {
		return "", errors.New("author missing")
	}
	return d.Author, nil
}

func (e *youtubeEssential) UploaderURL() (string, error) {
	d, err := e.details()
	if err != nil {
		return "", err
	}
	if d.ChannelID == "" {
		return "", errors.New("channel id missing")
	}
	return ytChannelURL(d.ChannelID), nil
}

func (e *youtubeEssential) Duration() (time.Duration, error) {
	d, err := e.details()
	if err != nil {
		return 0, err
	}
	if d.IsLive {
		return 0, nil
	}
	secs, err := strconv.ParseInt(d.LengthSeconds, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("lengthSeconds %q: %w", d.LengthSeconds, err)
	}
	return time.Duration(secs) * time.Second, nil
}

func (e *youtubeEssential) Thumbnails() ([]progressive.Image, error) {
	d, err := e.details()
	if err != nil {
		return nil, err
	}
	if len(d.Thumbnail.Thumbnails) == 0 {
		return nil, errors.New("no thumbnails")
	}
	return toImages(d.Thumbnail.Thumbnails), nil
}

func toImages(thumbs []ytThumb) []progressive.Image {
	out := make([]progressive.Image, 0, len(thumbs))
	for _, t := range thumbs {
		if t.URL == "" {
			continue
		}
		u := t.URL
		if strings.HasPrefix(u, "//") {
			u = "https:" + u
		}
		out = append(out, progressive.Image{URL: u, Width: t.Width, Height: t.Height})
	}
	return out
}

func (e *youtubeEssential) DashManifestURL() (string, error) {
	if e.resp.StreamingData == nil {
		return "", nil
	}
	return e.resp.StreamingData.DashManifestURL, nil
}

func (e *youtubeEssential) HLSManifestURL() (string, error) {
	if e.resp.StreamingData == nil {
		return "", nil
	}
	return e.resp.StreamingData.HLSManifestURL, nil
}

// VideoStreams returns the muxed formats. Ciphered formats need signature
// deciphering and are skipped.
func (e *youtubeEssential) VideoStreams() ([]progressive.VideoStream, error) {
	if e.resp.StreamingData == nil {
		return nil, nil
	}
	var out []progressive.VideoStream
	for _, f := range e.resp.StreamingData.Formats {
		if f.URL == "" {
			continue
		}
		out = append(out, toVideoStream(f, false))
	}
	return out, nil
}

func (e *youtubeEssential) VideoOnlyStreams() ([]progressive.VideoStream, error) {
	if e.resp.StreamingData == nil {
		return nil, nil
	}
	var out []progressive.VideoStream
	for _, f := range e.resp.StreamingData.AdaptiveFormats {
		if f.URL == "" || !strings.HasPrefix(f.MimeType, "video/") {
			continue
		}
		out = append(out, toVideoStream(f, true))
	}
	return out, nil
}

func (e *youtubeEssential) AudioStreams() ([]progressive.AudioStream, error) {
	if e.resp.StreamingData == nil {
		return nil, nil
	}
	var out []progressive.AudioStream
	for _, f := range e.resp.StreamingData.AdaptiveFormats {
		if f.URL == "" || !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		mime, codec := parseMimeType(f.MimeType)
		s := progressive.AudioStream{
			Itag:           f.Itag,
			URL:            f.URL,
			MimeType:       mime,
			Codec:          codec,
			Bitrate:        f.Bitrate,
			AverageBitrate: f.AverageBitrate,
		}
		if f.AudioTrack != nil {
			s.TrackID = f.AudioTrack.ID
			s.TrackName = f.AudioTrack.DisplayName
		}
		out = append(out, s)
	}
	return out, nil
}

func (e *youtubeEssential) UnavailableReason() string { return e.resp.unavailableReason() }

func toVideoStream(f ytFormat, videoOnly bool) progressive.VideoStream {
	mime, codec := parseMimeType(f.MimeType)
	res := f.QualityLabel
	if res == "" && f.Height > 0 {
		res = strconv.Itoa(f.Height) + "p"
	}
	return progressive.VideoStream{
		Itag:       f.Itag,
		URL:        f.URL,
		MimeType:   mime,
		Codec:      codec,
		Resolution: res,
		Width:      f.Width,
		Height:     f.Height,
		FPS:        f.FPS,
		Bitrate:    f.Bitrate,
		VideoOnly:  videoOnly,
	}
}
