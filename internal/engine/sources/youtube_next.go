package sources

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anatolykoptev/go_stream/internal/engine"
	"github.com/anatolykoptev/go_stream/internal/progressive"
)

// ytLicence is the only licence the watch-next data names without a metadata row.
const ytLicence = "YouTube licence"

// youtubeAdditional combines the /next feed (or the watch page's ytInitialData,
// which has the same shape) with the WEB /player answer. Either source may be
// missing; the fields it feeds then fail on their own.
type youtubeAdditional struct {
	next    map[string]any
	nextErr error

	player    *ytPlayerResp
	playerErr error
}

func (a *youtubeAdditional) primaryInfo() (any, error) {
	if a.next == nil {
		return nil, fmt.Errorf("watch-next data: %w", a.nextErr)
	}
	if v := findRenderer(a.next, "videoPrimaryInfoRenderer"); v != nil {
		return v, nil
	}
	return nil, errors.New("videoPrimaryInfoRenderer not found")
}

func (a *youtubeAdditional) secondaryInfo() (any, error) {
	if a.next == nil {
		return nil, fmt.Errorf("watch-next data: %w", a.nextErr)
	}
	if v := findRenderer(a.next, "videoSecondaryInfoRenderer"); v != nil {
		return v, nil
	}
	return nil, errors.New("videoSecondaryInfoRenderer not found")
}

func (a *youtubeAdditional) owner() (any, error) {
	sec, err := a.secondaryInfo()
	if err != nil {
		return nil, err
	}
	if o := dig(sec, "owner", "videoOwnerRenderer"); o != nil {
		return o, nil
	}
	return nil, errors.New("videoOwnerRenderer not found")
}

func (a *youtubeAdditional) microformat() (*ytMicroformat, error) {
	if a.player == nil {
		return nil, fmt.Errorf("web player: %w", a.playerErr)
	}
	if mf := a.player.Microformat.PlayerMicroformatRenderer; mf != nil {
		return mf, nil
	}
	return nil, errors.New("microformat missing from web player response")
}

func (a *youtubeAdditional) Description() (progressive.Description, error) {
	if sec, err := a.secondaryInfo(); err == nil {
		if d, ok := descriptionFromAttributed(dig(sec, "attributedDescription")); ok {
			return d, nil
		}
		if d, ok := descriptionFromRuns(dig(sec, "description", "runs")); ok {
			return d, nil
		}
	}
	mf, err := a.microformat()
	if err != nil {
		return progressive.Description{}, err
	}
	return progressive.Description{Content: mf.Description.SimpleText, Type: progressive.DescriptionPlain}, nil
}

func (a *youtubeAdditional) ViewCount() (int64, error) {
	if pri, err := a.primaryInfo(); err == nil {
		text := textOf(dig(pri, "viewCount", "videoViewCountRenderer", "viewCount"))
		if text != "" {
			return engine.ParseCount(text)
		}
	}
	mf, err := a.microformat()
	if err != nil {
		return -1, err
	}
	return engine.ParseCount(mf.ViewCount)
}

func (a *youtubeAdditional) LikeCount() (int64, error) {
	if a.next == nil {
		return -1, fmt.Errorf("watch-next data: %w", a.nextErr)
	}
	if s, ok := findKey(a.next, "likeCountIfIndifferentNumber").(string); ok && s != "" {
		return engine.ParseCount(s)
	}
	// "like this video along with 1,234 other people"
	if label, ok := findKey(a.next, "likeButtonViewModel").(map[string]any); ok {
		text, _ := findKey(label, "accessibilityText").(string)
		if _, n, found := strings.Cut(text, "along with "); found {
			return engine.ParseCount(n)
		}
	}
	return -1, errors.New("like count not found")
}

// DislikeCount is not published by YouTube.
func (a *youtubeAdditional) DislikeCount() (int64, error) { return -1, nil }

func (a *youtubeAdditional) TextualUploadDate() (string, error) {
	if pri, err := a.primaryInfo(); err == nil {
		if s := textOf(dig(pri, "dateText")); s != "" {
			return s, nil
		}
	}
	mf, err := a.microformat()
	if err != nil {
		return "", err
	}
	return mf.PublishDate, nil
}

func (a *youtubeAdditional) UploadDate() (time.Time, error) {
	mf, err := a.microformat()
	if err != nil {
		return time.Time{}, err
	}
	raw := mf.UploadDate
	if raw == "" {
		raw = mf.PublishDate
	}
	return parseUploadDate(raw)
}

// parseUploadDate accepts both the date-only and the full RFC 3339 microformat forms.
func parseUploadDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("upload date %q: %w", raw, err)
	}
	return t, nil
}

func (a *youtubeAdditional) Category() (string, error) {
	mf, err := a.microformat()
	if err != nil {
		return "", err
	}
	return mf.Category, nil
}

func (a *youtubeAdditional) Licence() (string, error) { return ytLicence, nil }

func (a *youtubeAdditional) Tags() ([]string, error) {
	if a.player == nil {
		return nil, fmt.Errorf("web player: %w", a.playerErr)
	}
	if a.player.VideoDetails == nil {
		return nil, nil
	}
	return a.player.VideoDetails.Keywords, nil
}

func (a *youtubeAdditional) UploaderAvatars() ([]progressive.Image, error) {
	o, err := a.owner()
	if err != nil {
		return nil, err
	}
	return imagesOf(dig(o, "thumbnail", "thumbnails")), nil
}

// UploaderSubscriberCount is -1 when the channel hides its count.
func (a *youtubeAdditional) UploaderSubscriberCount() (int64, error) {
	o, err := a.owner()
	if err != nil {
		return -1, err
	}
	text := textOf(dig(o, "subscriberCountText"))
	if text == "" {
		return -1, nil
	}
	return engine.ParseCount(text)
}

func (a *youtubeAdditional) UploaderVerified() (bool, error) {
	o, err := a.owner()
	if err != nil {
		return false, err
	}
	badges, _ := dig(o, "badges").([]any)
	for _, b := range badges {
		style, _ := dig(b, "metadataBadgeRenderer", "style").(string)
		if style == "BADGE_STYLE_TYPE_VERIFIED" || style == "BADGE_STYLE_TYPE_VERIFIED_ARTIST" {
			return true, nil
		}
	}
	return false, nil
}

// YouTube has no sub-channels.
func (a *youtubeAdditional) SubChannelName() (string, error)                 { return "", nil }
func (a *youtubeAdditional) SubChannelURL() (string, error)                  { return "", nil }
func (a *youtubeAdditional) SubChannelAvatars() ([]progressive.Image, error) { return nil, nil }

func (a *youtubeAdditional) RelatedItems() ([]progressive.RelatedItem, error) {
	if a.next == nil {
		return nil, fmt.Errorf("watch-next data: %w", a.nextErr)
	}
	var renderers []map[string]any
	collectVideoRenderers(dig(a.next, "contents", "twoColumnWatchNextResults", "secondaryResults"), &renderers)

	items := make([]progressive.RelatedItem, 0, len(renderers))
	for _, r := range renderers {
		if item, ok := relatedFromRenderer(r); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (a *youtubeAdditional) FeedURL() (string, error) {
	if mf, err := a.microformat(); err == nil && mf.ExternalChannelID != "" {
		return ytFeedURL(mf.ExternalChannelID), nil
	}
	if a.player != nil && a.player.VideoDetails != nil && a.player.VideoDetails.ChannelID != "" {
		return ytFeedURL(a.player.VideoDetails.ChannelID), nil
	}
	if o, err := a.owner(); err == nil {
		if id := cleanText(dig(o, "navigationEndpoint", "browseEndpoint", "browseId")); id != "" {
			return ytFeedURL(id), nil
		}
	}
	return "", errors.New("channel id not found")
}

func relatedFromRenderer(m map[string]any) (progressive.RelatedItem, bool) {
	id := cleanText(m["videoId"])
	if id == "" {
		return progressive.RelatedItem{}, false
	}
	item := progressive.RelatedItem{
		ID:           id,
		URL:          ytWatchURL(id),
		Name:         textOf(m["title"]),
		UploaderName: textOf(m["longBylineText"]),
		ViewCount:    -1,
		Thumbnails:   imagesOf(dig(m, "thumbnail", "thumbnails")),
	}
	if item.UploaderName == "" {
		item.UploaderName = textOf(m["shortBylineText"])
	}
	if d, err := parseClock(textOf(m["lengthText"])); err == nil {
		item.Duration = d
	}
	if n, err := engine.ParseCount(textOf(m["viewCountText"])); err == nil {
		item.ViewCount = n
	}
	return item, true
}

// parseClock reads "h:mm:ss" or "m:ss".
func parseClock(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("clock %q: want m:ss or h:mm:ss", s)
	}
	var total time.Duration
	for _, p := range parts {
		var n int
		if _, err := fmt.Sscanf(p, "%d", &n); err != nil {
			return 0, fmt.Errorf("clock %q: %w", s, err)
		}
		total = total*60 + time.Duration(n)
	}
	return total * time.Second, nil
}

// --- generic ytInitialData walking ---

func collectVideoRenderers(node any, out *[]map[string]any) {
	switch typed := node.(type) {
	case map[string]any:
		if cvr, ok := typed["compactVideoRenderer"].(map[string]any); ok {
			*out = append(*out, cvr)
			return
		}
		if vr, ok := typed["videoRenderer"].(map[string]any); ok {
			*out = append(*out, vr)
			return
		}
		for _, v := range typed {
			collectVideoRenderers(v, out)
		}
	case []any:
		for _, v := range typed {
			collectVideoRenderers(v, out)
		}
	}
}

// findRenderer returns the first object stored under name anywhere in node.
func findRenderer(node any, name string) any {
	if m, ok := findKey(node, name).(map[string]any); ok {
		return m
	}
	return nil
}

// findKey does a depth-first search for key. Slices are walked in order so the
// first match is stable; map iteration order only matters for duplicate keys.
func findKey(node any, key string) any {
	switch typed := node.(type) {
	case map[string]any:
		if v, ok := typed[key]; ok {
			return v
		}
		for _, v := range typed {
			if found := findKey(v, key); found != nil {
				return found
			}
		}
	case []any:
		for _, v := range typed {
			if found := findKey(v, key); found != nil {
				return found
			}
		}
	}
	return nil
}

func dig(v any, keys ...any) any {
	cur := v
	for _, k := range keys {
		switch key := k.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur = m[key]
		case int:
			a, ok := cur.([]any)
			if !ok || key < 0 || key >= len(a) {
				return nil
			}
			cur = a[key]
		}
	}
	return cur
}

// textOf flattens the {simpleText} and {runs: [{text}]} text forms.
func textOf(v any) string {
	if s, ok := dig(v, "simpleText").(string); ok {
		return strings.TrimSpace(s)
	}
	if s, ok := dig(v, "content").(string); ok {
		return strings.TrimSpace(s)
	}
	runs, _ := dig(v, "runs").([]any)
	var sb strings.Builder
	for _, r := range runs {
		if s, ok := dig(r, "text").(string); ok {
			sb.WriteString(s)
		}
	}
	return strings.TrimSpace(sb.String())
}

func imagesOf(v any) []progressive.Image {
	raw, _ := v.([]any)
	thumbs := make([]ytThumb, 0, len(raw))
	for _, r := range raw {
		t := ytThumb{URL: cleanText(dig(r, "url"))}
		if w, ok := dig(r, "width").(float64); ok {
			t.Width = int(w)
		}
		if h, ok := dig(r, "height").(float64); ok {
			t.Height = int(h)
		}
		thumbs = append(thumbs, t)
	}
	return toImages(thumbs)
}

func cleanText(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
