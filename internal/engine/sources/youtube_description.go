package sources

import (
	"net/url"
	"strings"
	"unicode/utf16"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_stream/internal/progressive"
)

// descLink is one linked span of a description.
type descLink struct {
	text string
	href string
}

// descriptionFromAttributed reads the attributedDescription form: plain content
// plus commandRuns whose startIndex and length count UTF-16 code units.
func descriptionFromAttributed(v any) (progressive.Description, bool) {
	content, ok := dig(v, "content").(string)
	if !ok {
		return progressive.Description{}, false
	}
	runs, _ := dig(v, "commandRuns").([]any)
	if len(runs) == 0 {
		return progressive.Description{Content: content, Type: progressive.DescriptionPlain}, true
	}

	units := utf16.Encode([]rune(content))
	var (
		parts []descLink
		pos   int
	)
	for _, r := range runs {
		start, ok1 := dig(r, "startIndex").(float64)
		length, ok2 := dig(r, "length").(float64)
		if !ok1 || !ok2 {
			continue
		}
		s, e := int(start), int(start)+int(length)
		if s < pos || e > len(units) || s >= e {
			continue
		}
		href := commandURL(r)
		if href == "" {
			continue
		}
		if s > pos {
			parts = append(parts, descLink{text: string(utf16.Decode(units[pos:s]))})
		}
		parts = append(parts, descLink{text: string(utf16.Decode(units[s:e])), href: href})
		pos = e
	}
	if pos < len(units) {
		parts = append(parts, descLink{text: string(utf16.Decode(units[pos:]))})
	}
	return renderDescription(parts), true
}

// descriptionFromRuns reads the older description.runs form.
func descriptionFromRuns(v any) (progressive.Description, bool) {
	runs, _ := v.([]any)
	if len(runs) == 0 {
		return progressive.Description{}, false
	}
	parts := make([]descLink, 0, len(runs))
	for _, r := range runs {
		text, _ := dig(r, "text").(string)
		href := cleanText(dig(r, "navigationEndpoint", "urlEndpoint", "url"))
		if href == "" {
			if id := cleanText(dig(r, "navigationEndpoint", "watchEndpoint", "videoId")); id != "" {
				href = ytWatchURL(id)
			}
		}
		parts = append(parts, descLink{text: text, href: unwrapRedirect(href)})
	}
	return renderDescription(parts), true
}

func commandURL(run any) string {
	cmd := dig(run, "onTap", "innertubeCommand")
	if u := cleanText(dig(cmd, "urlEndpoint", "url")); u != "" {
		return unwrapRedirect(u)
	}
	if u := cleanText(dig(cmd, "commandMetadata", "webCommandMetadata", "url")); u != "" {
		if strings.HasPrefix(u, "/") {
			return ytCanonicalOrigin + u
		}
		return unwrapRedirect(u)
	}
	return ""
}

// unwrapRedirect turns youtube.com/redirect?q=<target> links into the target.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil || !strings.HasSuffix(u.Host, "youtube.com") || u.Path != "/redirect" {
		return href
	}
	if q := u.Query().Get("q"); q != "" {
		return q
	}
	return href
}

// renderDescription builds HTML from the parts and converts it to Markdown.
// Descriptions without links stay plain text.
func renderDescription(parts []descLink) progressive.Description {
	var (
		plain  strings.Builder
		doc    strings.Builder
		linked bool
	)
	for _, p := range parts {
		plain.WriteString(p.text)
		text := strings.ReplaceAll(html.EscapeString(p.text), "\n", "<br>")
		if p.href == "" {
			doc.WriteString(text)
			continue
		}
		linked = true
		doc.WriteString(`<a href="`)
		doc.WriteString(html.EscapeString(p.href))
		doc.WriteString(`">`)
		doc.WriteString(text)
		doc.WriteString(`</a>`)
	}
	if !linked {
		return progressive.Description{Content: plain.String(), Type: progressive.DescriptionPlain}
	}

	md, err := htmltomarkdown.ConvertString("<p>" + doc.String() + "</p>")
	if err != nil {
		return progressive.Description{Content: "<p>" + doc.String() + "</p>", Type: progressive.DescriptionHTML}
	}
	return progressive.Description{Content: strings.TrimSpace(md), Type: progressive.DescriptionMarkdown}
}
