package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_stream/internal/engine"
)

// ytInitialDataMarker marks the watch-next JSON inside the watch page scripts.
const ytInitialDataMarker = "ytInitialData = "

// fetchWatchPage downloads the watch page, through the Chrome-fingerprint client
// when one is configured.
func (p *YouTubeProvider) fetchWatchPage(ctx context.Context, videoID string) ([]byte, error) {
	pageURL := p.baseURL + "/watch?v=" + videoID + "&hl=" + p.hl + "&bpctr=9999999999&has_verified=1"
	if p.browser == nil {
		return engine.FetchPage(ctx, pageURL)
	}

	headers := engine.ChromeHeaders()
	headers["referer"] = ytCanonicalOrigin + "/"
	operation := func() ([]byte, error) {
		data, _, status, err := p.browser.Do(http.MethodGet, pageURL, headers, nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			serr := &engine.StatusError{Code: status}
			if engine.IsRetryableStatus(status) {
				return nil, serr
			}
			return nil, backoff.Permanent(serr)
		}
		return data, nil
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(engine.PageBackOff()),
		backoff.WithMaxTries(3),
		backoff.WithMaxElapsedTime(engine.Cfg.FetchTimeout))
}

// initialDataFromPage finds the script holding ytInitialData and decodes it.
func initialDataFromPage(page []byte) (map[string]any, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse watch page: %w", err)
	}

	var script string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "script" && n.FirstChild != nil {
			if text := n.FirstChild.Data; strings.Contains(text, ytInitialDataMarker) {
				script = text
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	if !walk(doc) {
		return nil, errors.New("ytInitialData not found in watch page")
	}

	idx := strings.Index(script, ytInitialDataMarker)
	jsonData := extractJSON([]byte(script[idx+len(ytInitialDataMarker):]))
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialData JSON")
	}
	var data map[string]any
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("decode ytInitialData: %w", err)
	}
	return data, nil
}

// extractJSON extracts a complete JSON object starting at b[0] == '{' by tracking brace depth.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
