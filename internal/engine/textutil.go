package engine

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/strutil"
)

// UserAgentChrome is sent by the WEB Innertube client.
const UserAgentChrome = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// TruncateAtWord truncates a string to maxLen runes at a word boundary.
func TruncateAtWord(s string, maxLen int) string {
	return strutil.TruncateAtWord(s, maxLen)
}

// FormatDuration renders d as h:mm:ss, or m:ss under an hour.
// Zero and negative durations are "unknown".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "unknown"
	}
	total := int64(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatCount renders n with a K/M/B suffix and one decimal. Negative counts are
// unknown.
func FormatCount(n int64) string {
	switch {
	case n < 0:
		return "unknown"
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1e9)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	}
	return strconv.FormatInt(n, 10)
}

var countRe = regexp.MustCompile(`(\d[\d,.\s]*)\s*([KkMmBb])?`)

// ParseCount reads the leading number of texts like "12,345 views", "1.2M
// subscribers" or "No views". It fails when the text has no digits.
func ParseCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "no ") {
		return 0, nil
	}
	m := countRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("parse count %q: no digits", s)
	}
	num := strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(m[1]))
	mult := 1.0
	switch strings.ToUpper(m[2]) {
	case "K":
		mult = 1e3
	case "M":
		mult = 1e6
	case "B":
		mult = 1e9
	}
	if mult == 1 {
		num = strings.ReplaceAll(num, ".", "")
		return strconv.ParseInt(num, 10, 64)
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", s, err)
	}
	return int64(math.Round(f * mult)), nil
}
