package digest

import (
	"strings"
	"time"
	"unicode"
)

// Slug turns a topic into a filename-safe token.
func Slug(topic string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(topic)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "digest"
	}
	return out
}

// Filename is the download name for an export, e.g. news_digest_ev_20251006_0900.md.
func Filename(topic string, at time.Time, ext string) string {
	return "news_digest_" + Slug(topic) + "_" + at.UTC().Format("20060102_1504") + "." + ext
}
