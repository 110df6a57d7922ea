package pipeline

import (
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

// SourceKind selects which article source a run uses.
type SourceKind string

const (
	SourceRSS SourceKind = "rss"
	SourceAPI SourceKind = "api"
)

// Label is the human readable name shown in the form.
func (k SourceKind) Label() string {
	switch k {
	case SourceAPI:
		return "NewsAPI"
	default:
		return "Google News RSS"
	}
}

// ParseSourceKind accepts the selector values used by the form, the API and the CLI.
// An empty value selects RSS.
func ParseSourceKind(raw string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "rss", "google", "google_news", "google_news_rss":
		return SourceRSS, nil
	case "api", "newsapi":
		return SourceAPI, nil
	default:
		return "", domain.NewInvalidInput("source", fmt.Sprintf("unknown source %q (want rss or api)", raw))
	}
}
