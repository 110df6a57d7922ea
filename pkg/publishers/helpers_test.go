package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

func sampleEvent() DigestEvent {
	return NewDigestEvent(domain.Digest{
		ID:          "digest-1",
		Title:       "Daily News Digest: electric vehicles",
		Topic:       "electric vehicles",
		GeneratedAt: time.Date(2025, time.October, 6, 9, 0, 0, 0, time.UTC),
		Tally:       domain.Tally{Positive: 1},
		Results: []domain.ArticleResult{{
			Article:   domain.Article{ID: "a1", Title: "EV sales climb", URL: "https://news.example/a1"},
			Summary:   "Sales rose.",
			Sentiment: domain.SentimentPositive,
		}},
	})
}
