package pipeline

import (
	"context"

	"github.com/samvad-hq/samvad-news-digest/internal/analysis"
	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/internal/storage"
	"github.com/samvad-hq/samvad-news-digest/pkg/providers"
	"github.com/samvad-hq/samvad-news-digest/pkg/publishers"
)

// ArticleSource fetches articles for one configured provider. *providers.Source implements it.
type ArticleSource interface {
	Provider() providers.Provider
	Fetch(ctx context.Context, q providers.Query) ([]domain.Article, error)
}

// ArticleScraper fills in missing article metadata from the article page.
type ArticleScraper interface {
	Enrich(ctx context.Context, cfg providers.Provider, articles []domain.Article) []domain.Article
}

type Summarizer interface {
	Summarize(ctx context.Context, art domain.Article) (analysis.Summary, error)
}

type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Sentiment, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, topic string, summaries []string) (string, error)
}

// Archive stores rendered exports for later download.
type Archive interface {
	Put(ctx context.Context, rec storage.Record) error
}

// EventPublisher publishes assembled digests downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.DigestEvent) (int, error)
}
