package providers

import (
	"context"
	"strings"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/pkg/httpclient"
)

// Query is what the pipeline asks of a source.
type Query struct {
	Topic string
	Count int
}

// Validate rejects queries that must never reach the network.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Topic) == "" {
		return domain.NewInvalidInput("topic", "must not be empty")
	}
	if q.Count < 1 {
		return domain.NewInvalidInput("count", "must be a positive integer")
	}
	return nil
}

// Fetcher is responsible for retrieving articles for a provider type.
// Concrete implementations live in provider-specific files (e.g., newsapi.go).
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, cfg Provider, q Query) ([]domain.Article, error)
}

// FetcherRegistry resolves the fetcher implementation for a given provider config.
type FetcherRegistry interface {
	FetcherFor(cfg Provider) (Fetcher, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within providers.
type HTTPClient = httpclient.Client
