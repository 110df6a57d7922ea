package providers

import (
	"context"
	"testing"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

type countingFetcher struct {
	calls    int
	lastQ    Query
	articles []domain.Article
}

func (c *countingFetcher) ID() string { return "counting" }
func (c *countingFetcher) Fetch(_ context.Context, _ Provider, q Query) ([]domain.Article, error) {
	c.calls++
	c.lastQ = q
	return c.articles, nil
}

func TestFetcherRegistryPrefersIDOverType(t *testing.T) {
	byType := &countingFetcher{}
	byID := &countingFetcher{}
	reg := NewTypeFetcherRegistry(map[string]Fetcher{ProviderTypeGoogleNewsRSS: byType})
	reg.(*fetcherRegistry).registerIDFetcher(byID)

	f, err := reg.FetcherFor(Provider{ID: "counting", Type: ProviderTypeGoogleNewsRSS})
	if err != nil || f != byID {
		t.Fatalf("expected id fetcher, got %v %v", f, err)
	}
	f, err = reg.FetcherFor(Provider{ID: "other", Type: ProviderTypeGoogleNewsRSS})
	if err != nil || f != byType {
		t.Fatalf("expected type fetcher, got %v %v", f, err)
	}
	if _, err := reg.FetcherFor(Provider{ID: "x", Type: "unknown"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestSourceValidatesClampsAndTruncates(t *testing.T) {
	inner := &countingFetcher{articles: make([]domain.Article, 8)}
	src, err := Bind(NewFetcherRegistry(inner), Provider{ID: "counting", Type: ProviderTypeNewsAPI, MaxPageSize: 5})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	if _, err := src.Fetch(context.Background(), Query{Topic: "", Count: 3}); !domain.IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if inner.calls != 0 {
		t.Fatalf("fetcher must not be called for invalid input")
	}

	got, err := src.Fetch(context.Background(), Query{Topic: "  ev  ", Count: 9})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if inner.lastQ.Count != 5 || inner.lastQ.Topic != "ev" {
		t.Fatalf("expected clamped query, got %+v", inner.lastQ)
	}
	if len(got) != 5 {
		t.Fatalf("expected result truncated to 5, got %d", len(got))
	}
}
