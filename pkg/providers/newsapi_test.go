package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

const sampleNewsAPI = `{
  "status": "ok",
  "totalResults": 3,
  "articles": [
    {"source": {"id": null, "name": "TechCrunch"}, "title": "AI startup raises", "description": "Funding round", "url": "https://tc.example/a", "publishedAt": "2025-10-01T10:00:00Z"},
    {"source": {"name": ""}, "title": "No description", "description": "", "content": "Body text [+200 chars]", "url": "https://x.example/b"},
    {"source": {"name": "Removed"}, "title": "[Removed]", "url": "https://removed.com"}
  ]
}`

func newsAPIProvider() Provider {
	return sanitizeProvider(Provider{
		ID:          "newsapi",
		Type:        ProviderTypeNewsAPI,
		SourceURL:   "https://newsapi.org/v2/everything",
		MaxPageSize: 100,
		Config: map[string]any{
			ConfigLanguageKey: "en",
			ConfigSortByKey:   "publishedAt",
		},
	})
}

func TestNewsAPIFetcherMapsArticles(t *testing.T) {
	client := &mockHTTPClient{
		t:         t,
		expectURL: "https://newsapi.org/v2/everything?language=en&pageSize=5&q=AI+startups&sortBy=publishedAt",
		expect:    map[string]string{"X-Api-Key": "secret"},
		body:      sampleNewsAPI,
	}

	articles, err := NewNewsAPIFetcher(client, "secret").Fetch(context.Background(), newsAPIProvider(), Query{Topic: "AI startups", Count: 5})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected removed article to be dropped, got %d", len(articles))
	}
	if articles[0].Source != "TechCrunch" || articles[0].Published != "2025-10-01T10:00:00Z" {
		t.Errorf("unexpected first article %+v", articles[0])
	}
	if articles[1].Source != unknownSource || articles[1].Description != "Body text [+200 chars]" {
		t.Errorf("expected content fallback and unknown source, got %+v", articles[1])
	}
}

func TestNewsAPIFetcherClampsPageSize(t *testing.T) {
	client := &mockHTTPClient{
		t:         t,
		expectURL: "https://newsapi.org/v2/everything?language=en&pageSize=100&q=ev&sortBy=publishedAt",
		body:      `{"status":"ok","articles":[]}`,
	}
	articles, err := NewNewsAPIFetcher(client, "secret").Fetch(context.Background(), newsAPIProvider(), Query{Topic: "ev", Count: 250})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(articles) != 0 {
		t.Fatalf("expected no articles, got %d", len(articles))
	}
}

func TestNewsAPIFetcherRequiresKey(t *testing.T) {
	client := &mockHTTPClient{t: t}
	_, err := NewNewsAPIFetcher(client, "").Fetch(context.Background(), newsAPIProvider(), Query{Topic: "ev", Count: 3})
	if !domain.IsProviderError(err) || !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected missing key provider error, got %v", err)
	}
	if len(client.calls) != 0 {
		t.Fatalf("expected no network call")
	}
}

func TestNewsAPIFetcherErrorStatus(t *testing.T) {
	client := &mockHTTPClient{t: t, status: 401, body: `{"status":"error","code":"apiKeyInvalid","message":"bad key"}`}
	_, err := NewNewsAPIFetcher(client, "secret").Fetch(context.Background(), newsAPIProvider(), Query{Topic: "ev", Count: 3})
	var perr *domain.ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != 401 {
		t.Fatalf("expected 401 provider error, got %v", err)
	}

	client = &mockHTTPClient{t: t, body: `{"status":"error","code":"rateLimited","message":"slow down"}`}
	if _, err := NewNewsAPIFetcher(client, "secret").Fetch(context.Background(), newsAPIProvider(), Query{Topic: "ev", Count: 3}); !domain.IsProviderError(err) {
		t.Fatalf("expected provider error for status=error body, got %v", err)
	}
}
