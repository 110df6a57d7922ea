package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/pkg/httpclient"
)

// fetcherRegistry implements FetcherRegistry.
type fetcherRegistry struct {
	fetchersByID   map[string]Fetcher
	fetchersByType map[string]Fetcher
	mu             sync.RWMutex
}

// NewFetcherRegistry builds a registry for the provided fetcher implementations keyed by provider id.
func NewFetcherRegistry(fetchers ...Fetcher) FetcherRegistry {
	return NewTypeFetcherRegistry(nil, fetchers...)
}

// NewTypeFetcherRegistry builds a registry with optional type-based fetchers and provider-specific fetchers.
func NewTypeFetcherRegistry(typeFetchers map[string]Fetcher, fetchers ...Fetcher) FetcherRegistry {
	reg := &fetcherRegistry{
		fetchersByID:   make(map[string]Fetcher),
		fetchersByType: make(map[string]Fetcher),
	}

	for _, f := range fetchers {
		reg.registerIDFetcher(f)
	}
	for typ, f := range typeFetchers {
		reg.registerTypeFetcher(typ, f)
	}

	return reg
}

// registerIDFetcher registers a fetcher by its provider ID.
func (r *fetcherRegistry) registerIDFetcher(f Fetcher) {
	if f == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(f.ID()))
	if key == "" {
		return
	}

	r.mu.Lock()
	r.fetchersByID[key] = f
	r.mu.Unlock()
}

// registerTypeFetcher registers a fetcher by provider type.
func (r *fetcherRegistry) registerTypeFetcher(typ string, f Fetcher) {
	if f == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return
	}

	r.mu.Lock()
	r.fetchersByType[key] = f
	r.mu.Unlock()
}

// FetcherFor selects the fetcher for the given provider based on its id or type.
func (r *fetcherRegistry) FetcherFor(cfg Provider) (Fetcher, error) {
	if r == nil {
		return nil, fmt.Errorf("fetcher registry is nil")
	}
	if strings.TrimSpace(cfg.ID) == "" {
		return nil, fmt.Errorf("provider id is empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	idKey := strings.ToLower(strings.TrimSpace(cfg.ID))
	if f, ok := r.fetchersByID[idKey]; ok {
		return f, nil
	}

	typeKey := strings.ToLower(strings.TrimSpace(cfg.Type))
	if typeKey != "" {
		if f, ok := r.fetchersByType[typeKey]; ok {
			return f, nil
		}
	}

	return nil, fmt.Errorf("no fetcher registered for provider %q (type %q)", cfg.ID, cfg.Type)
}

// DefaultHTTPClient returns a tuned http client for provider fetchers.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(15 * time.Second) }

// Keys carries the provider credentials read at startup.
type Keys struct {
	NewsAPI string
}

// DefaultFetcherRegistry wires up known provider fetchers.
func DefaultFetcherRegistry(client HTTPClient, keys Keys) FetcherRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}

	typeFetchers := map[string]Fetcher{
		ProviderTypeGoogleNewsRSS: NewGoogleNewsFetcher(client),
		ProviderTypeNewsAPI:       NewNewsAPIFetcher(client, keys.NewsAPI),
	}

	return NewTypeFetcherRegistry(typeFetchers)
}

// Source binds a provider config to its fetcher so callers only deal in topic and count.
type Source struct {
	provider Provider
	fetcher  Fetcher
}

// Bind resolves the fetcher for cfg.
func Bind(reg FetcherRegistry, cfg Provider) (*Source, error) {
	if reg == nil {
		return nil, fmt.Errorf("fetcher registry is nil")
	}
	f, err := reg.FetcherFor(cfg)
	if err != nil {
		return nil, err
	}
	return &Source{provider: cfg, fetcher: f}, nil
}

// Provider returns the bound provider config.
func (s *Source) Provider() Provider { return s.provider }

// Fetch validates q, clamps the count to the provider's page size and fetches.
// The returned slice never exceeds the requested count.
func (s *Source) Fetch(ctx context.Context, q Query) ([]domain.Article, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q.Topic = strings.TrimSpace(q.Topic)
	q.Count = s.provider.ClampCount(q.Count)

	articles, err := s.fetcher.Fetch(ctx, s.provider, q)
	if err != nil {
		return nil, err
	}
	if len(articles) > q.Count {
		articles = articles[:q.Count]
	}
	return articles, nil
}
