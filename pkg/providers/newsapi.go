package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

// ErrMissingAPIKey is wrapped in the ProviderError returned when no key is configured.
var ErrMissingAPIKey = errors.New("no API key configured")

// newsAPIFetcher implements Fetcher for the NewsAPI "everything" search endpoint.
type newsAPIFetcher struct {
	client HTTPClient
	apiKey string
}

// NewNewsAPIFetcher builds the search API fetcher. An empty apiKey makes every Fetch fail.
func NewNewsAPIFetcher(client HTTPClient, apiKey string) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &newsAPIFetcher{client: client, apiKey: strings.TrimSpace(apiKey)}
}

func (f *newsAPIFetcher) ID() string {
	return ProviderTypeNewsAPI
}

type newsAPIResponse struct {
	Status       string        `json:"status"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	TotalResults int           `json:"totalResults"`
	Articles     []newsAPIItem `json:"articles"`
}

type newsAPIItem struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

func (f *newsAPIFetcher) Fetch(ctx context.Context, cfg Provider, q Query) ([]domain.Article, error) {
	if !strings.EqualFold(cfg.Type, ProviderTypeNewsAPI) {
		return nil, fmt.Errorf("newsapi fetcher received incompatible provider type %q", cfg.Type)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if f.apiKey == "" {
		return nil, domain.NewProviderError(cfg.ID, "search", 0, ErrMissingAPIKey)
	}

	searchURL, err := buildNewsAPIURL(cfg, q)
	if err != nil {
		return nil, err
	}

	headers := Headers(cfg)
	headers["X-Api-Key"] = f.apiKey

	raw, err := fetchBody(ctx, f.client, searchURL, cfg.ID, "search", headers)
	if err != nil {
		return nil, err
	}

	var payload newsAPIResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, domain.NewProviderError(cfg.ID, "search decode", 0, err)
	}
	if !strings.EqualFold(payload.Status, "ok") {
		return nil, domain.NewProviderError(cfg.ID, "search", 0,
			fmt.Errorf("status %q code %q: %s", payload.Status, payload.Code, payload.Message))
	}

	articles := make([]domain.Article, 0, len(payload.Articles))
	for _, item := range payload.Articles {
		art, err := parseNewsAPIItem(item)
		if err != nil {
			continue
		}
		articles = append(articles, art)
	}
	return articles, nil
}

func buildNewsAPIURL(cfg Provider, q Query) (string, error) {
	parsed, err := url.Parse(cfg.SourceURL)
	if err != nil {
		return "", fmt.Errorf("parse %s source_url: %w", cfg.ID, err)
	}

	params := parsed.Query()
	params.Set("q", strings.TrimSpace(q.Topic))
	params.Set("pageSize", strconv.Itoa(cfg.ClampCount(q.Count)))
	if v := ConfigString(cfg, ConfigLanguageKey, ""); v != "" {
		params.Set("language", v)
	}
	if v := ConfigString(cfg, ConfigSortByKey, ""); v != "" {
		params.Set("sortBy", v)
	}
	parsed.RawQuery = params.Encode()
	return parsed.String(), nil
}

// parseNewsAPIItem maps one search hit to an Article. Removed or link-less items are rejected.
func parseNewsAPIItem(item newsAPIItem) (domain.Article, error) {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.URL)
	if title == "" || link == "" || title == "[Removed]" {
		return domain.Article{}, errIncompleteItem
	}

	source := strings.TrimSpace(item.Source.Name)
	if source == "" {
		source = unknownSource
	}
	description := strings.TrimSpace(item.Description)
	if description == "" {
		description = strings.TrimSpace(item.Content)
	}

	return domain.Article{
		ID:          hashURL(link),
		Title:       title,
		URL:         link,
		Source:      source,
		Published:   strings.TrimSpace(item.PublishedAt),
		Description: htmlToText(description),
	}, nil
}
