package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

// googleNewsFetcher implements Fetcher for Google News RSS search feeds.
type googleNewsFetcher struct {
	client HTTPClient
}

// NewGoogleNewsFetcher builds the RSS search fetcher.
func NewGoogleNewsFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &googleNewsFetcher{client: client}
}

func (f *googleNewsFetcher) ID() string {
	return ProviderTypeGoogleNewsRSS
}

func (f *googleNewsFetcher) Fetch(ctx context.Context, cfg Provider, q Query) ([]domain.Article, error) {
	if !strings.EqualFold(cfg.Type, ProviderTypeGoogleNewsRSS) {
		return nil, fmt.Errorf("google news fetcher received incompatible provider type %q", cfg.Type)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	feedURL, err := BuildRSSSearchURL(cfg, q.Topic)
	if err != nil {
		return nil, err
	}

	raw, err := fetchBody(ctx, f.client, feedURL, cfg.ID, "rss fetch", Headers(cfg))
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.NewProviderError(cfg.ID, "rss parse", 0, err)
	}

	articles := make([]domain.Article, 0, min(q.Count, len(feed.Items)))
	for _, item := range feed.Items {
		if len(articles) == q.Count {
			break
		}
		art, err := parseFeedItem(item)
		if err != nil {
			continue
		}
		articles = append(articles, art)
	}
	return articles, nil
}

// BuildRSSSearchURL renders the feed query URL for topic.
func BuildRSSSearchURL(cfg Provider, topic string) (string, error) {
	parsed, err := url.Parse(cfg.SourceURL)
	if err != nil {
		return "", fmt.Errorf("parse %s source_url: %w", cfg.ID, err)
	}

	params := parsed.Query()
	params.Set("q", strings.TrimSpace(topic))
	if v := ConfigString(cfg, ConfigLanguageKey, ""); v != "" {
		params.Set("hl", v)
	}
	if v := ConfigString(cfg, ConfigCountryKey, ""); v != "" {
		params.Set("gl", v)
	}
	if v := ConfigString(cfg, ConfigEditionKey, ""); v != "" {
		params.Set("ceid", v)
	}
	parsed.RawQuery = params.Encode()
	return parsed.String(), nil
}

var errIncompleteItem = errors.New("feed item missing title or link")

// parseFeedItem maps one feed entry to an Article.
func parseFeedItem(item *gofeed.Item) (domain.Article, error) {
	if item == nil {
		return domain.Article{}, errIncompleteItem
	}
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return domain.Article{}, errIncompleteItem
	}

	source := ""
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		source = strings.TrimSpace(item.Authors[0].Name)
	}
	if source == "" {
		source = sourceFromTitle(title)
	}
	if source == "" {
		source = unknownSource
	}

	description := htmlToText(item.Description)
	if description == "" {
		description = htmlToText(item.Content)
	}

	return domain.Article{
		ID:          hashURL(link),
		Title:       title,
		URL:         link,
		Source:      source,
		Published:   strings.TrimSpace(item.Published),
		Description: description,
	}, nil
}
