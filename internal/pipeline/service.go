package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/samvad-news-digest/internal/config"
	"github.com/samvad-hq/samvad-news-digest/internal/digest"
	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
	"github.com/samvad-hq/samvad-news-digest/internal/metrics"
	"github.com/samvad-hq/samvad-news-digest/internal/storage"
	"github.com/samvad-hq/samvad-news-digest/pkg/providers"
	"github.com/samvad-hq/samvad-news-digest/pkg/publishers"
)

// PlaceholderSummary replaces the summary of an article whose analysis failed.
const PlaceholderSummary = "Unable to generate summary"

// ErrNoArticles is wrapped in the ProviderError returned when every fetch attempt came back empty.
var ErrNoArticles = errors.New("no articles found")

// Request is one user action.
type Request struct {
	Topic  string
	Source SourceKind
	Count  int
}

// Deps are the collaborators of a Service. Synthesizer, Scraper, Archive and
// Publisher are optional.
type Deps struct {
	Sources     map[SourceKind]ArticleSource
	Summarizer  Summarizer
	Classifier  Classifier
	Synthesizer Synthesizer
	Scraper     ArticleScraper
	Archive     Archive
	Publisher   EventPublisher
	Recorder    *metrics.Recorder
	Logger      logger.Logger
}

// Options tune a Service.
type Options struct {
	Concurrency int
	Synthesize  bool
	Enrich      bool
	Now         func() time.Time
	NewID       func() string
}

// Service runs the fetch, analyse, assemble pipeline for one request at a time.
type Service struct {
	sources     map[SourceKind]ArticleSource
	summarizer  Summarizer
	classifier  Classifier
	synthesizer Synthesizer
	scraper     ArticleScraper
	archive     Archive
	publisher   EventPublisher
	rec         *metrics.Recorder
	log         logger.Logger
	opts        Options
}

// NewService validates deps and applies option defaults.
func NewService(deps Deps, opts Options) (*Service, error) {
	if len(deps.Sources) == 0 {
		return nil, errors.New("pipeline: no article sources configured")
	}
	if deps.Summarizer == nil || deps.Classifier == nil {
		return nil, errors.New("pipeline: summarizer and classifier are required")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	sources := make(map[SourceKind]ArticleSource, len(deps.Sources))
	for k, src := range deps.Sources {
		if src != nil {
			sources[k] = src
		}
	}

	return &Service{
		sources:     sources,
		summarizer:  deps.Summarizer,
		classifier:  deps.Classifier,
		synthesizer: deps.Synthesizer,
		scraper:     deps.Scraper,
		archive:     deps.Archive,
		publisher:   deps.Publisher,
		rec:         deps.Recorder,
		log:         logger.Ensure(deps.Logger),
		opts:        opts,
	}, nil
}

// Available reports whether kind can be selected.
func (s *Service) Available(kind SourceKind) bool {
	_, ok := s.sources[kind]
	return ok
}

// Run executes the pipeline. Invalid requests fail before any network call;
// fetch failures abort the run; analysis failures degrade single articles.
func (s *Service) Run(ctx context.Context, req Request) (d domain.Digest, err error) {
	start := s.opts.Now()
	defer func() {
		s.rec.ObserveDigest(err)
		if err != nil {
			s.log.ErrorObj("digest run failed", "digest_error", map[string]any{
				"topic":  req.Topic,
				"source": string(req.Source),
				"count":  req.Count,
				"error":  err.Error(),
			})
		}
	}()

	req, err = s.validate(req)
	if err != nil {
		return domain.Digest{}, err
	}

	articles, provider, err := s.fetch(ctx, req)
	if err != nil {
		return domain.Digest{}, err
	}

	if s.opts.Enrich && s.scraper != nil {
		articles = s.scraper.Enrich(ctx, provider, articles)
	}

	results, err := s.analyze(ctx, articles)
	if err != nil {
		return domain.Digest{}, err
	}

	d = digest.Assemble(req.Topic, results, digest.Options{
		ID:               s.opts.NewID(),
		GeneratedAt:      s.opts.Now(),
		ExecutiveSummary: s.synthesize(ctx, req.Topic, results),
	})

	s.store(ctx, d)
	s.publish(ctx, d)

	s.log.InfoObj("digest run completed", "digest_result", map[string]any{
		"digest_id":   d.ID,
		"topic":       d.Topic,
		"provider_id": provider.ID,
		"articles":    d.TotalArticles,
		"degraded":    countDegraded(d.Results),
		"tally":       d.Tally,
		"duration_ms": s.opts.Now().Sub(start).Milliseconds(),
	})
	return d, nil
}

func (s *Service) validate(req Request) (Request, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return req, domain.NewInvalidInput("topic", "please enter a topic to search for")
	}
	if req.Count < config.MinArticleCount || req.Count > config.MaxArticleCount {
		return req, domain.NewInvalidInput("count",
			fmt.Sprintf("must be between %d and %d", config.MinArticleCount, config.MaxArticleCount))
	}
	if req.Source == "" {
		req.Source = SourceRSS
	}
	if !s.Available(req.Source) {
		if req.Source == SourceAPI {
			return req, domain.NewInvalidInput("source", "NewsAPI key not configured; use Google News RSS")
		}
		return req, domain.NewInvalidInput("source", fmt.Sprintf("source %q is not configured", req.Source))
	}
	return req, nil
}

// fetch applies the fallback policy: an empty API result retries on RSS, and an
// empty multi-word RSS search retries once with the words OR-ed together.
func (s *Service) fetch(ctx context.Context, req Request) ([]domain.Article, providers.Provider, error) {
	src := s.sources[req.Source]
	articles, err := s.fetchFrom(ctx, src, req.Topic, req.Count)
	if err != nil || len(articles) > 0 {
		return articles, src.Provider(), err
	}

	if req.Source == SourceAPI {
		rss, ok := s.sources[SourceRSS]
		if !ok {
			return nil, src.Provider(), noArticles(src.Provider())
		}
		s.log.WarnObj("no articles from search api, trying rss", "fetch_fallback", map[string]any{
			"topic": req.Topic,
		})
		articles, err = s.fetchFrom(ctx, rss, req.Topic, req.Count)
		if err != nil || len(articles) > 0 {
			return articles, rss.Provider(), err
		}
		return nil, rss.Provider(), noArticles(rss.Provider())
	}

	if words := strings.Fields(req.Topic); len(words) > 1 {
		broader := strings.Join(words, " OR ")
		s.log.WarnObj("no articles for exact phrase, trying broader search", "fetch_fallback", map[string]any{
			"topic": req.Topic,
			"query": broader,
		})
		articles, err = s.fetchFrom(ctx, src, broader, req.Count)
		if err != nil || len(articles) > 0 {
			return articles, src.Provider(), err
		}
	}

	return nil, src.Provider(), noArticles(src.Provider())
}

func (s *Service) fetchFrom(ctx context.Context, src ArticleSource, topic string, count int) ([]domain.Article, error) {
	p := src.Provider()
	start := time.Now()
	articles, err := src.Fetch(ctx, providers.Query{Topic: topic, Count: count})
	s.rec.ObserveCall(p.ID, "fetch", start, err)

	fields := map[string]any{
		"provider_id": p.ID,
		"query":       topic,
		"requested":   count,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		s.log.ErrorObj("provider fetch failed", "provider_error", fields)
		return nil, err
	}
	fields["articles_collected"] = len(articles)
	s.log.InfoObj("provider fetch completed", "provider_result", fields)
	return articles, nil
}

func noArticles(p providers.Provider) error {
	return domain.NewProviderError(p.ID, "search", 0, ErrNoArticles)
}

// analyze fans out per-article work. Results are stored by index so order
// matches the fetch order regardless of completion order.
func (s *Service) analyze(ctx context.Context, articles []domain.Article) ([]domain.ArticleResult, error) {
	results := make([]domain.ArticleResult, len(articles))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, art := range articles {
		g.Go(func() error {
			results[i] = s.analyzeOne(ctx, art)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}
	return results, nil
}

func (s *Service) analyzeOne(ctx context.Context, art domain.Article) domain.ArticleResult {
	res := domain.ArticleResult{
		Article:   art,
		Sentiment: domain.SentimentNeutral,
		Entities:  []string{},
	}

	sum, err := s.summarizer.Summarize(ctx, art)
	if err != nil {
		s.log.WarnObj("article summary degraded", "analysis_error", map[string]any{
			"article_id": art.ID,
			"url":        art.URL,
			"stage":      "summarize",
			"error":      err.Error(),
		})
		res.Summary = PlaceholderSummary
		res.Degraded = true
	} else {
		res.Summary = sum.Text
		res.CoreInsight = sum.CoreInsight
		res.KeyDetails = sum.KeyDetails
		if sum.Entities != nil {
			res.Entities = sum.Entities
		}
	}

	text := strings.TrimSpace(art.Title + " " + art.Description)
	sentiment, err := s.classifier.Classify(ctx, text)
	if err != nil {
		s.log.WarnObj("article sentiment degraded", "analysis_error", map[string]any{
			"article_id": art.ID,
			"url":        art.URL,
			"stage":      "classify",
			"error":      err.Error(),
		})
		sentiment = domain.SentimentNeutral
		res.Degraded = true
	}
	res.Sentiment = sentiment
	return res
}

// synthesize returns "" when disabled or failed; Assemble then falls back to core insights.
func (s *Service) synthesize(ctx context.Context, topic string, results []domain.ArticleResult) string {
	if !s.opts.Synthesize || s.synthesizer == nil || len(results) == 0 {
		return ""
	}

	summaries := make([]string, 0, len(results))
	for _, r := range results {
		if r.Summary != PlaceholderSummary {
			summaries = append(summaries, r.Summary)
		}
	}
	if len(summaries) == 0 {
		return ""
	}

	out, err := s.synthesizer.Synthesize(ctx, topic, summaries)
	if err != nil {
		s.log.WarnObj("executive summary synthesis failed, using core insights", "synthesis_error", map[string]any{
			"topic": topic,
			"error": err.Error(),
		})
		return ""
	}
	return out
}

func (s *Service) store(ctx context.Context, d domain.Digest) {
	if s.archive == nil {
		return
	}
	raw, err := digest.ExportJSON(d)
	if err == nil {
		err = s.archive.Put(ctx, storage.Record{
			ID:          d.ID,
			Topic:       d.Topic,
			GeneratedAt: d.GeneratedAt,
			JSON:        raw,
			Markdown:    digest.ExportMarkdown(d),
		})
	}
	if err != nil {
		s.log.ErrorObj("digest archive failed", "archive_error", map[string]any{
			"digest_id": d.ID,
			"error":     err.Error(),
		})
	}
}

func (s *Service) publish(ctx context.Context, d domain.Digest) {
	if s.publisher == nil {
		return
	}
	delivered, err := s.publisher.Publish(ctx, publishers.NewDigestEvent(d))
	if err != nil {
		s.log.ErrorObj("digest publish failed", "publish_error", map[string]any{
			"digest_id": d.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
		return
	}
	if delivered > 0 {
		s.log.InfoObj("digest published", "publish_result", map[string]any{
			"digest_id": d.ID,
			"delivered": delivered,
		})
	}
}

func countDegraded(results []domain.ArticleResult) int {
	n := 0
	for _, r := range results {
		if r.Degraded {
			n++
		}
	}
	return n
}
