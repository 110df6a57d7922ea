package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-news-digest/internal/analysis"
	"github.com/samvad-hq/samvad-news-digest/internal/config"
	"github.com/samvad-hq/samvad-news-digest/internal/llm"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
	"github.com/samvad-hq/samvad-news-digest/internal/metrics"
	"github.com/samvad-hq/samvad-news-digest/internal/pipeline"
	"github.com/samvad-hq/samvad-news-digest/internal/storage"
	"github.com/samvad-hq/samvad-news-digest/pkg/httpclient"
	"github.com/samvad-hq/samvad-news-digest/pkg/providers"
	"github.com/samvad-hq/samvad-news-digest/pkg/publishers"
)

// App holds the wired runtime shared by the web server and the CLI: sources,
// language model, export archive and digest sinks around one pipeline.
type App struct {
	cfg      *config.Config
	Pipeline *pipeline.Service
	Store    storage.Store
	Recorder *metrics.Recorder
	fanout   *publishers.Fanout
	log      logger.Logger
}

// New builds the runtime from cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}
	rec := metrics.NewRecorder()

	sources, err := buildSources(cfg, log)
	if err != nil {
		return nil, err
	}

	model, err := llm.New(httpclient.NewRestyClient(cfg.LLMTimeout), llm.Options{
		Endpoint: cfg.LLMEndpoint,
		Model:    cfg.LLMModel,
		APIKey:   cfg.OpenAIAPIKey,
		Recorder: rec,
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("init language model client: %w", err)
	}

	store, err := storage.NewStore(ctx, cfg.StorageType, storage.Options{
		Path:            cfg.BBoltPath,
		DSN:             cfg.PostgresDSN,
		TTL:             cfg.ExportTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"export_ttl_seconds":       int(cfg.ExportTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	fanout, err := buildSinks(ctx, cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc, err := pipeline.NewService(pipeline.Deps{
		Sources:     sources,
		Summarizer:  analysis.NewSummarizer(model, log),
		Classifier:  analysis.NewClassifier(model, log),
		Synthesizer: analysis.NewSynthesizer(model, log),
		Scraper:     pipeline.NewScraper(httpclient.NewRestyClient(cfg.HTTPTimeout), log),
		Archive:     store,
		Publisher:   fanout,
		Recorder:    rec,
		Logger:      log,
	}, pipeline.Options{
		Concurrency: cfg.AnalysisConcurrency,
		Synthesize:  cfg.SynthesizeSummary,
		Enrich:      cfg.EnrichArticles,
	})
	if err != nil {
		_ = store.Close()
		_ = fanout.Close()
		return nil, fmt.Errorf("init pipeline: %w", err)
	}

	return &App{
		cfg:      cfg,
		Pipeline: svc,
		Store:    store,
		Recorder: rec,
		fanout:   fanout,
		log:      log,
	}, nil
}

// SinkCount is the number of enabled digest sinks.
func (a *App) SinkCount() int {
	if a == nil {
		return 0
	}
	return a.fanout.Size()
}

// Close releases the export archive and sink clients.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if err := a.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close sinks: %w", err))
	}
	return errors.Join(errs...)
}

// buildSources binds the first RSS provider and, when a key is configured,
// the first search API provider.
func buildSources(cfg *config.Config, log logger.Logger) (map[pipeline.SourceKind]pipeline.ArticleSource, error) {
	providerReg, err := providers.LoadRegistryOrDefault(cfg.ProvidersFile)
	if err != nil {
		return nil, fmt.Errorf("load providers registry: %w", err)
	}
	providerList := providerReg.All()
	providerIDs := make([]string, 0, len(providerList))
	for _, p := range providerList {
		providerIDs = append(providerIDs, p.ID)
	}
	log.InfoObj("providers registry loaded", "providers_meta", map[string]any{
		"count": len(providerIDs),
		"ids":   providerIDs,
	})

	fetchers := providers.DefaultFetcherRegistry(
		httpclient.NewRestyClient(cfg.HTTPTimeout),
		providers.Keys{NewsAPI: cfg.NewsAPIKey},
	)

	sources := make(map[pipeline.SourceKind]pipeline.ArticleSource, 2)
	rss, ok := providerReg.FirstOfType(providers.ProviderTypeGoogleNewsRSS)
	if !ok {
		return nil, fmt.Errorf("no %s provider configured in %s", providers.ProviderTypeGoogleNewsRSS, cfg.ProvidersFile)
	}
	src, err := providers.Bind(fetchers, rss)
	if err != nil {
		return nil, fmt.Errorf("bind provider %s: %w", rss.ID, err)
	}
	sources[pipeline.SourceRSS] = src

	if !cfg.NewsAPIEnabled() {
		log.InfoObj("search api source disabled", "providers_meta", map[string]any{"reason": "NEWS_API_KEY not set"})
		return sources, nil
	}
	api, ok := providerReg.FirstOfType(providers.ProviderTypeNewsAPI)
	if !ok {
		log.WarnObj("NEWS_API_KEY set but no newsapi provider configured", "providers_file", cfg.ProvidersFile)
		return sources, nil
	}
	src, err = providers.Bind(fetchers, api)
	if err != nil {
		return nil, fmt.Errorf("bind provider %s: %w", api.ID, err)
	}
	sources[pipeline.SourceAPI] = src
	return sources, nil
}

func buildSinks(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	publisherReg, err := publishers.LoadRegistryOptional(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}
