package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/samvad-hq/samvad-news-digest/internal/config"
	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
	"github.com/samvad-hq/samvad-news-digest/internal/metrics"
	"github.com/samvad-hq/samvad-news-digest/internal/pipeline"
	"github.com/samvad-hq/samvad-news-digest/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

// DigestRunner is the pipeline as seen by the handlers. *pipeline.Service implements it.
type DigestRunner interface {
	Run(ctx context.Context, req pipeline.Request) (domain.Digest, error)
	Available(kind pipeline.SourceKind) bool
}

// ExportReader serves archived exports for download.
type ExportReader interface {
	Get(ctx context.Context, id string) (storage.Record, error)
}

// Status is what the configuration panel shows.
type Status struct {
	Model        string
	StorageType  string
	SinkCount    int
	DefaultCount int
}

// Options wires a Server.
type Options struct {
	Runner   DigestRunner
	Exports  ExportReader
	Recorder *metrics.Recorder
	Logger   logger.Logger
	Status   Status
}

// Server renders the form and digest pages and exposes the JSON API.
type Server struct {
	runner  DigestRunner
	exports ExportReader
	rec     *metrics.Recorder
	log     logger.Logger
	status  Status
	tmpl    *template.Template
}

// New parses the embedded templates and validates opts.
func New(opts Options) (*Server, error) {
	if opts.Runner == nil {
		return nil, errors.New("server: digest runner is required")
	}
	if opts.Status.DefaultCount < config.MinArticleCount || opts.Status.DefaultCount > config.MaxArticleCount {
		opts.Status.DefaultCount = 5
	}

	tmpl, err := template.New("pages").Funcs(template.FuncMap{
		"timestamp": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 UTC") },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Server{
		runner:  opts.Runner,
		exports: opts.Exports,
		rec:     opts.Recorder,
		log:     logger.Ensure(opts.Logger),
		status:  opts.Status,
		tmpl:    tmpl,
	}, nil
}

// Handler returns the routed handler wrapped in the request-id, recovery and
// access-log middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /digest", s.handleDigestForm)
	mux.HandleFunc("POST /api/digest", s.handleDigestAPI)
	mux.HandleFunc("GET /digests/{file}", s.handleDownload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.rec.Handler())

	return requestID(accessLog(s.log, recoverer(s.log, mux)))
}
