package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/samvad-hq/samvad-news-digest/internal/server"
	"github.com/samvad-hq/samvad-news-digest/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// Handler builds the web handler on top of the wired pipeline.
func (a *App) Handler() (http.Handler, error) {
	var exports server.ExportReader
	if storage.Enabled(a.cfg.StorageType) {
		exports = a.Store
	}

	srv, err := server.New(server.Options{
		Runner:   a.Pipeline,
		Exports:  exports,
		Recorder: a.Recorder,
		Logger:   a.log,
		Status: server.Status{
			Model:        a.cfg.LLMModel,
			StorageType:  a.cfg.StorageType,
			SinkCount:    a.SinkCount(),
			DefaultCount: a.cfg.DefaultArticleCount,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init server: %w", err)
	}
	return srv.Handler(), nil
}

// Serve runs the web server until ctx is cancelled, then drains in-flight
// requests.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Pipeline == nil {
		return fmt.Errorf("app is not initialized")
	}
	handler, err := a.Handler()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.InfoObj("http server listening", "server_state", map[string]any{
			"addr":        a.cfg.HTTPAddr,
			"sinks_count": a.SinkCount(),
			"newsapi":     a.cfg.NewsAPIEnabled(),
		})
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		a.log.InfoObj("http server shutting down", "reason", ctx.Err().Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
