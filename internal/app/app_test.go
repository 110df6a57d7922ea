package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-news-digest/internal/config"
	"github.com/samvad-hq/samvad-news-digest/internal/pipeline"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		AppName:                "samvad-news-digest",
		HTTPAddr:               "127.0.0.1:0",
		ProvidersFile:          filepath.Join(dir, "missing-providers.yaml"),
		PublishersFile:         filepath.Join(dir, "missing-publishers.yaml"),
		OpenAIAPIKey:           "sk-test",
		LLMEndpoint:            "https://llm.invalid/v1/chat/completions",
		LLMModel:               "gpt-3.5-turbo",
		LLMTimeout:             time.Second,
		HTTPTimeout:            time.Second,
		AnalysisConcurrency:    2,
		DefaultArticleCount:    5,
		StorageType:            "memory",
		ExportTTL:              time.Hour,
		StorageCleanupInterval: time.Minute,
	}
}

func TestNewWiresDefaultsWithoutConfigFiles(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	require.True(t, a.Pipeline.Available(pipeline.SourceRSS))
	require.False(t, a.Pipeline.Available(pipeline.SourceAPI))
	require.Zero(t, a.SinkCount())
}

func TestNewEnablesSearchAPIWithKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.NewsAPIKey = "news-key"
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	require.True(t, a.Pipeline.Available(pipeline.SourceAPI))
}

func TestNewRejectsProvidersFileWithoutRSS(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.ProvidersFile, []byte(`providers:
  - id: newsapi
    name: NewsAPI
    type: newsapi
    source_url: https://newsapi.org/v2/everything
`), 0o600))

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestHandlerRejectsInvalidRequestsBeforeNetwork(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	h, err := a.Handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/digest", jsonBody(`{"topic":"ev","source":"api","count":3}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "NewsAPI key not configured")
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func jsonBody(s string) *strings.Reader { return strings.NewReader(s) }
