package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-news-digest/internal/app"
	"github.com/samvad-hq/samvad-news-digest/internal/config"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "digestd start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("digestd starting", "config", cfg.Redacted())
	if !cfg.NewsAPIEnabled() {
		logger.WarnObj("NEWS_API_KEY not set, only Google News RSS will be offered", "sources", []string{"rss"})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runtime, err := app.New(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize digestd", "error", err.Error())
		return err
	}
	defer func() {
		if err := runtime.Close(); err != nil {
			logger.WarnObj("shutdown cleanup failed", "error", err.Error())
		}
	}()

	if err := runtime.Serve(ctx); err != nil {
		return fmt.Errorf("digestd serve: %w", err)
	}
	return nil
}
