package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/samvad-hq/samvad-news-digest/internal/app"
	"github.com/samvad-hq/samvad-news-digest/internal/config"
	"github.com/samvad-hq/samvad-news-digest/internal/digest"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
	"github.com/samvad-hq/samvad-news-digest/internal/pipeline"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "digest: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("digest", pflag.ContinueOnError)
	topic := flags.StringP("topic", "t", "", "topic to search for (required)")
	source := flags.StringP("source", "s", "rss", "article source: rss or api")
	count := flags.IntP("count", "n", 0, fmt.Sprintf("number of articles (%d-%d, default from config)", config.MinArticleCount, config.MaxArticleCount))
	outDir := flags.StringP("out", "o", ".", "directory for the JSON and markdown exports")
	flags.String("log-level", "", "override log_level")
	flags.String("llm-model", "", "override llm_model")
	flags.String("storage-type", "", "override storage_type")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadWithFlags(changedOnly(flags, "log-level", "llm-model", "storage-type"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	kind, err := pipeline.ParseSourceKind(*source)
	if err != nil {
		return err
	}
	n := *count
	if n == 0 {
		n = cfg.DefaultArticleCount
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runtime, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := runtime.Close(); err != nil {
			logger.WarnObj("shutdown cleanup failed", "error", err.Error())
		}
	}()

	d, err := runtime.Pipeline.Run(ctx, pipeline.Request{Topic: *topic, Source: kind, Count: n})
	if err != nil {
		return err
	}

	raw, err := digest.ExportJSON(d)
	if err != nil {
		return fmt.Errorf("export json: %w", err)
	}
	base := filepath.Join(*outDir, digest.Slug(d.Topic))
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := errors.Join(
		os.WriteFile(base+".json", raw, 0o644),
		os.WriteFile(base+".md", []byte(digest.ExportMarkdown(d)), 0o644),
	); err != nil {
		return fmt.Errorf("write exports: %w", err)
	}

	fmt.Printf("%s\n%s | Positive: %d | Neutral: %d | Negative: %d\nwrote %s.json and %s.md\n",
		d.Title, d.OverallTone, d.Tally.Positive, d.Tally.Neutral, d.Tally.Negative, base, base)
	return nil
}

// changedOnly returns a flag set holding only the named config overrides that
// were set on the command line.
func changedOnly(flags *pflag.FlagSet, names ...string) *pflag.FlagSet {
	out := pflag.NewFlagSet("config", pflag.ContinueOnError)
	for _, name := range names {
		if f := flags.Lookup(name); f != nil && f.Changed {
			out.AddFlag(f)
		}
	}
	return out
}
