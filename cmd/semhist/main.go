// Command semhist runs the semantic history daemon: it indexes visited
// pages into a bounded SQLite store and serves search, similar-page, and
// stats queries over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/semhist/semhist/config"
	"github.com/semhist/semhist/engine"
	"github.com/semhist/semhist/extract"
	"github.com/semhist/semhist/gemini"
	"github.com/semhist/semhist/kv"
	"github.com/semhist/semhist/pipeline"
	"github.com/semhist/semhist/qcache"
	"github.com/semhist/semhist/rank"
	"github.com/semhist/semhist/server"
	"github.com/semhist/semhist/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	dbPath := flag.String("db", "", "override database path from the config")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	_ = godotenv.Load()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if err := run(*configPath, *dbPath, log); err != nil {
		log.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, dbPath string, log *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}

	// Scalar functions must exist before the first connection opens.
	engine.RegisterVectorFunctions()
	db, err := engine.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pages, err := store.Open(ctx, db, cfg.Store.MaxEntries, log)
	if err != nil {
		return err
	}
	settings, err := kv.Open(ctx, db)
	if err != nil {
		return err
	}

	var summarizer pipeline.Summarizer
	var embedder pipeline.Embedder
	if key := os.Getenv(cfg.Gemini.APIKeyEnv); key != "" {
		client, err := gemini.NewClient(gemini.Config{
			BaseURL:     cfg.Gemini.BaseURL,
			EmbedModel:  cfg.Gemini.EmbedModel,
			TextModel:   cfg.Gemini.TextModel,
			APIKey:      key,
			KeyInHeader: cfg.Gemini.KeyInHeader,
			Timeout:     cfg.GeminiTimeout(),
		})
		if err != nil {
			return err
		}
		summarizer, embedder = client, client
	} else {
		log.Warn("no API key set, running with text-only search and no summaries",
			"env", cfg.Gemini.APIKeyEnv)
	}

	cache := qcache.New(
		qcache.WithMaxEntries(cfg.Cache.MaxEntries),
		qcache.WithTTL(cfg.CacheTTL()),
		qcache.WithStore(settings),
		qcache.WithLogger(log),
	)
	cache.Load(ctx)

	processor := pipeline.NewProcessor(pages, extract.New(nil), summarizer, embedder,
		pipeline.Options{
			BatchSize:        cfg.Index.BatchSize,
			BatchDelay:       cfg.BatchDelay(),
			MinTextLength:    cfg.Index.MinTextLength,
			MaxContentChars:  cfg.Index.MaxContentChars,
			MaxBackfillPages: cfg.Index.MaxBackfillPages,
			MaxRetries:       cfg.Index.MaxRetries,
		}, log)
	searcher := pipeline.NewSearcher(pages, embedder, cache,
		rank.Config{MinScore: cfg.Search.MinScore, MaxResults: cfg.Search.MaxResults}, log)

	srv := server.New(cfg.Addr, searcher, processor, pages, settings, log)

	// Expired query embeddings are swept once a day.
	go func() {
		ticker := time.NewTicker(cfg.CacheTTL())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := cache.Cleanup(ctx); removed > 0 {
					log.Debug("query cache cleanup", "removed", removed)
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr, "db", cfg.Store.Path)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
