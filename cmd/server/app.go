package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rhuss/chatrelay/pkg/augment"
	"github.com/rhuss/chatrelay/pkg/chat"
	"github.com/rhuss/chatrelay/pkg/completion"
	"github.com/rhuss/chatrelay/pkg/config"
	"github.com/rhuss/chatrelay/pkg/relay"
	"github.com/rhuss/chatrelay/pkg/storage"
	"github.com/rhuss/chatrelay/pkg/storage/memory"
	"github.com/rhuss/chatrelay/pkg/storage/postgres"
	"github.com/rhuss/chatrelay/pkg/storage/sqlite"
	transporthttp "github.com/rhuss/chatrelay/pkg/transport/http"
	"github.com/rhuss/chatrelay/pkg/upstream/ollama"
)

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := ollama.New(ollama.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating upstream client: %w", err)
	}
	defer client.Close()

	aug, err := newAugmenter(cfg.Augment)
	if err != nil {
		return err
	}

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	completer, err := newCompleter(cfg, client)
	if err != nil {
		return err
	}

	rl := relay.New(relay.Config{
		DefaultModel:       cfg.Upstream.DefaultModel,
		DefaultBase:        cfg.Upstream.BaseURL,
		DefaultTemperature: cfg.Upstream.Temperature,
		ReadBufferSize:     cfg.Upstream.ReadBufferSize,
	}, client, aug)

	svc := transporthttp.Services{
		Chats:  chat.New(store, completer),
		Search: augment.NewWikipedia(cfg.Augment.WikipediaURL, cfg.Augment.WikipediaRESTURL, cfg.Augment.UserAgent),
		Health: store,
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	srv := transporthttp.NewServer(rl, svc,
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithMetricsPath(metricsPath),
		transporthttp.WithOpenAIEnabled(cfg.Hosted.Enabled()),
		transporthttp.WithLogger(slog.Default()),
	)

	slog.Info("chatrelay configured",
		"upstream", cfg.Upstream.BaseURL,
		"model", cfg.Upstream.DefaultModel,
		"storage", cfg.Storage.Type,
		"augment", cfg.Augment.Backend,
		"hosted", cfg.Hosted.Enabled(),
	)

	return srv.Run(ctx)
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	store, err := postgres.New(ctx, postgresConfig(cfg.Storage.Postgres))
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer store.Close()

	applied, err := store.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	slog.Info("migrations complete", "applied", applied)
	return nil
}

// newStore opens the configured chat store.
func newStore(ctx context.Context, cfg config.StorageConfig) (storage.ChatStore, error) {
	switch cfg.Type {
	case "memory":
		slog.Info("storage enabled", "type", "memory", "max_size", cfg.MaxSize)
		return memory.New(cfg.MaxSize), nil

	case "postgres":
		store, err := postgres.New(ctx, postgresConfig(cfg.Postgres))
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if cfg.Postgres.MigrateOnStart {
			applied, err := store.Migrate(ctx)
			if err != nil {
				store.Close()
				return nil, fmt.Errorf("applying migrations: %w", err)
			}
			slog.Info("migrations applied", "count", applied)
		}
		slog.Info("storage enabled", "type", "postgres")
		return store, nil

	case "sqlite":
		store, err := sqlite.New(ctx, sqlite.Config{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		slog.Info("storage enabled", "type", "sqlite", "path", cfg.SQLite.Path)
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
}

func postgresConfig(cfg config.PostgresConfig) postgres.Config {
	return postgres.Config{
		DSN:      cfg.DSN,
		MaxConns: cfg.MaxConns,
	}
}

// newAugmenter builds the lookup used for web-assisted relay requests.
func newAugmenter(cfg config.AugmentConfig) (augment.Augmenter, error) {
	acfg := augment.Config{
		Backend:   cfg.Backend,
		UserAgent: cfg.UserAgent,
		Limit:     cfg.Limit,
	}
	switch cfg.Backend {
	case "wikipedia":
		acfg.URL = cfg.WikipediaURL
		acfg.RESTURL = cfg.WikipediaRESTURL
	case "searxng":
		acfg.URL = cfg.SearXNGURL
	}
	aug, err := augment.New(acfg)
	if err != nil {
		return nil, fmt.Errorf("creating augmenter: %w", err)
	}
	return aug, nil
}

// newCompleter builds the reply generator for persisted chats: the hosted
// API when a key is configured, backed by the configured fallback.
func newCompleter(cfg *config.Config, client *ollama.Client) (completion.Completer, error) {
	var fallback completion.Completer
	switch cfg.Hosted.Fallback {
	case "ollama":
		fallback = &completion.Ollama{
			Client:      client,
			Model:       cfg.Upstream.DefaultModel,
			Temperature: cfg.Upstream.Temperature,
		}
	case "local":
		fallback = completion.Local{}
	default:
		return nil, errors.New("unknown hosted.fallback " + strconv.Quote(cfg.Hosted.Fallback))
	}

	if !cfg.Hosted.Enabled() {
		return fallback, nil
	}

	hosted, err := completion.NewOpenAI(completion.OpenAIConfig{
		APIKey:      cfg.Hosted.APIKey,
		BaseURL:     cfg.Hosted.BaseURL,
		Model:       cfg.Hosted.Model,
		Temperature: cfg.Hosted.Temperature,
		MaxRetries:  cfg.Hosted.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("creating hosted completer: %w", err)
	}
	return &completion.Fallback{Primary: hosted, Secondary: fallback}, nil
}
