// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tweetrelay/internal/archive"
	"tweetrelay/internal/blobs"
	"tweetrelay/internal/clock/system"
	"tweetrelay/internal/config"
	"tweetrelay/internal/events"
	"tweetrelay/internal/id/uuid"
	"tweetrelay/internal/relay"
	"tweetrelay/internal/source"
	"tweetrelay/internal/source/headless"
	"tweetrelay/internal/source/syndication"
	"tweetrelay/internal/state"
	"tweetrelay/internal/telegram"
)

// App holds the shared, long-lived services of the relay process. It is
// built once at startup and torn down by Close.
type App struct {
	State      *state.Manager
	Watcher    *relay.Watcher
	Controller *telegram.Controller

	logger   *zap.Logger
	archive  archive.Provider
	events   events.Publisher
	blobs    blobs.Provider
	headless *headless.Fetcher
}

// NewApp wires every service from the configuration. It fails fast: a bad
// token, DSN, or bucket surfaces here, not mid-cycle.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := state.NewFileStore(cfg.State.Dir)
	if err != nil {
		return nil, fmt.Errorf("open state dir: %w", err)
	}
	manager, err := state.NewManager(store, cfg.Telegram.DefaultChannel, logger)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	logger.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))

	gateway := telegram.NewGateway(bot, logger)
	controller := telegram.NewController(bot, manager, cfg.Telegram.Admins, cfg.Telegram.UpdateTimeoutSeconds, logger)

	probe := syndication.NewFetcher(syndication.FetcherConfig{
		UserAgent: cfg.Source.UserAgent,
		Timeout:   cfg.SourceTimeout(),
	})
	var headlessFetcher source.Fetcher
	var chromeFetcher *headless.Fetcher
	if cfg.Headless.Enabled {
		chromeFetcher, err = headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Source.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Warn("headless fetcher init failed", zap.Error(err))
			chromeFetcher = nil
			headlessFetcher = headless.NewNoop()
		} else {
			headlessFetcher = chromeFetcher
			logger.Info("headless fallback enabled", zap.Int("max_parallel", cfg.Headless.MaxParallel))
		}
	}
	src := syndication.New(cfg.Source.BaseURL, probe, headlessFetcher, logger)

	var archiveProvider archive.Provider
	switch cfg.Archive.Provider {
	case "postgres":
		logger.Info("using postgres archive provider", zap.String("table", cfg.Archive.Table))
		archiveProvider, err = archive.NewPostgresProvider(ctx, archive.PostgresConfig{
			DSN:   cfg.Archive.DSN,
			Table: cfg.Archive.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize archive: %w", err)
		}
	case "noop":
		logger.Info("using noop archive provider, delivery history will be discarded")
		archiveProvider = archive.NoOpProvider{}
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", cfg.Archive.Provider)
	}

	var publisher events.Publisher
	switch cfg.Events.Provider {
	case "pubsub":
		logger.Info("using pubsub event publisher", zap.String("topic", cfg.Events.TopicID))
		publisher, err = events.NewPubSubPublisher(ctx, cfg.Events.ProjectID, cfg.Events.TopicID)
		if err != nil {
			return nil, fmt.Errorf("initialize event publisher: %w", err)
		}
	case "noop":
		logger.Info("using noop event publisher, no events will be sent")
		publisher = events.NoOpPublisher{}
	default:
		return nil, fmt.Errorf("unknown events provider: %s", cfg.Events.Provider)
	}

	var blobProvider blobs.Provider
	switch cfg.Blobs.Provider {
	case "gcs":
		logger.Info("using GCS blob provider", zap.String("bucket", cfg.Blobs.Bucket))
		blobProvider, err = blobs.NewGCSProvider(ctx, cfg.Blobs.Bucket, cfg.Blobs.Prefix)
		if err != nil {
			return nil, fmt.Errorf("initialize blob storage: %w", err)
		}
	case "noop":
		logger.Info("using noop blob provider, raw payloads will be discarded")
		blobProvider = blobs.NoOpProvider{}
	default:
		return nil, fmt.Errorf("unknown blobs provider: %s", cfg.Blobs.Provider)
	}

	watcher := relay.NewWatcher(
		manager,
		src,
		gateway,
		archiveProvider,
		publisher,
		blobProvider,
		uuid.New(),
		system.New(),
		relay.WatcherConfig{SleepFloor: cfg.PollFloor()},
		logger,
	)

	return &App{
		State:      manager,
		Watcher:    watcher,
		Controller: controller,
		logger:     logger,
		archive:    archiveProvider,
		events:     publisher,
		blobs:      blobProvider,
		headless:   chromeFetcher,
	}, nil
}

// Close gracefully shuts down every service in the container.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	a.archive.Close()
	if err := a.events.Close(); err != nil {
		a.logger.Warn("error closing event publisher", zap.Error(err))
	}
	if err := a.blobs.Close(); err != nil {
		a.logger.Warn("error closing blob provider", zap.Error(err))
	}
	if a.headless != nil {
		a.headless.Close()
	}
}
