package app

import (
	"context"
	"fmt"

	"github.com/semmidev/blobber/internal/adapter/compressor"
	"github.com/semmidev/blobber/internal/adapter/notifier"
	"github.com/semmidev/blobber/internal/adapter/storage"
	"github.com/semmidev/blobber/internal/config"
	"github.com/semmidev/blobber/internal/domain"
	"github.com/semmidev/blobber/internal/infrastructure/logger"
	"github.com/semmidev/blobber/internal/infrastructure/metrics"
	"github.com/semmidev/blobber/internal/infrastructure/scheduler"
	"github.com/semmidev/blobber/internal/usecase"
)

type App struct {
	config    *config.Config
	logger    *logger.Logger
	metrics   *metrics.Metrics
	scheduler *scheduler.Scheduler
	store     domain.BlobStore
	uploader  *usecase.Uploader
	sweeper   *usecase.Sweeper
	notifier  domain.Notifier
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.Name, cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := storage.New(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.Storage.Type, err)
	}
	log.Infof("Using %s storage, container %s", cfg.Storage.Type, cfg.Storage.Container)

	m := metrics.New()

	uploader := usecase.NewUploader(store, cfg.Storage.Container, cfg.Upload.Prefix, compressor.NewGzip(), log)
	uploader.SetMetrics(m)

	sweeper := usecase.NewSweeper(store, cfg.Storage.Container, log, usecase.SweepOptions{
		RetentionDays:        cfg.Sweep.RetentionDays,
		MaxConcurrentDeletes: cfg.Sweep.MaxConcurrentDeletes,
		SkipUndated:          cfg.Sweep.SkipUndated,
	})
	sweeper.SetMetrics(m)

	var notify domain.Notifier = notifier.Nop{}
	if cfg.Notify.Telegram.Enabled {
		tg, err := notifier.NewTelegram(&cfg.Notify.Telegram)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telegram: %w", err)
		}
		notify = tg
		log.Infof("Telegram notifications enabled")
	}

	return &App{
		config:    cfg,
		logger:    log,
		metrics:   m,
		scheduler: scheduler.New(log),
		store:     store,
		uploader:  uploader,
		sweeper:   sweeper,
		notifier:  notify,
	}, nil
}

// Run schedules the retention sweep and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if !a.config.Sweep.Enabled {
		a.logger.Warnf("Sweep is disabled, nothing to schedule")
	} else if err := a.scheduler.AddJob("sweep", a.config.Sweep.Schedule, func(ctx context.Context) error {
		_, err := a.SweepOnce(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	a.scheduler.Start()
	a.logger.Infof("Scheduler started, retention %d days", a.config.Sweep.RetentionDays)

	<-ctx.Done()
	return nil
}

// SweepOnce runs one retention sweep and reports its outcome.
func (a *App) SweepOnce(ctx context.Context) (usecase.SweepResult, error) {
	result, err := a.sweeper.DeleteOldBlobs(ctx)
	if err != nil {
		a.notify(ctx, fmt.Sprintf("Sweep of %s failed: %v", a.config.Storage.Container, err))
	} else {
		a.notify(ctx, fmt.Sprintf("Sweep of %s: %s", a.config.Storage.Container, result))
	}
	a.pushMetrics()
	return result, err
}

// Upload sends a local file as-is under its base name.
func (a *App) Upload(ctx context.Context, path string) (string, error) {
	url, err := a.uploader.UploadLocalFile(ctx, path)
	if err == nil {
		a.notify(ctx, "Uploaded "+url)
	}
	a.pushMetrics()
	return url, err
}

func (a *App) Containers(ctx context.Context) ([]domain.Container, error) {
	return a.uploader.ListContainers(ctx)
}

func (a *App) notify(ctx context.Context, message string) {
	if err := a.notifier.Notify(ctx, message); err != nil {
		a.logger.Warnf("Notification failed: %v", err)
	}
}

func (a *App) pushMetrics() {
	if a.config.Metrics.PushgatewayURL == "" {
		return
	}
	if err := a.metrics.Push(a.config.Metrics.PushgatewayURL, a.config.Metrics.Job); err != nil {
		a.logger.Warnf("Failed to push metrics: %v", err)
	}
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down...")
	a.scheduler.Stop()
	a.logger.Close()
}
