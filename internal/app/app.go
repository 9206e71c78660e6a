package app

import (
	"context"
	"log/slog"
	"time"

	"TrialFeeds/internal/aggregate"
	"TrialFeeds/internal/catalog"
	"TrialFeeds/internal/config"
	"TrialFeeds/internal/infrastructure/artifact"
	"TrialFeeds/internal/infrastructure/postgres"
	"TrialFeeds/internal/infrastructure/publish"
	"TrialFeeds/internal/infrastructure/scheduler"
	"TrialFeeds/internal/infrastructure/telegram"
	"TrialFeeds/internal/logging"
	"TrialFeeds/internal/ports"
	"TrialFeeds/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	opener := postgres.NewOpener(cfg.Database, cfg.Feeds, baseLogger.With("component", "connector"))
	shaper := aggregate.NewShaper(baseLogger, cfg.Feeds.TopSponsors, cfg.Feeds.TitleMaxLen)

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID,
		)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Opener:    opener,
		Catalog:   catalog.Default(shaper, cfg.Feeds.HorizonMonths),
		Writer:    artifact.NewWriter(),
		Publisher: publish.NewCoordinator(cfg.Publish.Dir, baseLogger),
		Notifier:  notifier,
		Logger:    baseLogger.With("component", "pipeline"),
	})
	return &Application{cfg: cfg, pipeline: pipeline}
}

// Run performs a single pipeline execution, the shape an external cron
// trigger expects: one run, then exit status.
func (a *Application) Run(ctx context.Context, asOfOverride *time.Time) error {
	if a.pipeline == nil {
		return nil
	}
	return a.pipeline.Run(ctx, asOfOverride)
}

// RunScheduled self-schedules daily runs and blocks until ctx is done.
func (a *Application) RunScheduled(ctx context.Context) error {
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression)
	sched := usecase.NewScheduler(driver, a.pipeline)

	if err := sched.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return sched.Stop(context.Background())
}
