package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/myrjola/overload/internal/envstruct"
	"github.com/myrjola/overload/internal/errors"
	"github.com/myrjola/overload/internal/flightrecorder"
	"github.com/myrjola/overload/internal/logging"
	"github.com/myrjola/overload/internal/reminder"
	"github.com/myrjola/overload/internal/sqlite"
	"github.com/myrjola/overload/internal/summary"
	"github.com/myrjola/overload/internal/workout"
)

type config struct {
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"OVERLOAD_SQLITE_URL" envDefault:"./overload.sqlite3"`
	// WeeklySchedule is when next week's plans are generated and sent. Cron format with seconds.
	WeeklySchedule string `env:"OVERLOAD_WEEKLY_SCHEDULE" envDefault:"0 0 18 * * 0"`
	// DailySchedule is when today's workout reminders are sent.
	DailySchedule string `env:"OVERLOAD_DAILY_SCHEDULE" envDefault:"0 0 7 * * *"`
	// TelegramToken enables delivery through Telegram. Messages are only logged when empty.
	TelegramToken string `env:"OVERLOAD_TELEGRAM_TOKEN" envDefault:""`
	// OpenAIAPIKey enables generated coach notes.
	OpenAIAPIKey string `env:"OVERLOAD_OPENAI_API_KEY" envDefault:""`
	// StoreTimeout bounds the work done for one user in a job run.
	StoreTimeout time.Duration `env:"OVERLOAD_STORE_TIMEOUT" envDefault:"30s"`
	// Concurrency is how many users a job processes at once.
	Concurrency int `env:"OVERLOAD_CONCURRENCY" envDefault:"4"`
	// TracesDir enables the flight recorder. Jobs that time out write a runtime trace there.
	TracesDir string `env:"OVERLOAD_TRACES_DIR" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	service := workout.NewService(db, logger)
	catalog, err := workout.DefaultCatalog()
	if err != nil {
		return errors.Wrap(err, "load exercise catalog")
	}
	if err = service.SeedCatalog(ctx, catalog); err != nil {
		return errors.Wrap(err, "seed exercise catalog")
	}

	var notifier reminder.Notifier = reminder.NewLogNotifier(logger)
	if cfg.TelegramToken != "" {
		if notifier, err = reminder.NewTelegramNotifier(cfg.TelegramToken, service, logger); err != nil {
			return errors.Wrap(err, "connect telegram")
		}
	}

	var completer summary.Completer
	if cfg.OpenAIAPIKey != "" {
		completer = summary.NewOpenAICompleter(cfg.OpenAIAPIKey, logger)
	}

	schedulerCfg := reminder.Config{
		WeeklySchedule: cfg.WeeklySchedule,
		DailySchedule:  cfg.DailySchedule,
		Concurrency:    cfg.Concurrency,
		StoreTimeout:   cfg.StoreTimeout,
		Tracer:         nil,
	}
	if cfg.TracesDir != "" {
		var recorder *flightrecorder.Recorder
		if recorder, err = flightrecorder.New(flightrecorder.Config{Directory: cfg.TracesDir}, logger); err != nil {
			return errors.Wrap(err, "create flight recorder")
		}
		if err = recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer recorder.Stop(context.Background())
		schedulerCfg.Tracer = recorder
	}

	scheduler, err := reminder.NewScheduler(schedulerCfg, service, notifier, summary.NewCoach(completer, logger), logger)
	if err != nil {
		return errors.Wrap(err, "create scheduler")
	}
	if err = scheduler.Start(ctx); err != nil {
		return errors.Wrap(err, "start scheduler")
	}

	<-ctx.Done()
	scheduler.Stop()
	logger.LogAttrs(context.Background(), slog.LevelInfo, "scheduler stopped")
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting planner", errors.SlogError(err))
		os.Exit(1)
	}
}
