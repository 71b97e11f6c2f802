package app

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"NomadScanner/internal/config"
	"NomadScanner/internal/infrastructure/history"
	"NomadScanner/internal/infrastructure/nomad"
	"NomadScanner/internal/infrastructure/storage"
	"NomadScanner/internal/infrastructure/telegram"
	"NomadScanner/internal/logging"
	"NomadScanner/internal/ports"
	"NomadScanner/internal/usecase"
)

// Application wires configs to the collection use case.
type Application struct {
	cfg     config.Config
	runner  *usecase.Runner
	calls   *nomad.CallCounter
	history *history.SQLiteHistory
	logger  *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	calls := &nomad.CallCounter{}
	source := nomad.NewClient(
		cfg.API.BaseURL,
		&http.Client{Timeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second},
		calls,
		baseLogger.With("component", "nomad"),
	)

	store := storage.NewCSVStore(cfg.Output.Dir, baseLogger.With("component", "storage"))

	var runHistory ports.RunHistory
	var historyDB *history.SQLiteHistory
	if cfg.Output.HistoryPath != "" {
		path := cfg.Output.HistoryPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Output.Dir, path)
		}
		db, err := history.Open(path)
		if err != nil {
			baseLogger.Warn("run history disabled", "error", err)
		} else {
			historyDB = db
			runHistory = db
		}
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID,
		)
	}

	runner := usecase.NewRunner(usecase.RunnerDeps{
		Source:   source,
		Store:    store,
		History:  runHistory,
		Notifier: notifier,
		Logger:   baseLogger.With("component", "runner"),
	})

	return &Application{
		cfg:     cfg,
		runner:  runner,
		calls:   calls,
		history: historyDB,
		logger:  baseLogger,
	}
}

// Run executes one collection pass and reports the API call diagnostic.
func (a *Application) Run(ctx context.Context, opts usecase.CollectOptions) error {
	if opts.BaseURL == "" {
		opts.BaseURL = a.cfg.API.BaseURL
	}

	err := a.runner.Run(ctx, opts)
	a.logger.Info("run finished", "api_calls", a.calls.Count())

	if a.history != nil {
		if closeErr := a.history.Close(); closeErr != nil {
			a.logger.Warn("close run history", "error", closeErr)
		}
	}

	return err
}
