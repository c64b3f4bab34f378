// Command remod is the Remo backend daemon: the task API, the interactive
// recording endpoint, the autonomous browsing loop, and the reminder
// scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/remoproj/remo/agent"
	"github.com/remoproj/remo/browse"
	"github.com/remoproj/remo/config"
	"github.com/remoproj/remo/internal/version"
	"github.com/remoproj/remo/provider"
	"github.com/remoproj/remo/provider/mock"
	"github.com/remoproj/remo/push"
	"github.com/remoproj/remo/scheduler"
	"github.com/remoproj/remo/server"
	"github.com/remoproj/remo/task"
)

var configPath = flag.String("config", "remo.yaml", "path to config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
		cfg = config.DefaultConfig()
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	if _, err := os.Stat(*configPath); err != nil {
		logger.Warn("config file not found, using defaults", slog.String("path", *configPath))
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger.Info("starting remod",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir %s: %v", cfg.DataDir, err)
	}
	store, err := task.NewSQLiteStore(filepath.Join(cfg.DataDir, "remo.db"))
	if err != nil {
		log.Fatalf("Failed to open task store: %v", err)
	}

	var notifier push.Notifier = push.Disabled{}
	if cfg.Push.CredentialsFile != "" {
		fcm, err := push.NewFCMClient(cfg.Push.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to load push credentials: %v", err)
		}
		notifier = fcm
	} else {
		logger.Warn("push credentials not configured, reminders will not be delivered")
	}

	manager := browse.NewManager(cfg.Browser.Headless)
	fetcher := &browse.Fetcher{Manager: manager, Logger: logger}

	loop := &agent.Loop{
		Planner: &agent.Planner{Provider: newProvider(cfg)},
		Fetcher: fetcher,
		Logger:  logger,
	}

	srv := server.New(*cfg, version.Version, logger)
	srv.SetTaskStore(store)
	srv.SetFetcher(fetcher)
	srv.SetLoop(loop)
	srv.SetRecorder(&browse.Recorder{ScriptPath: cfg.Recorder.ScriptPath, Logger: logger})

	ctx, cancel := context.WithCancel(context.Background())
	sched := &scheduler.Scheduler{
		Store:    store,
		Notifier: notifier,
		Interval: cfg.Scheduler.Interval,
		Logger:   logger,
	}
	go sched.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("err", err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("server stop error", slog.Any("err", err))
	}
	if err := manager.Shutdown(); err != nil {
		logger.Error("browser shutdown error", slog.Any("err", err))
	}
	if err := store.Close(); err != nil {
		logger.Error("store close error", slog.Any("err", err))
	}
	logger.Info("shutdown complete")
}

// newProvider selects the planner's LLM backend from config.
func newProvider(cfg *config.Config) provider.Provider {
	switch cfg.Provider.Name {
	case "mock":
		return mock.New()
	default:
		return provider.NewGeminiProvider(provider.GeminiConfig{
			APIKey: cfg.Provider.APIKey,
			Model:  cfg.Provider.Model,
		})
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
