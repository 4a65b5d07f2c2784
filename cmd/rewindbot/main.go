package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/blackmichael/tweet-rewind/internal/bot"
	"github.com/blackmichael/tweet-rewind/internal/config"
	"github.com/blackmichael/tweet-rewind/internal/domain"
	"github.com/blackmichael/tweet-rewind/internal/httpserver"
	"github.com/blackmichael/tweet-rewind/internal/metrics"
	"github.com/blackmichael/tweet-rewind/internal/navigator"
	"github.com/blackmichael/tweet-rewind/internal/scheduler"
	"github.com/blackmichael/tweet-rewind/internal/store"
	"github.com/blackmichael/tweet-rewind/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load(".env")

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := store.Open(ctx, store.Params{
		Backend:       cfg.StoreBackend,
		DatabasePath:  cfg.DatabasePath,
		MongoURL:      cfg.MongoURL,
		MongoDatabase: cfg.MongoDatabase,
	})
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			logger.Error("error closing store", "error", err)
		}
	}()
	logger.Info("connected to store", "backend", cfg.StoreBackend)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	client, err := telegram.NewClient(cfg.TelegramToken, logger)
	if err != nil {
		return fmt.Errorf("create telegram client: %w", err)
	}

	modals := navigator.NewModals()
	controller := navigator.NewController(client, modals, m, logger, navigator.Options{
		MaxSessionsPerChat: cfg.MaxSessionsPerChat,
		BatchDelay:         cfg.BatchDelay,
	})
	rewinds := domain.NewRewindService(repo, repo, logger)
	dispatcher := bot.NewDispatcher(rewinds, controller, client, modals, m, logger, bot.Options{
		ArchiveDir: cfg.ArchiveDir,
		Location:   cfg.Location,
	})

	// Daily delivery to subscribed chats
	daily, err := scheduler.New(cfg.RewindCron, cfg.Location, scheduler.JobFunc(dispatcher.RewindSubscribers), logger)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	go daily.Start(ctx)

	server := httpserver.NewServer(cfg.Port, registry, logger)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("bot started", "port", cfg.Port, "cron", cfg.RewindCron, "timezone", cfg.Location.String())

	// Listen blocks until the shutdown signal cancels ctx
	if err := client.Listen(ctx, dispatcher); err != nil && ctx.Err() == nil {
		logger.Error("telegram listener exited with error", "error", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}
