package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"regwatch/internal/app"
	"regwatch/internal/config"
	"regwatch/internal/logger"
)

func main() {
	serve := flag.Bool("serve", false, "run on SCRAPE_CRON and expose the HTTP API instead of scraping once")
	flag.Parse()

	os.Exit(run(*serve))
}

func run(serve bool) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewBuilder(&cfg, app.WithLogger(log)).Build(ctx)
	if err != nil {
		log.Error("app build error", logger.Error(err))
		return 1
	}

	if serve {
		return runServer(ctx, application, log)
	}
	return runOnce(ctx, application, log)
}

// runOnce exits non-zero only when history could not be read or written.
func runOnce(ctx context.Context, application *app.App, log logger.Logger) int {
	defer func() { _ = application.Close() }()

	log.Info("Starting web scraper...")
	result, err := application.RunOnce(ctx)
	if err != nil {
		log.Error("scrape aborted", logger.Error(err))
		return 1
	}
	log.Info("scrape finished",
		logger.Int("new_items", len(result.NewItems)),
		logger.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
	return 0
}

func runServer(ctx context.Context, application *app.App, log logger.Logger) int {
	if err := application.Start(); err != nil {
		log.Error("app start error", logger.Error(err))
		_ = application.Close()
		return 1
	}

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", logger.Error(err))
		return 1
	}
	return 0
}
