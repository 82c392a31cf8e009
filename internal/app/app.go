package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"regwatch/internal/config"
	"regwatch/internal/logger"
	"regwatch/internal/repositories"
	"regwatch/internal/scheduler"
	"regwatch/internal/services/scraping"
)

type App struct {
	Config        *config.Config
	Log           logger.Logger
	Pool          *pgxpool.Pool
	Repo          repositories.HistoryRepository
	Notifier      scraping.Notifier
	Scrapers      []scraping.SiteScraper
	ScrapeService *scraping.Service
	Scheduler     *scheduler.Scheduler
	Server        *http.Server

	conn     *sql.DB
	ownsPool bool
}

// RunOnce performs a single scrape and returns once history and notification
// work is done.
func (a *App) RunOnce(ctx context.Context) (scraping.Result, error) {
	return a.ScrapeService.Run(ctx)
}

// Start runs the scheduler and HTTP server in the background.
func (a *App) Start() error {
	if err := a.Scheduler.Start(); err != nil {
		return err
	}

	go func() {
		a.Log.Info("HTTP server listening", logger.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Error("http server error", logger.Error(err))
		}
	}()

	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Scheduler.Stop()
	err := a.Server.Shutdown(ctx)
	return errors.Join(err, a.Close())
}

// Close releases database handles owned by the app.
func (a *App) Close() error {
	var err error
	if a.conn != nil {
		err = a.conn.Close()
		a.conn = nil
	}
	if a.ownsPool && a.Pool != nil {
		a.Pool.Close()
		a.Pool = nil
	}
	return err
}
