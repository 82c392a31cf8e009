package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"regwatch/internal/config"
	"regwatch/internal/db"
	"regwatch/internal/httpapi"
	"regwatch/internal/logger"
	"regwatch/internal/mailer"
	"regwatch/internal/providers/common"
	"regwatch/internal/providers/federalreserve"
	"regwatch/internal/providers/occ"
	"regwatch/internal/repositories"
	"regwatch/internal/repositories/csvfile"
	"regwatch/internal/repositories/postgres"
	"regwatch/internal/scheduler"
	"regwatch/internal/services/scraping"
	"regwatch/internal/telegram"
)

type Builder struct {
	cfg *config.Config
	log logger.Logger
	out io.Writer

	pool     *pgxpool.Pool
	repo     repositories.HistoryRepository
	notifier scraping.Notifier
	scrapers []scraping.SiteScraper
	client   *http.Client
	options  []common.Option

	scheduler *scheduler.Scheduler
	server    *http.Server
}

type BuilderOption func(*Builder)

func NewBuilder(cfg *config.Config, options ...BuilderOption) *Builder {
	builder := &Builder{cfg: cfg}
	for _, option := range options {
		option(builder)
	}
	return builder
}

func WithLogger(log logger.Logger) BuilderOption {
	return func(b *Builder) {
		b.log = log
	}
}

// WithOutput sets the destination of the console report. Defaults to stdout.
func WithOutput(w io.Writer) BuilderOption {
	return func(b *Builder) {
		b.out = w
	}
}

func WithDBPool(pool *pgxpool.Pool) BuilderOption {
	return func(b *Builder) {
		b.pool = pool
	}
}

func WithRepository(repo repositories.HistoryRepository) BuilderOption {
	return func(b *Builder) {
		b.repo = repo
	}
}

func WithNotifier(notifier scraping.Notifier) BuilderOption {
	return func(b *Builder) {
		b.notifier = notifier
	}
}

func WithScrapers(scrapers []scraping.SiteScraper) BuilderOption {
	return func(b *Builder) {
		b.scrapers = scrapers
	}
}

func WithHTTPClient(client *http.Client) BuilderOption {
	return func(b *Builder) {
		b.client = client
	}
}

// WithScraperOptions is applied to each default source scraper.
func WithScraperOptions(options ...common.Option) BuilderOption {
	return func(b *Builder) {
		b.options = append(b.options, options...)
	}
}

func WithScheduler(scheduler *scheduler.Scheduler) BuilderOption {
	return func(b *Builder) {
		b.scheduler = scheduler
	}
}

func WithHTTPServer(server *http.Server) BuilderOption {
	return func(b *Builder) {
		b.server = server
	}
}

func (b *Builder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, errors.New("config is required")
	}
	if b.log == nil {
		b.log = logger.NewNop()
	}
	if b.out == nil {
		b.out = os.Stdout
	}

	app := &App{Config: b.cfg, Log: b.log}

	if b.repo == nil {
		if err := b.buildRepository(ctx, app); err != nil {
			return nil, err
		}
	}
	app.Repo = b.repo

	if b.notifier == nil {
		b.notifier = b.buildNotifier()
	}
	app.Notifier = b.notifier

	if b.client == nil {
		b.client = &http.Client{Timeout: b.cfg.FetchTimeout}
	}

	if b.scrapers == nil {
		options := append([]common.Option{common.WithTimeout(b.cfg.FetchTimeout)}, b.options...)
		b.scrapers = []scraping.SiteScraper{
			occ.NewScraper(b.client, options...),
			federalreserve.NewScraper(b.client, options...),
		}
	}
	app.Scrapers = b.scrapers

	app.ScrapeService = scraping.NewService(app.Repo, app.Notifier, app.Scrapers,
		scraping.WithLogger(b.log),
		scraping.WithOutput(b.out),
	)

	if b.scheduler == nil {
		b.scheduler = scheduler.New(b.cfg.CronSpec, app.ScrapeService, b.log.With(logger.String("component", "scheduler")))
	}
	app.Scheduler = b.scheduler

	if b.server == nil {
		handler := httpapi.NewHandler(app.ScrapeService, app.Repo, b.log.With(logger.String("component", "http")))
		b.server = &http.Server{
			Addr:              ":" + b.cfg.HTTPPort,
			Handler:           handler.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	app.Server = b.server

	return app, nil
}

func (b *Builder) buildRepository(ctx context.Context, app *App) error {
	switch b.cfg.HistoryDriver {
	case config.HistoryDriverPostgres:
		if b.pool == nil {
			pool, err := db.NewPool(ctx, b.cfg.PostgresDSN())
			if err != nil {
				return fmt.Errorf("connect history database: %w", err)
			}
			b.pool = pool
			app.ownsPool = true
		}
		app.Pool = b.pool
		app.conn = db.OpenDB(b.pool)
		b.repo = postgres.NewHistoryRepository(app.conn)
	case config.HistoryDriverCSV, "":
		b.repo = csvfile.NewHistoryRepository(b.cfg.HistoryFile)
	default:
		return fmt.Errorf("unknown history driver %q", b.cfg.HistoryDriver)
	}
	return nil
}

func (b *Builder) buildNotifier() scraping.Notifier {
	notifiers := scraping.Notifiers{
		mailer.NewSender(mailer.Config{
			Host:       b.cfg.SMTPHost,
			Port:       b.cfg.SMTPPort,
			Username:   b.cfg.MailUsername,
			Password:   b.cfg.MailPassword,
			From:       b.cfg.MailFrom,
			Recipients: b.cfg.MailRecipients,
			Subject:    b.cfg.MailSubject,
		}),
	}
	if b.cfg.TelegramEnabled() {
		notifiers = append(notifiers, telegram.NewSender(b.cfg.TelegramToken, b.cfg.TelegramChat, b.cfg.TelegramThreadID))
	}
	return notifiers
}
