package scraping

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"regwatch/internal/logger"
	"regwatch/internal/model"
	"regwatch/internal/repositories"
)

type Service struct {
	repo     repositories.HistoryRepository
	notifier Notifier
	scrapers []SiteScraper
	log      logger.Logger
	out      io.Writer

	mu      sync.Mutex
	running bool
	last    *Result
}

type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithOutput sets where the human-readable per-source report is printed.
func WithOutput(w io.Writer) Option {
	return func(s *Service) {
		s.out = w
	}
}

func NewService(repo repositories.HistoryRepository, notifier Notifier, scrapers []SiteScraper, options ...Option) *Service {
	s := &Service{
		repo:     repo,
		notifier: notifier,
		scrapers: scrapers,
		log:      logger.NewNop(),
		out:      io.Discard,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

type SourceResult struct {
	Source     string       `json:"source"`
	Fetched    int          `json:"fetched"`
	New        []model.Item `json:"new"`
	FetchError string       `json:"fetch_error,omitempty"`

	Err error `json:"-"`
}

type Result struct {
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Sources     []SourceResult `json:"sources"`
	NewItems    []model.Item   `json:"new_items"`
	Notified    bool           `json:"notified"`
	NotifyError string         `json:"notify_error,omitempty"`

	NotifyErr error `json:"-"`
}

// Run performs one pass over every source. Only history failures are
// returned; fetch and notify failures are logged and recorded in the Result.
func (s *Service) Run(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return Result{}, ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	result, err := s.scrape(ctx)
	result.FinishedAt = time.Now()

	s.mu.Lock()
	s.running = false
	if err == nil {
		s.last = &result
	}
	s.mu.Unlock()

	return result, err
}

// LastResult returns the most recent successful run.
func (s *Service) LastResult() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}

func (s *Service) scrape(ctx context.Context) (Result, error) {
	result := Result{StartedAt: time.Now()}
	s.log.Info("Scraping started", logger.Int("sources", len(s.scrapers)))

	if err := s.repo.EnsureExists(ctx); err != nil {
		return result, &StoreError{Op: "init", Err: err}
	}
	known, err := s.repo.LoadKnownURLs(ctx)
	if err != nil {
		return result, &StoreError{Op: "load", Err: err}
	}
	if known == nil {
		known = map[string]struct{}{}
	}
	s.log.Info("history loaded", logger.Int("known_urls", len(known)))

	fetched := s.fetchAll(ctx)

	// Sources are fetched concurrently but recorded one at a time, in the
	// configured order. URLs recorded for one source count as known for the
	// sources after it, so a link shared by two sites is recorded once.
	for i, sc := range s.scrapers {
		src := SourceResult{Source: sc.Source()}
		log := s.log.With(logger.String("source", src.Source))

		items := fetched[i].items
		if err := fetched[i].err; err != nil {
			src.Err = &FetchError{Source: src.Source, Err: err}
			src.FetchError = src.Err.Error()
			log.Error("scrape failed", logger.Error(err))
			items = nil
		}
		src.Fetched = len(items)

		fresh := Filter(known, items)
		if err := s.repo.Append(ctx, model.RecordsFor(src.Source, fresh)); err != nil {
			return result, &StoreError{Op: "append", Err: err}
		}
		for _, item := range fresh {
			known[item.URL] = struct{}{}
		}
		src.New = fresh

		log.Info("source processed", logger.Int("fetched", src.Fetched), logger.Int("new", len(fresh)))
		s.report(src)

		result.Sources = append(result.Sources, src)
		result.NewItems = append(result.NewItems, fresh...)
	}

	if len(result.NewItems) == 0 || s.notifier == nil {
		return result, nil
	}

	if err := s.notifier.Notify(ctx, result.NewItems); err != nil {
		result.NotifyErr = &NotifyError{Err: err}
		result.NotifyError = result.NotifyErr.Error()
		s.log.Error("notification failed", logger.Error(err), logger.Int("items", len(result.NewItems)))
		return result, nil
	}
	result.Notified = true
	s.log.Info("notification sent", logger.Int("items", len(result.NewItems)))
	return result, nil
}

type fetchResult struct {
	items []model.Item
	err   error
}

func (s *Service) fetchAll(ctx context.Context) []fetchResult {
	results := make([]fetchResult, len(s.scrapers))

	group, gctx := errgroup.WithContext(ctx)
	for i, sc := range s.scrapers {
		i, sc := i, sc
		group.Go(func() error {
			s.log.Debug("scraping...", logger.String("source", sc.Source()))
			items, err := sc.Scrape(gctx)
			results[i] = fetchResult{items: items, err: err}
			return nil
		})
	}
	_ = group.Wait()

	return results
}

func (s *Service) report(src SourceResult) {
	if len(src.New) == 0 {
		fmt.Fprintf(s.out, "No new %s links found.\n\n", src.Source)
		return
	}
	fmt.Fprintf(s.out, "New %s links:\n", src.Source)
	for _, item := range src.New {
		fmt.Fprintf(s.out, "%s: %s\n", item.Title, item.URL)
	}
	fmt.Fprintln(s.out)
}
