package scheduler

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"

	"regwatch/internal/logger"
	"regwatch/internal/services/scraping"
)

type Runner interface {
	Run(ctx context.Context) (scraping.Result, error)
}

type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string
	log    logger.Logger
}

func New(spec string, runner Runner, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		spec:   spec,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.trigger); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) trigger() {
	s.log.Info("scheduled scrape triggered")
	result, err := s.runner.Run(context.Background())
	switch {
	case errors.Is(err, scraping.ErrAlreadyRunning):
		s.log.Warn("scrape already running; skipping")
	case err != nil:
		s.log.Error("scheduled scrape failed", logger.Error(err))
	default:
		s.log.Info("scheduled scrape finished", logger.Int("new_items", len(result.NewItems)))
	}
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
