// Package scheduler queues crawls on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/repository"
	"github.com/user/listing-crawler/internal/usecase"
)

type Scheduler struct {
	runs   usecase.RunManager
	pages  int
	logger *zap.Logger
	cron   *cron.Cron
}

func New(runs usecase.RunManager, pages int, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		runs:   runs,
		pages:  pages,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start registers spec, a standard five-field cron expression, and starts the
// cron runner. An empty spec disables scheduling.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	if spec == "" {
		s.logger.Info("no crawl schedule configured")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.trigger(ctx) }); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	s.cron.Start()
	s.logger.Info("crawl schedule started", zap.String("cron", spec), zap.Int("pages", s.pages))
	return nil
}

func (s *Scheduler) trigger(ctx context.Context) {
	req, err := s.runs.Submit(ctx, s.pages, "schedule")
	switch {
	case errors.Is(err, repository.ErrRunLocked):
		s.logger.Warn("scheduled crawl skipped, another run is in progress")
	case err != nil:
		s.logger.Error("scheduled crawl could not be queued", zap.Error(err))
	default:
		s.logger.Info("scheduled crawl queued", zap.String("run_id", req.RunID))
	}
}

// Stop stops the cron runner and waits for a running trigger to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
