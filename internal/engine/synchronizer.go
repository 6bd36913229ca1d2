package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
)

const (
	readyPollInterval = time.Second
	scrollSteps       = 4
	scrollBottomGap   = 200
	minScrollPause    = 500 * time.Millisecond
	maxScrollPause    = time.Second
)

// Synchronizer waits for the page to render before anything reads it.
type Synchronizer struct {
	cfg    entity.CrawlConfig
	logger *zap.Logger
	pacer  Pacer
}

func NewSynchronizer(cfg entity.CrawlConfig, logger *zap.Logger, pacer Pacer) *Synchronizer {
	return &Synchronizer{cfg: cfg, logger: logger, pacer: pacer}
}

// AwaitReady polls document.readyState about once a second, at most attempts
// times. It reports whether the document finished loading and never fails.
func (s *Synchronizer) AwaitReady(ctx context.Context, session repository.Session, attempts int) bool {
	for i := 0; i < attempts; i++ {
		state, err := bounded(ctx, s.cfg.WaitTimeout, session.ReadyState)
		if err == nil && state == "complete" {
			return true
		}
		if err := s.pacer.Pause(ctx, readyPollInterval); err != nil {
			return false
		}
	}
	s.logger.Warn("document did not report complete", zap.Int("attempts", attempts))
	return false
}

// AwaitResultsContainer blocks up to timeout for the listings container.
// Failure wraps repository.ErrContainerNotFound.
func (s *Synchronizer) AwaitResultsContainer(ctx context.Context, session repository.Session, timeout time.Duration) (repository.Element, error) {
	el, err := firstMatch(ctx, ResultsContainerChain, timeout, session.WaitFor)
	if err != nil {
		return nil, wrapErr(repository.ErrContainerNotFound, err)
	}
	s.logger.Info("results container found")
	return el, nil
}

// RevealContent scrolls down in equal steps so lazily rendered cards appear,
// then settles near the bottom. Failures are logged and swallowed.
func (s *Synchronizer) RevealContent(ctx context.Context, session repository.Session) {
	height, err := bounded(ctx, s.cfg.WaitTimeout, session.ScrollHeight)
	if err != nil {
		s.logger.Warn("could not read page height", zap.Error(err))
		return
	}

	step := height / scrollSteps
	position := 0.0
	for i := 0; i < scrollSteps; i++ {
		position += step
		if err := s.scrollTo(ctx, session, position); err != nil {
			s.logger.Warn("scroll failed", zap.Float64("position", position), zap.Error(err))
			return
		}
		if err := s.pacer.Pause(ctx, s.pacer.Between(minScrollPause, maxScrollPause)); err != nil {
			return
		}
	}

	if err := s.scrollTo(ctx, session, max(height-scrollBottomGap, 0)); err != nil {
		s.logger.Warn("scroll to bottom failed", zap.Error(err))
		return
	}
	_ = s.pacer.Pause(ctx, s.cfg.ScrollPause)
}

func (s *Synchronizer) scrollTo(ctx context.Context, session repository.Session, y float64) error {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.WaitTimeout)
	defer cancel()
	return session.ScrollTo(opCtx, y)
}

// bounded calls fn with a context that expires after timeout.
func bounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(opCtx)
}
