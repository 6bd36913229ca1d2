package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/engine"
	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
	"github.com/user/listing-crawler/pkg/metrics"
)

// RunManager defines the interface for requesting crawls and following them.
type RunManager interface {
	Submit(ctx context.Context, pages int, source string) (*entity.CrawlRequest, error)
	GetStatus(ctx context.Context, runID string) (*entity.Progress, error)
	Recent(ctx context.Context, limit int) ([]*entity.CrawlRun, error)
}

type runManagerUseCase struct {
	queue    repository.QueueRepository
	lock     repository.RunLockRepository
	progress repository.ProgressRepository
	history  repository.RunHistoryRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewRunManager creates a new RunManager use case.
func NewRunManager(
	queue repository.QueueRepository,
	lock repository.RunLockRepository,
	progress repository.ProgressRepository,
	history repository.RunHistoryRepository,
	logger *zap.Logger,
) RunManager {
	return &runManagerUseCase{
		queue:    queue,
		lock:     lock,
		progress: progress,
		history:  history,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit queues a crawl of pages result pages. It refuses while another run
// holds the lock.
func (uc *runManagerUseCase) Submit(ctx context.Context, pages int, source string) (*entity.CrawlRequest, error) {
	if pages < 1 {
		return nil, fmt.Errorf("%w: got %d", engine.ErrInvalidPageCount, pages)
	}
	holder, err := uc.lock.Holder(ctx)
	if err != nil {
		return nil, err
	}
	if holder != "" {
		return nil, fmt.Errorf("%w: run %s", repository.ErrRunLocked, holder)
	}

	req := &entity.CrawlRequest{
		RunID:       uuid.NewString(),
		Pages:       pages,
		RequestedAt: uc.now(),
		Source:      source,
	}
	if err := uc.queue.Push(ctx, req); err != nil {
		return nil, err
	}
	if size, err := uc.queue.Size(ctx); err == nil {
		metrics.RequestsInQueue.Set(float64(size))
	}

	queued := &entity.Progress{
		RunID:     req.RunID,
		State:     entity.RunQueued,
		Status:    "Aguardando início da coleta",
		PageCount: pages,
		UpdatedAt: req.RequestedAt,
	}
	if err := uc.progress.Save(ctx, queued); err != nil {
		// Non-critical: the request is queued and the worker reports progress itself.
		uc.logger.Warn("failed to save queued progress", zap.String("run_id", req.RunID), zap.Error(err))
	}
	uc.logger.Info("crawl request queued", zap.String("run_id", req.RunID), zap.Int("pages", pages), zap.String("source", source))
	return req, nil
}

// GetStatus returns the live progress of a run, or a snapshot rebuilt from the
// run history once the live one has expired.
func (uc *runManagerUseCase) GetStatus(ctx context.Context, runID string) (*entity.Progress, error) {
	p, err := uc.progress.Get(ctx, runID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrRunNotFound) {
		return nil, err
	}

	run, err := uc.history.FindByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &entity.Progress{
		RunID:     run.RunID,
		State:     run.Status,
		Fraction:  1,
		Status:    string(run.Status),
		Page:      run.PagesVisited,
		PageCount: run.PagesWanted,
		Records:   run.Records,
		Error:     run.FailureReason,
		UpdatedAt: run.FinishedAt,
	}, nil
}

func (uc *runManagerUseCase) Recent(ctx context.Context, limit int) ([]*entity.CrawlRun, error) {
	return uc.history.FindRecent(ctx, limit)
}
