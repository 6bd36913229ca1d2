package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/engine"
	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
	"github.com/user/listing-crawler/pkg/metrics"
)

// CrawlRunner runs the crawl engine. *engine.Orchestrator implements it.
type CrawlRunner interface {
	Run(ctx context.Context, cfg entity.CrawlConfig, pageCount int, opts ...engine.RunOption) (*entity.ResultSet, error)
}

// Crawler executes crawl requests end to end: crawl, store, notify.
type Crawler interface {
	// ProcessRequestFromQueue executes the oldest queued request, if any.
	ProcessRequestFromQueue(ctx context.Context) error
	// Execute runs req immediately.
	Execute(ctx context.Context, req *entity.CrawlRequest) (*entity.CrawlRun, error)
}

// CrawlerDeps groups the collaborators of the crawler use case. Queue, Lock,
// Progress and History may be nil when running outside the service.
type CrawlerDeps struct {
	Runner   CrawlRunner
	Listings repository.ListingRepository
	Notifier repository.Notifier
	Queue    repository.QueueRepository
	Lock     repository.RunLockRepository
	Progress repository.ProgressRepository
	History  repository.RunHistoryRepository
}

type crawlerUseCase struct {
	CrawlerDeps
	cfg     entity.CrawlConfig
	lockTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewCrawlerUseCase creates a new instance of the crawler use case.
func NewCrawlerUseCase(deps CrawlerDeps, cfg entity.CrawlConfig, lockTTL time.Duration, logger *zap.Logger) Crawler {
	return &crawlerUseCase{
		CrawlerDeps: deps,
		cfg:         cfg,
		lockTTL:     lockTTL,
		logger:      logger,
		now:         time.Now,
	}
}

func (uc *crawlerUseCase) ProcessRequestFromQueue(ctx context.Context) error {
	req, err := uc.Queue.Pop(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrQueueEmpty) {
			// Queue is empty, which is a normal state.
			return nil
		}
		return fmt.Errorf("failed to pop crawl request from queue: %w", err)
	}
	if size, err := uc.Queue.Size(ctx); err == nil {
		metrics.RequestsInQueue.Set(float64(size))
	}

	uc.logger.Info("processing crawl request", zap.String("run_id", req.RunID), zap.Int("pages", req.Pages), zap.String("source", req.Source))
	_, err = uc.Execute(ctx, req)
	if errors.Is(err, repository.ErrRunLocked) {
		return uc.requeue(ctx, req)
	}
	return err
}

// requeue puts back a request that found the run lock taken, so it runs once
// the current crawl releases it.
func (uc *crawlerUseCase) requeue(ctx context.Context, req *entity.CrawlRequest) error {
	logger := uc.logger.With(zap.String("run_id", req.RunID))
	if err := uc.Queue.Push(ctx, req); err != nil {
		uc.saveProgress(ctx, logger, &entity.Progress{
			RunID: req.RunID, State: entity.RunFailed, Status: "Outra coleta em andamento",
			PageCount: req.Pages, Error: repository.ErrRunLocked.Error(), UpdatedAt: uc.now(),
		})
		return fmt.Errorf("failed to requeue crawl request %s: %w", req.RunID, err)
	}
	uc.saveProgress(ctx, logger, &entity.Progress{
		RunID: req.RunID, State: entity.RunQueued, Status: "Aguardando término da coleta em andamento",
		PageCount: req.Pages, UpdatedAt: uc.now(),
	})
	logger.Info("run lock held, crawl request requeued")
	return nil
}

func (uc *crawlerUseCase) Execute(ctx context.Context, req *entity.CrawlRequest) (*entity.CrawlRun, error) {
	logger := uc.logger.With(zap.String("run_id", req.RunID))
	run := &entity.CrawlRun{
		RunID:       req.RunID,
		Status:      entity.RunRunning,
		PagesWanted: req.Pages,
		StartedAt:   uc.now(),
	}

	if uc.Lock != nil {
		ok, err := uc.Lock.Acquire(ctx, req.RunID, uc.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquiring run lock: %w", err)
		}
		if !ok {
			metrics.CrawlRunsTotal.WithLabelValues("locked", "").Inc()
			logger.Info("run lock held by another crawl")
			return nil, repository.ErrRunLocked
		}
		defer func() {
			// The run context may already be cancelled; release with a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := uc.Lock.Release(releaseCtx, req.RunID); err != nil {
				logger.Warn("failed to release run lock", zap.Error(err))
			}
		}()
	}
	uc.saveRun(ctx, logger, run)

	reporter := engine.ReporterFunc(func(p entity.Progress) {
		uc.saveProgress(ctx, logger, &p)
	})
	rs, crawlErr := uc.Runner.Run(ctx, uc.cfg, req.Pages, engine.WithRunID(req.RunID), engine.WithReporter(reporter))
	metrics.CrawlDuration.Observe(uc.now().Sub(run.StartedAt).Seconds())

	if crawlErr != nil {
		logger.Error("crawl failed", zap.Error(crawlErr))
		return run, uc.handleCrawlFailure(ctx, logger, run, classify(crawlErr), crawlErr)
	}
	if rs == nil {
		logger.Info("crawl collected no data")
		metrics.CrawlRunsTotal.WithLabelValues(string(entity.RunNoData), "").Inc()
		run.Status = entity.RunNoData
		uc.finish(ctx, logger, run)
		return run, nil
	}
	return run, uc.handleCrawlSuccess(ctx, logger, run, rs)
}

func (uc *crawlerUseCase) handleCrawlSuccess(ctx context.Context, logger *zap.Logger, run *entity.CrawlRun, rs *entity.ResultSet) error {
	run.PagesVisited = rs.PagesVisited
	run.StopReason = rs.StopReason
	run.Skips = rs.Skips
	metrics.CrawlPagesTotal.WithLabelValues("visited").Add(float64(rs.PagesVisited - len(rs.Skips)))
	metrics.CrawlPagesTotal.WithLabelValues("skipped").Add(float64(len(rs.Skips)))

	firstID, err := uc.Listings.NextAvailableID(ctx)
	if err != nil {
		return uc.handleCrawlFailure(ctx, logger, run, "storage", err)
	}
	rs.OffsetIDs(firstID)
	if err := uc.Listings.AppendRecords(ctx, rs.Records); err != nil {
		return uc.handleCrawlFailure(ctx, logger, run, "storage", fmt.Errorf("failed to store %d listings: %w", rs.Len(), err))
	}
	metrics.CrawlListingsTotal.WithLabelValues("stored").Add(float64(rs.Len()))
	metrics.CrawlRunsTotal.WithLabelValues(string(entity.RunCompleted), "").Inc()

	run.Records = rs.Len()
	run.Status = entity.RunCompleted
	logger.Info("listings stored", zap.Int("records", run.Records), zap.Int64("first_id", firstID))

	if err := uc.Notifier.Notify(ctx, run.Records); err != nil {
		// Not critical: the data is already stored.
		logger.Error("failed to send notification", zap.Error(err))
	}
	uc.finish(ctx, logger, run)
	return nil
}

func (uc *crawlerUseCase) handleCrawlFailure(ctx context.Context, logger *zap.Logger, run *entity.CrawlRun, errorType string, crawlErr error) error {
	metrics.CrawlRunsTotal.WithLabelValues(string(entity.RunFailed), errorType).Inc()

	run.Status = entity.RunFailed
	run.FailureReason = crawlErr.Error()
	uc.saveProgress(ctx, logger, &entity.Progress{
		RunID: run.RunID, State: entity.RunFailed, Status: "Erro durante a coleta",
		PageCount: run.PagesWanted, Error: crawlErr.Error(), UpdatedAt: uc.now(),
	})
	uc.finish(ctx, logger, run)
	return crawlErr
}

func (uc *crawlerUseCase) finish(ctx context.Context, logger *zap.Logger, run *entity.CrawlRun) {
	run.FinishedAt = uc.now()
	uc.saveRun(ctx, logger, run)
}

func (uc *crawlerUseCase) saveRun(ctx context.Context, logger *zap.Logger, run *entity.CrawlRun) {
	if uc.History == nil {
		return
	}
	if err := uc.History.Save(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to save run history", zap.Error(err))
	}
}

func (uc *crawlerUseCase) saveProgress(ctx context.Context, logger *zap.Logger, p *entity.Progress) {
	logger.Debug("progress", zap.String("status", p.Status), zap.Float64("fraction", p.Fraction))
	if uc.Progress == nil {
		return
	}
	if err := uc.Progress.Save(context.WithoutCancel(ctx), p); err != nil {
		logger.Warn("failed to save progress", zap.Error(err))
	}
}

// classify maps a crawl error to the error_type metric label.
func classify(err error) string {
	switch {
	case errors.Is(err, repository.ErrBrowserInit):
		return "browser_init"
	case errors.Is(err, repository.ErrContainerNotFound):
		return "container_not_found"
	case errors.Is(err, engine.ErrInvalidPageCount):
		return "invalid_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unknown"
	}
}
