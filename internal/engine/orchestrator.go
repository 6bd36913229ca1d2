package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
)

// Orchestrator runs a complete crawl: it provisions the browser, opens the
// target, captures the search location and walks the result pages.
type Orchestrator struct {
	provider repository.SessionProvider
	logger   *zap.Logger
	pacer    Pacer
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPacer replaces the default human-like pacer.
func WithPacer(p Pacer) Option {
	return func(o *Orchestrator) { o.pacer = p }
}

// WithClock replaces time.Now for record stamping and progress timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(provider repository.SessionProvider, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		logger:   logger,
		pacer:    NewHumanPacer(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunOptions are the per-call settings of Run.
type RunOptions struct {
	ID       string
	Reporter ProgressReporter
}

// RunOption configures a single Run call.
type RunOption func(*RunOptions)

// WithRunID sets the identifier used in logs and progress reports.
func WithRunID(id string) RunOption {
	return func(r *RunOptions) { r.ID = id }
}

// WithReporter receives progress updates while the run executes.
func WithReporter(rep ProgressReporter) RunOption {
	return func(r *RunOptions) { r.Reporter = rep }
}

// Run crawls up to pageCount result pages. It returns (nil, nil) when the
// crawl finished without collecting any record. The browser session is
// released exactly once whatever the outcome.
func (o *Orchestrator) Run(ctx context.Context, cfg entity.CrawlConfig, pageCount int, opts ...RunOption) (*entity.ResultSet, error) {
	ro := RunOptions{}
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.ID == "" {
		ro.ID = uuid.NewString()
	}
	run := newCrawlRun(ro.ID, pageCount, o.logger.With(zap.String("run_id", ro.ID)), ro.Reporter, o.now)

	if pageCount < 1 {
		run.fail(ErrInvalidPageCount)
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPageCount, pageCount)
	}
	if err := cfg.Validate(); err != nil {
		run.fail(err)
		return nil, err
	}

	run.logger.Info("starting crawl", zap.String("url", cfg.TargetURL), zap.Int("page_count", pageCount))
	run.report(entity.RunRunning, "Iniciando coleta de dados...")

	session, err := o.provider.Provision(ctx, cfg)
	if err != nil {
		run.logger.Error("browser provisioning failed", zap.Error(err))
		run.fail(err)
		return nil, wrapErr(repository.ErrBrowserInit, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			run.logger.Error("closing browser", zap.Error(err))
		}
	}()

	rs, err := o.crawl(ctx, cfg, session, run)
	if err != nil {
		run.logger.Error("crawl failed", zap.Error(err))
		run.fail(err)
		return nil, err
	}

	run.advance(1)
	if rs.Len() == 0 {
		run.logger.Info("crawl finished without data",
			zap.String("stop_reason", string(rs.StopReason)),
			zap.Int("pages_visited", rs.PagesVisited),
		)
		run.report(entity.RunNoData, "Nenhum dado coletado")
		return nil, nil
	}
	run.logger.Info("crawl finished",
		zap.Int("records", rs.Len()),
		zap.Int("pages_visited", rs.PagesVisited),
		zap.Int("skipped_pages", len(rs.Skips)),
		zap.String("stop_reason", string(rs.StopReason)),
	)
	run.report(entity.RunCompleted, fmt.Sprintf("Coleta finalizada. Total de %d registros coletados.", rs.Len()))
	return rs, nil
}

func (o *Orchestrator) crawl(ctx context.Context, cfg entity.CrawlConfig, session repository.Session, run *crawlRun) (*entity.ResultSet, error) {
	sync := NewSynchronizer(cfg, run.logger, o.pacer)

	navCtx, cancel := context.WithTimeout(ctx, cfg.PageLoadTimeout)
	err := session.Navigate(navCtx, cfg.TargetURL)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("navigating to %s: %w", cfg.TargetURL, err)
	}
	run.logger.Info("target opened")

	sync.AwaitReady(ctx, session, cfg.ReadyPollAttempts)
	if _, err := sync.AwaitResultsContainer(ctx, session, cfg.WaitTimeout); err != nil {
		return nil, err
	}

	locality, region := o.captureLocation(ctx, cfg, session, run)

	walker := NewWalker(cfg, o.pacer, sync, NewExtractor(cfg, run.logger, o.now))
	rs := walker.Walk(ctx, session, run)
	rs.Locality, rs.Region = locality, region
	for i := range rs.Records {
		rs.Records[i].Locality = locality
		rs.Records[i].Region = region
	}
	return &rs, nil
}

// captureLocation reads the "City - ST" label of the search box, falling back
// to the configured location when it is missing or malformed.
func (o *Orchestrator) captureLocation(ctx context.Context, cfg entity.CrawlConfig, session repository.Session, run *crawlRun) (string, string) {
	if err := o.pacer.Pause(ctx, cfg.SettleDuration); err == nil {
		el, err := firstMatch(ctx, LocationChain, cfg.WaitTimeout, session.WaitFor)
		if err == nil {
			label, err := bounded(ctx, cfg.WaitTimeout, el.Text)
			if err == nil {
				if city, region, ok := SplitLocation(label); ok {
					run.logger.Info("location captured", zap.String("locality", city), zap.String("region", region))
					return city, region
				}
			}
			run.logger.Warn("unexpected location label", zap.String("label", label), zap.Error(err))
		} else {
			run.logger.Warn("location not found", zap.Error(err))
		}
	}
	return cfg.FallbackLocality, cfg.FallbackRegion
}
