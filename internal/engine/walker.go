package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
)

const (
	minPagePause   = time.Second
	maxPagePause   = 3 * time.Second
	postClickPause = 2 * time.Second
)

// Walker visits result pages in order, extracting every listing and clicking
// through to the next page.
type Walker struct {
	cfg       entity.CrawlConfig
	pacer     Pacer
	sync      *Synchronizer
	extractor *Extractor
}

func NewWalker(cfg entity.CrawlConfig, pacer Pacer, sync *Synchronizer, extractor *Extractor) *Walker {
	return &Walker{cfg: cfg, pacer: pacer, sync: sync, extractor: extractor}
}

// Walk processes up to run.pageCount pages. It never fails: errors on a page
// are recorded as skips and the walk moves on, while running out of listings
// or of next-page controls ends it early with the records collected so far.
func (w *Walker) Walk(ctx context.Context, session repository.Session, run *crawlRun) entity.ResultSet {
	rs := entity.ResultSet{StopReason: entity.StopCompleted}

	for page := 1; page <= run.pageCount; page++ {
		if ctx.Err() != nil {
			run.logger.Info("run cancelled between pages", zap.Int("page", page))
			rs.StopReason = entity.StopCancelled
			return rs
		}

		run.enterPage(page)
		run.report(entity.RunRunning, fmt.Sprintf("Processando página %d/%d", page, run.pageCount))
		run.logger.Info("processing page", zap.Int("page", page), zap.Int("page_count", run.pageCount))
		rs.PagesVisited = page

		records, err := w.processPage(ctx, session, run, page)
		rs.Records = append(rs.Records, records...)
		if err == nil {
			continue
		}

		switch {
		case ctx.Err() != nil:
			run.logger.Info("run cancelled during page", zap.Int("page", page))
			rs.StopReason = entity.StopCancelled
			return rs
		case errors.Is(err, repository.ErrEndOfResults):
			run.logger.Warn("no listings on page, stopping", zap.Int("page", page))
			rs.StopReason = entity.StopEndOfResults
			return rs
		case errors.Is(err, repository.ErrNoNextPage):
			run.logger.Info("no next page control, stopping", zap.Int("page", page))
			rs.StopReason = entity.StopNoNextPage
			return rs
		default:
			run.logger.Error("page failed", zap.Int("page", page), zap.Error(err))
			rs.Skips = append(rs.Skips, entity.PageSkip{Page: page, Reason: err.Error()})
		}
	}
	return rs
}

// processPage returns the records it managed to extract even when it fails
// afterwards, so a click failure does not lose the page's listings.
func (w *Walker) processPage(ctx context.Context, session repository.Session, run *crawlRun, page int) ([]entity.ListingRecord, error) {
	if err := w.pacer.Pause(ctx, w.pacer.Between(minPagePause, maxPagePause)); err != nil {
		return nil, err
	}
	if err := w.pacer.Pause(ctx, w.cfg.SettleDuration); err != nil {
		return nil, err
	}
	w.sync.RevealContent(ctx, session)

	cards, err := w.locateListings(ctx, session, run)
	if err != nil {
		return nil, err
	}

	var records []entity.ListingRecord
	for _, card := range cards {
		seq := run.nextSequence()
		rec, err := w.extractor.Extract(ctx, card, seq, page)
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			run.logger.Warn("listing skipped", zap.Int64("sequence_id", seq), zap.Int("page", page), zap.Error(err))
			continue
		}
		if !run.firstSighting(rec.ListingURL) {
			run.logger.Info("listing already collected", zap.Int64("sequence_id", seq), zap.Int("page", page), zap.String("link", rec.ListingURL))
			continue
		}
		records = append(records, *rec)
	}
	run.records += len(records)
	run.logger.Info("page extracted",
		zap.Int("page", page),
		zap.Int("listings", len(cards)),
		zap.Int("records", len(records)),
	)

	if page < run.pageCount {
		if err := w.advance(ctx, session); err != nil {
			return records, err
		}
	}
	return records, nil
}

// locateListings tries the listing lookup up to MaxRetries times. Exhausting
// the attempts wraps repository.ErrEndOfResults.
func (w *Walker) locateListings(ctx context.Context, session repository.Session, run *crawlRun) ([]repository.Element, error) {
	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxRetries; attempt++ {
		cards, err := firstMatch(ctx, ListingCardsChain, w.cfg.WaitTimeout, nonEmpty(session.QueryAll))
		if err == nil {
			return cards, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		run.logger.Warn("listing lookup failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < w.cfg.MaxRetries {
			if err := w.pacer.Pause(ctx, w.cfg.ListingLookupDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("%w: after %d attempts: %w", repository.ErrEndOfResults, w.cfg.MaxRetries, lastErr)
}

func (w *Walker) advance(ctx context.Context, session repository.Session) error {
	next, err := firstMatch(ctx, NextPageChain, w.cfg.WaitTimeout, session.WaitClickable)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return wrapErr(repository.ErrNoNextPage, err)
	}
	opCtx, cancel := context.WithTimeout(ctx, w.cfg.WaitTimeout)
	err = session.Click(opCtx, next)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: clicking next page: %w", repository.ErrPageSkip, err)
	}
	return w.pacer.Pause(ctx, postClickPause)
}

// nonEmpty turns an empty result into repository.ErrSelectorNotFound.
func nonEmpty(query func(context.Context, repository.Selector) ([]repository.Element, error)) func(context.Context, repository.Selector) ([]repository.Element, error) {
	return func(ctx context.Context, sel repository.Selector) ([]repository.Element, error) {
		els, err := query(ctx, sel)
		if err != nil {
			return nil, err
		}
		if len(els) == 0 {
			return nil, fmt.Errorf("%s: %w", sel, repository.ErrSelectorNotFound)
		}
		return els, nil
	}
}
