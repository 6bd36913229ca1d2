package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/entity"
)

// ProgressReporter receives the observable state of a run.
type ProgressReporter interface {
	Report(p entity.Progress)
}

// ReporterFunc adapts a function to ProgressReporter.
type ReporterFunc func(p entity.Progress)

func (f ReporterFunc) Report(p entity.Progress) { f(p) }

type nopReporter struct{}

func (nopReporter) Report(entity.Progress) {}

// crawlRun is the state of one Orchestrator.Run invocation. It is never shared
// between runs.
type crawlRun struct {
	id        string
	pageCount int
	logger    *zap.Logger
	reporter  ProgressReporter
	now       func() time.Time

	sequence int64
	page     int
	records  int
	fraction float64
	seen     map[string]struct{}
}

func newCrawlRun(id string, pageCount int, logger *zap.Logger, reporter ProgressReporter, now func() time.Time) *crawlRun {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if now == nil {
		now = time.Now
	}
	return &crawlRun{
		id:        id,
		pageCount: pageCount,
		logger:    logger,
		reporter:  reporter,
		now:       now,
		seen:      make(map[string]struct{}),
	}
}

// nextSequence assigns the ID of the next listing element encountered.
func (r *crawlRun) nextSequence() int64 {
	r.sequence++
	return r.sequence
}

// firstSighting reports whether a listing with this link has not been
// collected yet in the run and remembers it. Listings without a link always count.
func (r *crawlRun) firstSighting(link string) bool {
	if link == "" {
		return true
	}
	if _, ok := r.seen[link]; ok {
		return false
	}
	r.seen[link] = struct{}{}
	return true
}

func (r *crawlRun) enterPage(page int) {
	r.page = page
	r.advance(float64(page) / float64(r.pageCount))
}

// advance moves the completion fraction forward; it never goes back.
func (r *crawlRun) advance(fraction float64) {
	if fraction > 1 {
		fraction = 1
	}
	if fraction > r.fraction {
		r.fraction = fraction
	}
}

func (r *crawlRun) report(state entity.RunState, status string) {
	r.reporter.Report(entity.Progress{
		RunID:     r.id,
		State:     state,
		Fraction:  r.fraction,
		Status:    status,
		Page:      r.page,
		PageCount: r.pageCount,
		Records:   r.records,
		UpdatedAt: r.now(),
	})
}

func (r *crawlRun) fail(err error) {
	p := entity.Progress{
		RunID:     r.id,
		State:     entity.RunFailed,
		Fraction:  r.fraction,
		Status:    "Erro durante a coleta",
		Page:      r.page,
		PageCount: r.pageCount,
		Records:   r.records,
		Error:     err.Error(),
		UpdatedAt: r.now(),
	}
	r.reporter.Report(p)
}
