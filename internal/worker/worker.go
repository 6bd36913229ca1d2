// Package worker drains the crawl request queue in the background.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/usecase"
)

// Worker processes queued crawl requests one at a time.
type Worker struct {
	crawler  usecase.Crawler
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func New(crawler usecase.Crawler, interval time.Duration, logger *zap.Logger) *Worker {
	return &Worker{crawler: crawler, interval: interval, logger: logger}
}

// Start polls the queue every interval until Stop is called or ctx ends.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			if err := w.crawler.ProcessRequestFromQueue(ctx); err != nil {
				w.logger.Error("crawl request failed", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop cancels the run in progress, if any, and waits for the worker to exit.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
