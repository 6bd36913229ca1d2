package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/worker"
)

type countingCrawler struct {
	polls atomic.Int32
}

func (c *countingCrawler) ProcessRequestFromQueue(ctx context.Context) error {
	c.polls.Add(1)
	return nil
}

func (c *countingCrawler) Execute(context.Context, *entity.CrawlRequest) (*entity.CrawlRun, error) {
	return nil, nil
}

func TestWorker_PollsUntilStopped(t *testing.T) {
	t.Parallel()
	c := &countingCrawler{}
	w := worker.New(c, time.Millisecond, zap.NewNop())

	w.Start(context.Background())
	assert.Eventually(t, func() bool { return c.polls.Load() >= 3 }, time.Second, time.Millisecond)
	w.Stop()

	stopped := c.polls.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, stopped, c.polls.Load())
}
