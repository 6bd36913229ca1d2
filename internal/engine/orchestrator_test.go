package engine_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/engine"
	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/mock"
	"github.com/user/listing-crawler/internal/repository"
)

func newOrchestrator(p repository.SessionProvider) *engine.Orchestrator {
	return engine.NewOrchestrator(p, zap.NewNop(),
		engine.WithPacer(engine.InstantPacer()),
		engine.WithClock(fixedClock),
	)
}

func TestOrchestrator_Run(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("keeps valid listings with their encounter order IDs", func(t *testing.T) {
		t.Parallel()
		s := replaySession(t, page{
			location: "Fortaleza - CE",
			listings: []listing{validListing(1), invalidListing(), validListing(3)},
		})

		rs, err := newOrchestrator(providerFor(s)).Run(ctx, testConfig(), 1)

		require.NoError(t, err)
		require.NotNil(t, rs)
		assert.Equal(t, []int64{1, 3}, sequenceIDs(rs))
		assert.Equal(t, entity.StopCompleted, rs.StopReason)
		assert.Equal(t, 1, rs.PagesVisited)
		assert.Empty(t, rs.Skips)
		for _, r := range rs.Records {
			assert.Equal(t, "Fortaleza", r.Locality)
			assert.Equal(t, "CE", r.Region)
			assert.Equal(t, 1, r.PageNumber)
		}
		assert.Equal(t, 1, s.Closed())
	})

	t.Run("numbers listings across pages including rejected ones", func(t *testing.T) {
		t.Parallel()
		s := replaySession(t,
			page{location: "Eusébio - CE", listings: []listing{invalidListing(), validListing(2)}},
			page{listings: []listing{validListing(3), validListing(4)}},
		)

		rs, err := newOrchestrator(providerFor(s)).Run(ctx, testConfig(), 2)

		require.NoError(t, err)
		assert.Equal(t, []int64{2, 3, 4}, sequenceIDs(rs))
		assert.Equal(t, []int{1, 2, 2}, []int{rs.Records[0].PageNumber, rs.Records[1].PageNumber, rs.Records[2].PageNumber})
		assert.Equal(t, 2, rs.PagesVisited)
		assert.Equal(t, entity.StopCompleted, rs.StopReason)
	})

	t.Run("stops at a page without listings and keeps earlier pages", func(t *testing.T) {
		t.Parallel()
		s := replaySession(t,
			page{listings: []listing{validListing(1)}},
			page{listings: []listing{validListing(2)}},
			page{},
		)
		var lookups atomic.Int32
		base := s.Base
		s.QueryAllFn = func(ctx context.Context, sel repository.Selector) ([]repository.Element, error) {
			lookups.Add(1)
			return base.QueryAll(ctx, sel)
		}

		rs, err := newOrchestrator(providerFor(s)).Run(ctx, testConfig(), 5)

		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, sequenceIDs(rs))
		assert.Equal(t, entity.StopEndOfResults, rs.StopReason)
		assert.Equal(t, 3, rs.PagesVisited)
		assert.Empty(t, rs.Skips)
		// one lookup on each of the first two pages, three attempts on the third
		assert.Equal(t, int32(5), lookups.Load())
		assert.Equal(t, 1, s.Closed())
	})

	t.Run("stops without error when the next control is missing", func(t *testing.T) {
		t.Parallel()
		s := replaySession(t,
			page{listings: []listing{validListing(1)}},
			page{listings: []listing{validListing(2)}, noNext: true},
			page{listings: []listing{validListing(3)}},
		)

		rs, err := newOrchestrator(providerFor(s)).Run(ctx, testConfig(), 5)

		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, sequenceIDs(rs))
		assert.Equal(t, entity.StopNoNextPage, rs.StopReason)
		assert.Equal(t, 2, rs.PagesVisited)
		assert.Equal(t, 1, s.Closed())
	})

	t.Run("records a page skip and moves on when a click fails", func(t *testing.T) {
		t.Parallel()
		s := replaySession(t,
			page{listings: []listing{validListing(1)}},
			page{listings: []listing{validListing(2)}},
		)
		s.ClickFn = func(context.Context, repository.Element) error {
			return errors.New("node detached")
		}

		rs, err := newOrchestrator(providerFor(s)).Run(ctx, testConfig(), 2)

		require.NoError(t, err)
		require.Len(t, rs.Skips, 1)
		assert.Equal(t, 1, rs.Skips[0].Page)
		assert.Contains(t, rs.Skips[0].Reason, "node detached")
		assert.Equal(t, 2, rs.PagesVisited)
		assert.Equal(t, entity.StopCompleted, rs.StopReason)
		// Still on page 1 after the failed click: its listing is not collected twice.
		assert.Equal(t, []int64{1}, sequenceIDs(rs))
		assert.Equal(t, 1, rs.Records[0].PageNumber)
	})

	t.Run("drops listings already collected in the run", func(t *testing.T) {
		t.Parallel()
		s := replaySession(t,
			page{listings: []listing{validListing(1), validListing(2)}},
			page{listings: []listing{validListing(2), validListing(3)}},
		)

		rs, err := newOrchestrator(providerFor(s)).Run(ctx, testConfig(), 2)

		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 4}, sequenceIDs(rs))
		assert.Equal(t, 2, rs.Records[2].PageNumber)
	})

	t.Run("falls back to the configured location", func(t *testing.T) {
		t.Parallel()
		s := replaySession(t, page{location: "Eusébio", listings: []listing{validListing(1)}})
		cfg := testConfig()
		cfg.FallbackLocality, cfg.FallbackRegion = "Aquiraz", "CE"

		rs, err := newOrchestrator(providerFor(s)).Run(ctx, cfg, 1)

		require.NoError(t, err)
		assert.Equal(t, "Aquiraz", rs.Locality)
		assert.Equal(t, "Aquiraz", rs.Records[0].Locality)
		assert.Equal(t, "CE", rs.Records[0].Region)
	})

	t.Run("returns no data when nothing was collected", func(t *testing.T) {
		t.Parallel()
		s := replaySession(t, page{listings: []listing{invalidListing()}})

		rs, err := newOrchestrator(providerFor(s)).Run(ctx, testConfig(), 1)

		require.NoError(t, err)
		assert.Nil(t, rs)
		assert.Equal(t, 1, s.Closed())
	})

	t.Run("fails when the results container never appears", func(t *testing.T) {
		t.Parallel()
		s := replaySession(t, page{})
		base := s.Base
		s.WaitForFn = func(ctx context.Context, sel repository.Selector) (repository.Element, error) {
			if sel.Expr == "div.results-list" {
				return nil, repository.ErrSelectorNotFound
			}
			return base.WaitFor(ctx, sel)
		}

		rs, err := newOrchestrator(providerFor(s)).Run(ctx, testConfig(), 1)

		assert.Nil(t, rs)
		assert.ErrorIs(t, err, repository.ErrContainerNotFound)
		assert.Equal(t, 1, s.Closed())
	})

	t.Run("fails when navigation fails", func(t *testing.T) {
		t.Parallel()
		s := replaySession(t, page{})
		s.NavigateFn = func(context.Context, string) error { return errors.New("net::ERR_NAME_NOT_RESOLVED") }

		rs, err := newOrchestrator(providerFor(s)).Run(ctx, testConfig(), 1)

		assert.Nil(t, rs)
		assert.ErrorContains(t, err, "ERR_NAME_NOT_RESOLVED")
		assert.Equal(t, 1, s.Closed())
	})

	t.Run("closes the session when the run panics", func(t *testing.T) {
		t.Parallel()
		s := replaySession(t, page{listings: []listing{validListing(1)}})
		boom := engine.ReporterFunc(func(p entity.Progress) {
			if p.Page == 1 {
				panic("reporter exploded")
			}
		})

		assert.Panics(t, func() {
			_, _ = newOrchestrator(providerFor(s)).Run(ctx, testConfig(), 1, engine.WithReporter(boom))
		})
		assert.Equal(t, 1, s.Closed())
	})

	t.Run("wraps provisioning failures", func(t *testing.T) {
		t.Parallel()
		p := &mock.SessionProvider{
			ProvisionFn: func(context.Context, entity.CrawlConfig) (repository.Session, error) {
				return nil, errors.New("chrome not found")
			},
		}

		rs, err := newOrchestrator(p).Run(ctx, testConfig(), 1)

		assert.Nil(t, rs)
		assert.ErrorIs(t, err, repository.ErrBrowserInit)
	})

	t.Run("rejects a page count below one", func(t *testing.T) {
		t.Parallel()
		p := &mock.SessionProvider{
			ProvisionFn: func(context.Context, entity.CrawlConfig) (repository.Session, error) {
				t.Fatal("provisioned a session for an invalid run")
				return nil, nil
			},
		}

		_, err := newOrchestrator(p).Run(ctx, testConfig(), 0)

		assert.ErrorIs(t, err, engine.ErrInvalidPageCount)
	})

	t.Run("stops between pages once cancelled", func(t *testing.T) {
		t.Parallel()
		s := replaySession(t,
			page{listings: []listing{validListing(1)}},
			page{listings: []listing{validListing(2)}},
		)
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stopOnSecondPage := engine.ReporterFunc(func(p entity.Progress) {
			if p.Page == 2 {
				cancel()
			}
		})

		rs, err := newOrchestrator(providerFor(s)).Run(runCtx, testConfig(), 2, engine.WithReporter(stopOnSecondPage))

		require.NoError(t, err)
		assert.Equal(t, []int64{1}, sequenceIDs(rs))
		assert.Equal(t, entity.StopCancelled, rs.StopReason)
		assert.Empty(t, rs.Skips)
		assert.Equal(t, 1, s.Closed())
	})

	t.Run("reports monotonic progress ending complete", func(t *testing.T) {
		t.Parallel()
		s := replaySession(t,
			page{listings: []listing{validListing(1)}},
			page{listings: []listing{validListing(2)}},
			page{listings: []listing{validListing(3)}},
		)
		var updates []entity.Progress
		collect := engine.ReporterFunc(func(p entity.Progress) { updates = append(updates, p) })

		_, err := newOrchestrator(providerFor(s)).Run(ctx, testConfig(), 3,
			engine.WithRunID("run-42"), engine.WithReporter(collect))

		require.NoError(t, err)
		require.NotEmpty(t, updates)
		for i := 1; i < len(updates); i++ {
			assert.GreaterOrEqual(t, updates[i].Fraction, updates[i-1].Fraction)
			assert.Equal(t, "run-42", updates[i].RunID)
		}
		assert.Equal(t, "Processando página 2/3", updates[2].Status)
		last := updates[len(updates)-1]
		assert.Equal(t, entity.RunCompleted, last.State)
		assert.InDelta(t, 1.0, last.Fraction, 1e-9)
		assert.Equal(t, 3, last.Records)
	})
}
