package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/delivery/http/handler"
	"github.com/user/listing-crawler/internal/delivery/http/router"
	"github.com/user/listing-crawler/internal/engine"
	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/mock"
	"github.com/user/listing-crawler/internal/repository"
	"github.com/user/listing-crawler/pkg/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

func serve(t *testing.T, runs *mock.RunManager, checks map[string]handler.HealthCheck, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := handler.NewHandler(runs, checks, zap.NewNop())
	srv := router.New(h, zap.NewNop())

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestSubmitCrawl(t *testing.T) {
	t.Parallel()

	submitting := func(err error) *mock.RunManager {
		return &mock.RunManager{
			SubmitFn: func(_ context.Context, pages int, source string) (*entity.CrawlRequest, error) {
				if err != nil {
					return nil, err
				}
				return &entity.CrawlRequest{RunID: "run-42", Pages: pages, Source: source}, nil
			},
		}
	}

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{name: "accepted", body: `{"pages":3}`, wantStatus: http.StatusAccepted},
		{name: "malformed body", body: `{"pages":`, wantStatus: http.StatusBadRequest},
		{name: "invalid page count", body: `{"pages":0}`, err: fmt.Errorf("%w: got 0", engine.ErrInvalidPageCount), wantStatus: http.StatusBadRequest},
		{name: "run in progress", body: `{"pages":1}`, err: fmt.Errorf("%w: run x", repository.ErrRunLocked), wantStatus: http.StatusConflict},
		{name: "queue failure", body: `{"pages":1}`, err: errors.New("redis down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := serve(t, submitting(tt.err), nil, http.MethodPost, "/api/crawl", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.wantStatus == http.StatusAccepted {
				var resp map[string]string
				decode(t, rec, &resp)
				assert.Equal(t, "run-42", resp["run_id"])
			}
		})
	}
}

func TestGetCrawlStatus(t *testing.T) {
	t.Parallel()

	runs := &mock.RunManager{
		GetStatusFn: func(_ context.Context, runID string) (*entity.Progress, error) {
			if runID != "run-1" {
				return nil, repository.ErrRunNotFound
			}
			return &entity.Progress{RunID: runID, State: entity.RunRunning, Fraction: 0.5, Status: "Processando página 1/2"}, nil
		},
	}

	t.Run("returns progress", func(t *testing.T) {
		t.Parallel()
		rec := serve(t, runs, nil, http.MethodGet, "/api/crawl/status?run_id=run-1", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var p entity.Progress
		decode(t, rec, &p)
		assert.Equal(t, entity.RunRunning, p.State)
		assert.Equal(t, "Processando página 1/2", p.Status)
	})

	t.Run("requires run_id", func(t *testing.T) {
		t.Parallel()
		rec := serve(t, runs, nil, http.MethodGet, "/api/crawl/status", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown run", func(t *testing.T) {
		t.Parallel()
		rec := serve(t, runs, nil, http.MethodGet, "/api/crawl/status?run_id=other", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRecentRuns(t *testing.T) {
	t.Parallel()

	finished := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	var gotLimit int
	runs := &mock.RunManager{
		RecentFn: func(_ context.Context, limit int) ([]*entity.CrawlRun, error) {
			gotLimit = limit
			return []*entity.CrawlRun{
				{RunID: "b", Status: entity.RunCompleted, Records: 12, FinishedAt: finished},
				{RunID: "a", Status: entity.RunFailed, FailureReason: "browser_init"},
			}, nil
		},
	}

	rec := serve(t, runs, nil, http.MethodGet, "/api/crawl/runs?limit=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, gotLimit)
	var resp []map[string]any
	decode(t, rec, &resp)
	require.Len(t, resp, 2)
	assert.Equal(t, "b", resp[0]["run_id"])
	assert.Contains(t, resp[0], "finished_at")
	assert.NotContains(t, resp[1], "finished_at")
	assert.Equal(t, "browser_init", resp[1]["failure_reason"])

	bad := serve(t, runs, nil, http.MethodGet, "/api/crawl/runs?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()
		rec := serve(t, &mock.RunManager{}, map[string]handler.HealthCheck{"postgres": ok, "redis": ok}, http.MethodGet, "/api/health", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]string
		decode(t, rec, &resp)
		assert.Equal(t, "ok", resp["status"])
		assert.Equal(t, "healthy", resp["redis"])
	})

	t.Run("a failing dependency", func(t *testing.T) {
		t.Parallel()
		rec := serve(t, &mock.RunManager{}, map[string]handler.HealthCheck{"postgres": ok, "redis": down}, http.MethodGet, "/api/health", "")

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var resp map[string]string
		decode(t, rec, &resp)
		assert.Equal(t, "unhealthy", resp["redis"])
		assert.Equal(t, "healthy", resp["postgres"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	rec := serve(t, &mock.RunManager{}, nil, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
