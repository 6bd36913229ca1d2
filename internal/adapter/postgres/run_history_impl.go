package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
)

// RunHistoryRepoImpl keeps one row per crawl run in crawl_runs.
type RunHistoryRepoImpl struct {
	db *pgxpool.Pool
}

func NewRunHistoryRepo(db *pgxpool.Pool) *RunHistoryRepoImpl {
	return &RunHistoryRepoImpl{db: db}
}

// Save inserts the run or overwrites the row with the same run_id.
func (r *RunHistoryRepoImpl) Save(ctx context.Context, run *entity.CrawlRun) error {
	skips := run.Skips
	if skips == nil {
		skips = []entity.PageSkip{}
	}
	skipsJSON, err := json.Marshal(skips)
	if err != nil {
		return err
	}
	var finishedAt *time.Time
	if !run.FinishedAt.IsZero() {
		finishedAt = &run.FinishedAt
	}

	query := `
		INSERT INTO crawl_runs (run_id, status, pages_wanted, pages_visited, records, stop_reason, skips, failure_reason, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			pages_visited = EXCLUDED.pages_visited,
			records = EXCLUDED.records,
			stop_reason = EXCLUDED.stop_reason,
			skips = EXCLUDED.skips,
			failure_reason = EXCLUDED.failure_reason,
			finished_at = EXCLUDED.finished_at;
	`
	_, err = r.db.Exec(ctx, query,
		run.RunID,
		string(run.Status),
		run.PagesWanted,
		run.PagesVisited,
		run.Records,
		string(run.StopReason),
		skipsJSON,
		run.FailureReason,
		run.StartedAt,
		finishedAt,
	)
	return err
}

const selectRun = `
	SELECT run_id, status, pages_wanted, pages_visited, records, stop_reason, skips, failure_reason, started_at, finished_at
	FROM crawl_runs`

func (r *RunHistoryRepoImpl) FindByID(ctx context.Context, runID string) (*entity.CrawlRun, error) {
	run, err := scanRun(r.db.QueryRow(ctx, selectRun+` WHERE run_id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrRunNotFound
	}
	return run, err
}

func (r *RunHistoryRepoImpl) FindRecent(ctx context.Context, limit int) ([]*entity.CrawlRun, error) {
	rows, err := r.db.Query(ctx, selectRun+` ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*entity.CrawlRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*entity.CrawlRun, error) {
	var (
		run        entity.CrawlRun
		status     string
		stopReason string
		skipsJSON  []byte
		finishedAt *time.Time
	)
	err := row.Scan(
		&run.RunID,
		&status,
		&run.PagesWanted,
		&run.PagesVisited,
		&run.Records,
		&stopReason,
		&skipsJSON,
		&run.FailureReason,
		&run.StartedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Status = entity.RunState(status)
	run.StopReason = entity.StopReason(stopReason)
	if finishedAt != nil {
		run.FinishedAt = *finishedAt
	}
	if err := json.Unmarshal(skipsJSON, &run.Skips); err != nil {
		return nil, err
	}
	return &run, nil
}
