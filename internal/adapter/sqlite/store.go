// Package sqlite stores listings and run history in a local SQLite file, for
// single-machine use without PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
)

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS terrenos (
		id INTEGER PRIMARY KEY,
		titulo TEXT NOT NULL,
		endereco TEXT NOT NULL,
		area_m2 REAL NOT NULL,
		preco_real REAL NOT NULL,
		preco_m2 REAL NOT NULL,
		link TEXT NOT NULL DEFAULT '',
		pagina INTEGER NOT NULL,
		data_coleta TEXT NOT NULL,
		localidade TEXT NOT NULL,
		estado TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS crawl_runs (
		run_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		pages_wanted INTEGER NOT NULL,
		pages_visited INTEGER NOT NULL DEFAULT 0,
		records INTEGER NOT NULL DEFAULT 0,
		stop_reason TEXT NOT NULL DEFAULT '',
		skips JSON NOT NULL DEFAULT '[]',
		failure_reason TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) NextAvailableID(ctx context.Context) (int64, error) {
	var next int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM terrenos`).Scan(&next)
	return next, err
}

func (s *Store) AppendRecords(ctx context.Context, records []entity.ListingRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO terrenos (id, titulo, endereco, area_m2, preco_real, preco_m2, link, pagina, data_coleta, localidade, estado)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.SequenceID, rec.Title, rec.Address, rec.AreaSqm, rec.PriceBRL, rec.PricePerSqm,
			rec.ListingURL, rec.PageNumber, rec.CollectedOn.String(), rec.Locality, rec.Region,
		); err != nil {
			return fmt.Errorf("inserting listing %d: %w", rec.SequenceID, err)
		}
	}
	return tx.Commit()
}

// Listings returns every stored listing ordered by id.
func (s *Store) Listings(ctx context.Context) ([]entity.ListingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, titulo, endereco, area_m2, preco_real, preco_m2, link, pagina, data_coleta, localidade, estado
		FROM terrenos ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.ListingRecord
	for rows.Next() {
		var (
			rec       entity.ListingRecord
			collected string
		)
		if err := rows.Scan(&rec.SequenceID, &rec.Title, &rec.Address, &rec.AreaSqm, &rec.PriceBRL,
			&rec.PricePerSqm, &rec.ListingURL, &rec.PageNumber, &collected, &rec.Locality, &rec.Region); err != nil {
			return nil, err
		}
		if rec.CollectedOn, err = entity.ParseDate(collected); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Save(ctx context.Context, run *entity.CrawlRun) error {
	skips := run.Skips
	if skips == nil {
		skips = []entity.PageSkip{}
	}
	skipsJSON, err := json.Marshal(skips)
	if err != nil {
		return err
	}
	var finishedAt sql.NullTime
	if !run.FinishedAt.IsZero() {
		finishedAt = sql.NullTime{Time: run.FinishedAt, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO crawl_runs (run_id, status, pages_wanted, pages_visited, records, stop_reason, skips, failure_reason, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			status = excluded.status,
			pages_visited = excluded.pages_visited,
			records = excluded.records,
			stop_reason = excluded.stop_reason,
			skips = excluded.skips,
			failure_reason = excluded.failure_reason,
			finished_at = excluded.finished_at`,
		run.RunID, string(run.Status), run.PagesWanted, run.PagesVisited, run.Records,
		string(run.StopReason), string(skipsJSON), run.FailureReason, run.StartedAt, finishedAt,
	)
	return err
}

const selectRun = `
	SELECT run_id, status, pages_wanted, pages_visited, records, stop_reason, skips, failure_reason, started_at, finished_at
	FROM crawl_runs`

func (s *Store) FindByID(ctx context.Context, runID string) (*entity.CrawlRun, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, selectRun+` WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrRunNotFound
	}
	return run, err
}

func (s *Store) FindRecent(ctx context.Context, limit int) ([]*entity.CrawlRun, error) {
	rows, err := s.db.QueryContext(ctx, selectRun+` ORDER BY started_at DESC LIMIT ?`, limit)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*entity.CrawlRun, error) {
	var (
		run        entity.CrawlRun
		status     string
		stopReason string
		skipsJSON  string
		finishedAt sql.NullTime
		startedAt  time.Time
	)
	if err := row.Scan(&run.RunID, &status, &run.PagesWanted, &run.PagesVisited, &run.Records,
		&stopReason, &skipsJSON, &run.FailureReason, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	run.Status = entity.RunState(status)
	run.StopReason = entity.StopReason(stopReason)
	run.StartedAt = startedAt
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	if err := json.Unmarshal([]byte(skipsJSON), &run.Skips); err != nil {
		return nil, err
	}
	return &run, nil
}
