package response

import (
	"time"

	"github.com/user/listing-crawler/internal/entity"
)

type SubmitCrawlResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	RunID   string `json:"run_id"`
}

// CrawlRunResponse is a DTO for one finished run, mirroring entity.CrawlRun
type CrawlRunResponse struct {
	RunID         string            `json:"run_id"`
	Status        entity.RunState   `json:"status"` // "completed", "no_data", "failed"
	PagesWanted   int               `json:"pages_wanted"`
	PagesVisited  int               `json:"pages_visited"`
	Records       int               `json:"records"`
	StopReason    entity.StopReason `json:"stop_reason,omitempty"`
	Skips         []entity.PageSkip `json:"skips,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    *time.Time        `json:"finished_at,omitempty"`
}

func FromCrawlRun(run *entity.CrawlRun) CrawlRunResponse {
	resp := CrawlRunResponse{
		RunID:         run.RunID,
		Status:        run.Status,
		PagesWanted:   run.PagesWanted,
		PagesVisited:  run.PagesVisited,
		Records:       run.Records,
		StopReason:    run.StopReason,
		Skips:         run.Skips,
		FailureReason: run.FailureReason,
		StartedAt:     run.StartedAt,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		resp.FinishedAt = &finished
	}
	return resp
}
