package entity

import "time"

// CrawlRequest is a queued request to crawl a number of result pages.
type CrawlRequest struct {
	RunID       string    `json:"run_id"`
	Pages       int       `json:"pages"`
	RequestedAt time.Time `json:"requested_at"`
	Source      string    `json:"source"` // "api", "schedule", "cli"
}

// CrawlRun mirrors the `crawl_runs` table.
type CrawlRun struct {
	RunID         string
	Status        RunState
	PagesWanted   int
	PagesVisited  int
	Records       int
	StopReason    StopReason
	Skips         []PageSkip
	FailureReason string
	StartedAt     time.Time
	FinishedAt    time.Time
}
