package entity

import "time"

// RunState is the lifecycle state of a crawl run.
type RunState string

const (
	RunQueued    RunState = "queued"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunNoData    RunState = "no_data"
	RunFailed    RunState = "failed"
)

// Progress is the observable state of a run, polled by the dashboard.
type Progress struct {
	RunID     string    `json:"run_id"`
	State     RunState  `json:"state"`
	Fraction  float64   `json:"fraction"`
	Status    string    `json:"status"`
	Page      int       `json:"page"`
	PageCount int       `json:"page_count"`
	Records   int       `json:"records"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Finished reports whether the run reached a terminal state.
func (p Progress) Finished() bool {
	return p.State == RunCompleted || p.State == RunNoData || p.State == RunFailed
}
