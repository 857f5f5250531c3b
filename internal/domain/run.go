package domain

import "time"

// RunRecord summarises one ingestion run.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Domains    []string  `json:"domains"`
	Inserted   int       `json:"inserted"`
	Error      string    `json:"error,omitempty"`
}

// Succeeded reports whether the run loaded its batch.
func (r RunRecord) Succeeded() bool {
	return r.Error == ""
}

// Duration returns the wall-clock time the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
