package pipeline

import (
	"time"

	"rosterboard/internal/aggregate"
	"rosterboard/internal/identity/index"
	"rosterboard/internal/reconcile"
	"rosterboard/internal/roster"
)

// Status tracks a run through its lifecycle.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one full reconciliation pass: roster in, reconciliation report and
// leaderboard out. Everything needed to answer "what happened in run X" is
// on the struct so a run survives a process restart intact.
type Run struct {
	ID         string     `json:"id"`
	Status     Status     `json:"status"`
	Actor      string     `json:"actor,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Config reconcile.Config `json:"config"`

	Reconciliation *reconcile.Report `json:"reconciliation,omitempty"`
	Leaderboard    *aggregate.Report `json:"leaderboard,omitempty"`
	Augmented      *roster.Table     `json:"augmented,omitempty"`
	Collisions     index.Collisions  `json:"collisions"`

	Error string `json:"error,omitempty"`
}

// Summary is the listing view of a run, without the row-level payloads.
type Summary struct {
	ID         string     `json:"id"`
	Status     Status     `json:"status"`
	Actor      string     `json:"actor,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	RosterRows int        `json:"roster_rows"`
	Error      string     `json:"error,omitempty"`
}

// Summarize strips the heavy payloads for list endpoints.
func (r Run) Summarize() Summary {
	s := Summary{
		ID:         r.ID,
		Status:     r.Status,
		Actor:      r.Actor,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Error:      r.Error,
	}
	if r.Reconciliation != nil {
		s.RosterRows = r.Reconciliation.Stats.Total
	}
	return s
}
