package audit

import "time"

// Event is emitted from pipeline logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Actions recorded over a run's lifecycle.
const (
	ActionRunStarted   = "run.started"
	ActionRunCompleted = "run.completed"
	ActionRunFailed    = "run.failed"
	ActionRosterUpload = "roster.uploaded"
)
