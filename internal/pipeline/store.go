package pipeline

import "context"

// RunStore persists runs. Save is an upsert keyed by run ID so the running
// record written at the start of a run is replaced by the finished one.
type RunStore interface {
	Save(ctx context.Context, run Run) error
	Get(ctx context.Context, id string) (Run, error)
	List(ctx context.Context) ([]Summary, error)
}
