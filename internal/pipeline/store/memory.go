// Package store provides run persistence: an in-memory store for local use
// and tests, and a PostgreSQL store for deployments that need runs to
// survive restarts.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"rosterboard/internal/pipeline"
	dErrors "rosterboard/pkg/domainerrors"
	"rosterboard/pkg/platform/sentinel"
)

// Memory keeps runs in process memory.
type Memory struct {
	mu   sync.RWMutex
	runs map[string]pipeline.Run
}

func NewMemory() *Memory {
	return &Memory{runs: make(map[string]pipeline.Run)}
}

func (m *Memory) Save(ctx context.Context, run pipeline.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (pipeline.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return pipeline.Run{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, fmt.Sprintf("run %s", id))
	}
	return run, nil
}

func (m *Memory) List(ctx context.Context) ([]pipeline.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]pipeline.Summary, 0, len(m.runs))
	for _, run := range m.runs {
		summaries = append(summaries, run.Summarize())
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].StartedAt.Equal(summaries[j].StartedAt) {
			return summaries[i].StartedAt.After(summaries[j].StartedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries, nil
}
