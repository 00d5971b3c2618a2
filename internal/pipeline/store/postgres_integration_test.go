//go:build integration

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterboard/internal/pipeline"
	"rosterboard/internal/reconcile"
	dErrors "rosterboard/pkg/domainerrors"
	"rosterboard/pkg/platform/sentinel"
	"rosterboard/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	s := NewPostgres(pc.DB)
	require.NoError(t, s.EnsureSchema(t.Context()))

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("round trip preserves the full report", func(t *testing.T) {
		run := pipeline.Run{
			ID:        "run-rt",
			Status:    pipeline.StatusCompleted,
			Actor:     "ops",
			StartedAt: base,
			Config:    reconcile.Config{NameColumn: "Name", PhoneColumns: []string{"Phone"}},
			Reconciliation: &reconcile.Report{
				Stats: reconcile.Stats{Total: 2, Matched: 1, Unmatched: 1, ExactName: 1},
			},
		}
		require.NoError(t, s.Save(t.Context(), run))

		got, err := s.Get(t.Context(), "run-rt")
		require.NoError(t, err)
		assert.Equal(t, run.Config, got.Config)
		require.NotNil(t, got.Reconciliation)
		assert.Equal(t, run.Reconciliation.Stats, got.Reconciliation.Stats)
		assert.True(t, run.StartedAt.Equal(got.StartedAt))
	})

	t.Run("save replaces the running record", func(t *testing.T) {
		run := pipeline.Run{ID: "run-up", Status: pipeline.StatusRunning, StartedAt: base}
		require.NoError(t, s.Save(t.Context(), run))

		run.Status = pipeline.StatusFailed
		run.Error = "upstream unavailable"
		require.NoError(t, s.Save(t.Context(), run))

		got, err := s.Get(t.Context(), "run-up")
		require.NoError(t, err)
		assert.Equal(t, pipeline.StatusFailed, got.Status)
		assert.Equal(t, "upstream unavailable", got.Error)
	})

	t.Run("get unknown id", func(t *testing.T) {
		_, err := s.Get(t.Context(), "missing")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("list is newest first", func(t *testing.T) {
		require.NoError(t, s.Save(t.Context(), pipeline.Run{ID: "run-a", Status: pipeline.StatusCompleted, StartedAt: base.Add(time.Hour)}))
		require.NoError(t, s.Save(t.Context(), pipeline.Run{ID: "run-b", Status: pipeline.StatusCompleted, StartedAt: base.Add(2 * time.Hour)}))

		summaries, err := s.List(t.Context())
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(summaries), 2)
		assert.Equal(t, "run-b", summaries[0].ID)
		assert.Equal(t, "run-a", summaries[1].ID)
	})
}
