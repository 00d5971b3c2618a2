//go:build integration

package directory

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterboard/internal/identity/models"
	"rosterboard/pkg/testutil/containers"
)

func TestRedisCache(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	logger := slog.New(slog.DiscardHandler)

	identities := []models.Identity{
		{ID: "u1", Name: "Asha Rao", Phone: "9000000001"},
		{ID: "u2", Name: "Ravi Kumar", Phone: "9000000002"},
	}

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(t.Context()))
		cache := NewRedis(rc.Client, time.Minute, logger)

		_, ok, err := cache.Get(t.Context())
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, cache.Set(t.Context(), identities))

		got, ok, err := cache.Get(t.Context())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, identities, got)
	})

	t.Run("expires with ttl", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(t.Context()))
		cache := NewRedis(rc.Client, 100*time.Millisecond, logger)
		require.NoError(t, cache.Set(t.Context(), identities))

		time.Sleep(200 * time.Millisecond)

		_, ok, err := cache.Get(t.Context())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt payload reads as a miss", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(t.Context()))
		cache := NewRedis(rc.Client, time.Minute, logger)
		require.NoError(t, rc.Client.Set(t.Context(), "rosterboard:directory:v1", "not json", time.Minute).Err())

		_, ok, err := cache.Get(t.Context())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
