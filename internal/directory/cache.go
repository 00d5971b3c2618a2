// Package directory caches the fetched identity directory between pipeline
// runs. The cache is an explicit dependency with a defined scope and TTL,
// passed into the pipeline rather than hiding in process-global state.
package directory

import (
	"context"

	"rosterboard/internal/identity/models"
)

// Cache stores one directory snapshot. Get's second result reports a hit;
// a miss is not an error. Implementations degrade gracefully: a broken
// cache read means a fresh fetch, never a failed run.
type Cache interface {
	Get(ctx context.Context) ([]models.Identity, bool, error)
	Set(ctx context.Context, identities []models.Identity) error
}
