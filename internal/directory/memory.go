package directory

import (
	"context"
	"sync"
	"time"

	"rosterboard/internal/identity/models"
)

// InMemory is the single-process cache used when Redis is not configured,
// and the default for tests.
type InMemory struct {
	mu        sync.RWMutex
	snapshot  []models.Identity
	expiresAt time.Time
	ttl       time.Duration
	clock     func() time.Time
}

func NewInMemory(ttl time.Duration) *InMemory {
	return &InMemory{ttl: ttl, clock: time.Now}
}

func (c *InMemory) Get(ctx context.Context) ([]models.Identity, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil || c.clock().After(c.expiresAt) {
		return nil, false, nil
	}
	out := make([]models.Identity, len(c.snapshot))
	copy(out, c.snapshot)
	return out, true, nil
}

func (c *InMemory) Set(ctx context.Context, identities []models.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = make([]models.Identity, len(identities))
	copy(c.snapshot, identities)
	c.expiresAt = c.clock().Add(c.ttl)
	return nil
}
