package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return
// these wrapped in coded domain errors so callers can branch on the fact
// with errors.Is without depending on the implementation.
//
// Validation failures are not sentinels; use pkg/domainerrors for those.
var (
	// ErrNotFound means an entity does not exist in a store.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable means a backing service rejected or dropped a request.
	ErrUnavailable = errors.New("unavailable")
)
