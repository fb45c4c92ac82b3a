// Package cache provides verdict caches used to serve recent verdict
// lookups without touching the audit store: an in-process expirable LRU
// for standalone deployments and a Redis-backed cache for deployments
// where multiple API instances share verdict read traffic.
package cache

import (
	"context"

	"github.com/atp-triage-server/internal/domain"
)

// VerdictCache caches committed triage verdicts by verdict ID.
// Implementations must be safe for concurrent use; the classifier is pure
// and shares nothing, so the cache is the only coordination point.
type VerdictCache interface {
	// Get returns the cached verdict for an ID, if present.
	Get(ctx context.Context, id string) (*domain.TriageRecord, bool)

	// Put caches a committed verdict. Best-effort: implementations may
	// evict or drop entries at any time.
	Put(ctx context.Context, record *domain.TriageRecord)
}
