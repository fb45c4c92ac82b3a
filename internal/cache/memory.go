package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/atp-triage-server/internal/domain"
)

// MemoryCache is an in-process verdict cache backed by an expirable LRU.
type MemoryCache struct {
	lru *expirable.LRU[string, *domain.TriageRecord]
}

// NewMemoryCache creates a verdict cache holding at most maxItems entries,
// each expiring after ttl.
func NewMemoryCache(maxItems int, ttl time.Duration) (*MemoryCache, error) {
	if maxItems <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxItems)
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, *domain.TriageRecord](maxItems, nil, ttl),
	}, nil
}

// Get returns the cached verdict for an ID, if present and unexpired.
func (c *MemoryCache) Get(_ context.Context, id string) (*domain.TriageRecord, bool) {
	return c.lru.Get(id)
}

// Put caches a committed verdict.
func (c *MemoryCache) Put(_ context.Context, record *domain.TriageRecord) {
	if record == nil || record.ID == "" {
		return
	}
	c.lru.Add(record.ID, record)
}

// Len returns the number of live entries, for health reporting.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
