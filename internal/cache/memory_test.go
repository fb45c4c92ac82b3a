package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atp-triage-server/internal/domain"
)

func testRecord(id string, level domain.TriageLevel) *domain.TriageRecord {
	return &domain.TriageRecord{
		ID:          id,
		Level:       level,
		Disposition: level.Disposition(),
		Reasons:     []string{domain.ReasonDefaultGreen},
		EvaluatedAt: time.Now().UTC(),
	}
}

func TestMemoryCache_PutGet(t *testing.T) {
	c, err := NewMemoryCache(4, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	c.Put(ctx, testRecord("a", domain.GREEN))

	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestMemoryCache_EvictsOldest(t *testing.T) {
	c, err := NewMemoryCache(2, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	c.Put(ctx, testRecord("a", domain.GREEN))
	c.Put(ctx, testRecord("b", domain.YELLOW))
	c.Put(ctx, testRecord("c", domain.RED))

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok, "oldest entry should be evicted at capacity")
	assert.Equal(t, 2, c.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	c, err := NewMemoryCache(4, 20*time.Millisecond)
	require.NoError(t, err)
	ctx := context.Background()

	c.Put(ctx, testRecord("a", domain.GREEN))
	time.Sleep(40 * time.Millisecond)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok, "expired entry should not be served")
}

func TestMemoryCache_IgnoresUnidentifiedRecords(t *testing.T) {
	c, err := NewMemoryCache(4, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	c.Put(ctx, nil)
	c.Put(ctx, &domain.TriageRecord{Level: domain.GREEN})

	assert.Zero(t, c.Len())
}

func TestNewMemoryCache_RejectsNonPositiveSize(t *testing.T) {
	_, err := NewMemoryCache(0, time.Minute)
	assert.Error(t, err)
}
