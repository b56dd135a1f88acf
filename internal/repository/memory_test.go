package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAvailabilityCache(t *testing.T) {
	cache := NewMemoryAvailabilityCache(time.Hour)
	ctx := context.Background()

	snapshot := sampleSnapshot(1, "2026-03-02")
	require.NoError(t, cache.SetDay(ctx, snapshot))

	got, err := cache.GetDay(ctx, 1, "2026-03-02")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snapshot.Date, got.Date)

	// Miss on an unknown day
	got, err = cache.GetDay(ctx, 1, "2026-03-03")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.InvalidateDay(ctx, 1, "2026-03-02"))
	got, _ = cache.GetDay(ctx, 1, "2026-03-02")
	assert.Nil(t, got)
}

func TestMemoryAvailabilityCacheExpiry(t *testing.T) {
	cache := NewMemoryAvailabilityCache(time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.SetDay(ctx, sampleSnapshot(1, "2026-03-02")))
	time.Sleep(5 * time.Millisecond)

	got, err := cache.GetDay(ctx, 1, "2026-03-02")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryRateLimit(t *testing.T) {
	cache := NewMemoryAvailabilityCache(time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := cache.CheckRateLimit(ctx, "caller", 2, time.Hour)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := cache.CheckRateLimit(ctx, "caller", 2, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different caller has its own window
	allowed, err = cache.CheckRateLimit(ctx, "other", 2, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)
}
