package repository

import (
	"context"
	"sync"
	"time"

	"fairway/internal/models"
)

// MemoryAvailabilityCache is the in-process fallback used when redis is
// unavailable. Entries expire lazily on read.
type MemoryAvailabilityCache struct {
	days       sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

type dayEntry struct {
	snapshot  *models.DayAvailability
	expiresAt time.Time
}

func NewMemoryAvailabilityCache(ttl time.Duration) *MemoryAvailabilityCache {
	if ttl <= 0 {
		ttl = time.Duration(models.DefaultAvailabilityCacheTTL) * time.Second
	}
	return &MemoryAvailabilityCache{
		ttl: ttl,
	}
}

func (r *MemoryAvailabilityCache) GetDay(_ context.Context, bayID int64, date string) (*models.DayAvailability, error) {
	key := dayKey(bayID, date)
	val, ok := r.days.Load(key)
	if !ok {
		return nil, nil
	}
	entry := val.(*dayEntry)
	if time.Now().After(entry.expiresAt) {
		r.days.Delete(key)
		return nil, nil
	}
	return entry.snapshot, nil
}

func (r *MemoryAvailabilityCache) SetDay(_ context.Context, snapshot *models.DayAvailability) error {
	r.days.Store(dayKey(snapshot.BayID, snapshot.Date), &dayEntry{
		snapshot:  snapshot,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryAvailabilityCache) InvalidateDay(_ context.Context, bayID int64, date string) error {
	r.days.Delete(dayKey(bayID, date))
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryAvailabilityCache) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}
