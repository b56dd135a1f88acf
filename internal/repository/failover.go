package repository

import (
	"context"
	"sync/atomic"
	"time"

	"fairway/internal/domain"
	"fairway/internal/models"

	"github.com/rs/zerolog"
)

// FailoverAvailabilityCache serves from redis while it is healthy and drops
// to the in-memory cache when it is not, probing the primary again after a
// minute.
type FailoverAvailabilityCache struct {
	primary   domain.AvailabilityCache
	fallback  domain.AvailabilityCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverAvailabilityCache(primary, fallback domain.AvailabilityCache, logger *zerolog.Logger) *FailoverAvailabilityCache {
	return &FailoverAvailabilityCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverAvailabilityCache) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary availability cache failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck = time.Now()
}

func (r *FailoverAvailabilityCache) GetDay(ctx context.Context, bayID int64, date string) (*models.DayAvailability, error) {
	if !r.isDown.Load() {
		snapshot, err := r.primary.GetDay(ctx, bayID, date)
		if err == nil {
			return snapshot, nil
		}
		r.markDown(err)
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		snapshot, err := r.primary.GetDay(ctx, bayID, date)
		if err == nil {
			r.isDown.Store(false)
			return snapshot, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetDay(ctx, bayID, date)
}

func (r *FailoverAvailabilityCache) SetDay(ctx context.Context, snapshot *models.DayAvailability) error {
	if !r.isDown.Load() {
		err := r.primary.SetDay(ctx, snapshot)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetDay(ctx, snapshot)
}

func (r *FailoverAvailabilityCache) InvalidateDay(ctx context.Context, bayID int64, date string) error {
	if !r.isDown.Load() {
		err := r.primary.InvalidateDay(ctx, bayID, date)
		if err == nil {
			// Keep the fallback coherent in case reads drop to it later.
			_ = r.fallback.InvalidateDay(ctx, bayID, date)
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.InvalidateDay(ctx, bayID, date)
}

func (r *FailoverAvailabilityCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
