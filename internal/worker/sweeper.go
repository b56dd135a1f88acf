package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// bookingSweeper is the slice of the booking service the sweeper needs.
type bookingSweeper interface {
	SweepExpiredCheckIns(ctx context.Context, now time.Time) (int, error)
}

// Sweeper periodically completes checked-in bookings whose end time has
// passed.
type Sweeper struct {
	bookings bookingSweeper
	interval time.Duration
	logger   *zerolog.Logger
}

func NewSweeper(bookings bookingSweeper, interval time.Duration, logger *zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		bookings: bookings,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the sweep loop until ctx is done. One sweep runs immediately so
// a restart picks up anything that expired while the process was down.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("expiry sweeper started")
	defer s.logger.Info().Msg("expiry sweeper stopped")

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	completed, err := s.bookings.SweepExpiredCheckIns(ctx, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	if completed > 0 {
		s.logger.Info().Int("completed", completed).Msg("expiry sweep completed bookings")
	}
}
