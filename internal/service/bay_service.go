package service

import (
	"context"
	"time"

	"fairway/internal/domain"
	"fairway/internal/events"
	"fairway/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BayService struct {
	repo     domain.Repository
	cache    domain.AvailabilityCache
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewBayService(repo domain.Repository, cache domain.AvailabilityCache, eventBus domain.EventPublisher, logger *zerolog.Logger) *BayService {
	return &BayService{
		repo:     repo,
		cache:    cache,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *BayService) GetBays(ctx context.Context) ([]*models.Bay, error) {
	return s.repo.GetBays(ctx)
}

func (s *BayService) GetBayByID(ctx context.Context, id int64) (*models.Bay, error) {
	return s.repo.GetBayByID(ctx, id)
}

// SetMaintenance toggles a bay's maintenance flag. Existing bookings on the
// bay are left standing; only new bookings are rejected while flagged.
func (s *BayService) SetMaintenance(ctx context.Context, bayID int64, on bool, actor models.Actor) error {
	bay, err := s.repo.GetBayByID(ctx, bayID)
	if err != nil {
		return err
	}

	action := models.AuditActionUpdate
	audit := &models.AuditEntry{
		EntryID:       uuid.NewString(),
		Action:        action,
		ActorID:       actor.ID,
		ActorName:     actor.Name,
		Timestamp:     time.Now(),
		ObjectType:    models.ObjectTypeBay,
		ObjectID:      bayID,
		ObjectName:    bay.Name,
		PreviousValue: models.EncodeDiff(map[string]any{"status": bay.Status}),
	}
	// The store fills NewValue with the post-transition status, since on the
	// clear path that status is only recomputed inside the transaction.

	if err := s.repo.SetBayMaintenance(ctx, bayID, on, audit); err != nil {
		return err
	}

	eventType := events.EventBayMaintenanceSet
	status := models.BayStatusMaintenance
	if !on {
		eventType = events.EventBayMaintenanceCleared
		updated, err := s.repo.GetBayByID(ctx, bayID)
		if err == nil {
			status = updated.Status
		}
	}

	if s.eventBus != nil {
		payload := events.BayEventPayload{
			BayID:     bayID,
			BayName:   bay.Name,
			Status:    status,
			ActorID:   actor.ID,
			ActorName: actor.Name,
		}
		if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
			s.logger.Error().Err(err).Str("event_type", eventType).Int64("bay_id", bayID).Msg("publish event error")
		}
	}

	s.logger.Info().Int64("bay_id", bayID).Bool("maintenance", on).Msg("bay maintenance toggled")
	return nil
}
