package service

import (
	"context"

	"fairway/internal/domain"
	"fairway/internal/models"
)

type AuditService struct {
	repo domain.Repository
}

func NewAuditService(repo domain.Repository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) ListEntries(ctx context.Context, objectType string, objectID int64, limit int) ([]*models.AuditEntry, error) {
	return s.repo.ListAuditEntries(ctx, objectType, objectID, limit)
}
