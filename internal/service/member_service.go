package service

import (
	"context"

	"fairway/internal/domain"
	"fairway/internal/models"

	"github.com/rs/zerolog"
)

// MemberService mirrors the external member directory. Member records are
// written as-is: identity and membership state belong to the directory, the
// engine only reads them.
type MemberService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewMemberService(repo domain.Repository, logger *zerolog.Logger) *MemberService {
	return &MemberService{repo: repo, logger: logger}
}

func (s *MemberService) GetMember(ctx context.Context, id int64) (*models.Member, error) {
	return s.repo.GetMember(ctx, id)
}

func (s *MemberService) GetMembers(ctx context.Context) ([]*models.Member, error) {
	return s.repo.GetMembers(ctx)
}

func (s *MemberService) SaveMember(ctx context.Context, member *models.Member) error {
	if member.Status == "" {
		member.Status = models.MemberStatusActive
	}
	return s.repo.UpsertMember(ctx, member)
}
