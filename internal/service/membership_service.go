package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
)

type membershipRepository interface {
	FindForUser(ctx context.Context, p tenancy.Principal, schoolID, email string) (*models.Membership, error)
	ListForUser(ctx context.Context, p tenancy.Principal, email string) ([]models.Membership, error)
}

// MembershipService resolves tenant membership and staff-ness.
type MembershipService struct {
	repo   membershipRepository
	logger *zap.Logger
}

// NewMembershipService constructs the resolver.
func NewMembershipService(repo membershipRepository, logger *zap.Logger) *MembershipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipService{repo: repo, logger: logger}
}

// Resolve returns the user's membership in a school, or nil when none exists.
// Lookup failures degrade to nil: a caller without resolvable membership is
// treated as a non-member, never granted access by accident.
func (s *MembershipService) Resolve(ctx context.Context, p tenancy.Principal, schoolID, email string) *models.Membership {
	if schoolID == "" || email == "" {
		return nil
	}
	membership, err := s.repo.FindForUser(ctx, p, schoolID, email)
	if err != nil {
		s.logger.Warn("membership lookup failed", zap.String("school_id", schoolID), zap.Error(err))
		return nil
	}
	return membership
}

// IsStaff reports whether the membership's role bypasses content gating.
func (s *MembershipService) IsStaff(membership *models.Membership) bool {
	return membership != nil && membership.Role.IsStaff()
}

// ListForUser returns every membership a user holds (bootstrap lookup).
func (s *MembershipService) ListForUser(ctx context.Context, p tenancy.Principal, email string) ([]models.Membership, error) {
	return s.repo.ListForUser(ctx, p, email)
}
