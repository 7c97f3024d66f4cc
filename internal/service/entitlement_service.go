package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/repository"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
)

type entitlementRepository interface {
	ListForUser(ctx context.Context, p tenancy.Principal, schoolID, email string) ([]models.Entitlement, error)
	ListBySource(ctx context.Context, p tenancy.Principal, schoolID, email, sourceID string) ([]models.Entitlement, error)
	Create(ctx context.Context, p tenancy.Principal, e *models.Entitlement) error
	Revoke(ctx context.Context, p tenancy.Principal, id string) error
}

type offerCourseResolver interface {
	ListOfferCourses(ctx context.Context, p tenancy.Principal, schoolID, offerID string) ([]string, error)
}

// SkippedGrant explains why one grant was not created.
type SkippedGrant struct {
	Type     models.EntitlementType `json:"type"`
	CourseID string                 `json:"course_id,omitempty"`
	Reason   string                 `json:"reason"`
}

// IssueResult reports created and skipped grants for auditing. Partial
// success is legitimate: a bundle may grant some courses and skip others.
type IssueResult struct {
	Created []models.Entitlement `json:"created"`
	Skipped []SkippedGrant       `json:"skipped"`
}

const skipReasonExists = "already_exists"

// EntitlementService is both the entitlement resolver (which grants are in
// effect now) and the issuer (turning a paid offer into grants).
type EntitlementService struct {
	repo    entitlementRepository
	offers  offerCourseResolver
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEntitlementService constructs the service. metrics may be nil.
func NewEntitlementService(repo entitlementRepository, offers offerCourseResolver, metrics *MetricsService, logger *zap.Logger) *EntitlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntitlementService{repo: repo, offers: offers, metrics: metrics, logger: logger}
}

// ActiveForUser returns the user's grants currently in effect, applying the
// single IsActive predicate. Read failures degrade to no grants.
func (s *EntitlementService) ActiveForUser(ctx context.Context, p tenancy.Principal, schoolID, email string, now time.Time) []models.Entitlement {
	all, err := s.repo.ListForUser(ctx, p, schoolID, email)
	if err != nil {
		s.logger.Warn("entitlement lookup failed", zap.String("school_id", schoolID), zap.Error(err))
		return nil
	}
	active := make([]models.Entitlement, 0, len(all))
	for _, e := range all {
		if e.IsActive(now) {
			active = append(active, e)
		}
	}
	return active
}

// ListForUser returns all grants including expired and revoked ones, for the
// account view.
func (s *EntitlementService) ListForUser(ctx context.Context, p tenancy.Principal, schoolID, email string) ([]models.Entitlement, error) {
	return s.repo.ListForUser(ctx, p, schoolID, email)
}

// Revoke marks a grant revoked. The grant fails IsActive from that moment on;
// the row itself is kept.
func (s *EntitlementService) Revoke(ctx context.Context, p tenancy.Principal, id string) error {
	if err := s.repo.Revoke(ctx, p, id); err != nil {
		return err
	}
	s.logger.Info("entitlement revoked", zap.String("entitlement_id", id))
	return nil
}

// IssueForOffer converts a completed or free transaction for an offer into
// entitlement grants, idempotently per source transaction.
func (s *EntitlementService) IssueForOffer(ctx context.Context, p tenancy.Principal, offer *models.Offer, email string, source models.EntitlementSource, sourceID string, endsAt *time.Time) (*IssueResult, error) {
	if offer == nil || email == "" || sourceID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "offer, buyer email and source id are required")
	}

	existing, err := s.repo.ListBySource(ctx, p, offer.SchoolID, email, sourceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to check existing grants")
	}

	result := &IssueResult{Created: []models.Entitlement{}, Skipped: []SkippedGrant{}}
	now := time.Now().UTC()

	switch {
	case offer.OfferType == models.OfferAddon:
		license := offer.LicenseType()
		s.grantOne(ctx, p, result, existing, models.Entitlement{
			SchoolID:  offer.SchoolID,
			UserEmail: email,
			Type:      license,
			StartsAt:  &now,
			EndsAt:    endsAt,
			Status:    models.EntitlementActive,
			Source:    source,
			SourceID:  sourceID,
		})

	case offer.AccessScope == models.ScopeAllCourses || offer.OfferType == models.OfferSubscription:
		s.grantOne(ctx, p, result, existing, models.Entitlement{
			SchoolID:  offer.SchoolID,
			UserEmail: email,
			Type:      models.EntitlementAllCourses,
			StartsAt:  &now,
			EndsAt:    endsAt,
			Status:    models.EntitlementActive,
			Source:    source,
			SourceID:  sourceID,
		})

	default:
		courseIDs, err := s.offers.ListOfferCourses(ctx, p, offer.SchoolID, offer.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to resolve offer courses")
		}
		for _, courseID := range courseIDs {
			s.grantOne(ctx, p, result, existing, models.Entitlement{
				SchoolID:  offer.SchoolID,
				UserEmail: email,
				Type:      models.EntitlementCourse,
				CourseID:  courseID,
				StartsAt:  &now,
				EndsAt:    endsAt,
				Status:    models.EntitlementActive,
				Source:    source,
				SourceID:  sourceID,
			})
		}
	}

	return result, nil
}

// grantOne creates a single entitlement unless an equivalent grant already
// exists for the source transaction. A store-level uniqueness violation also
// counts as existing, so concurrent webhook retries cannot double-grant.
func (s *EntitlementService) grantOne(ctx context.Context, p tenancy.Principal, result *IssueResult, existing []models.Entitlement, grant models.Entitlement) {
	for _, e := range existing {
		if e.Type == grant.Type && e.CourseID == grant.CourseID {
			result.Skipped = append(result.Skipped, SkippedGrant{Type: grant.Type, CourseID: grant.CourseID, Reason: skipReasonExists})
			return
		}
	}
	if err := s.repo.Create(ctx, p, &grant); err != nil {
		if errors.Is(err, repository.ErrAlreadyGranted) {
			result.Skipped = append(result.Skipped, SkippedGrant{Type: grant.Type, CourseID: grant.CourseID, Reason: skipReasonExists})
			return
		}
		s.logger.Error("entitlement create failed",
			zap.String("school_id", grant.SchoolID),
			zap.String("type", string(grant.Type)),
			zap.Error(err),
		)
		result.Skipped = append(result.Skipped, SkippedGrant{Type: grant.Type, CourseID: grant.CourseID, Reason: "store_error"})
		return
	}
	if s.metrics != nil {
		s.metrics.RecordEntitlementIssued(string(grant.Type))
	}
	result.Created = append(result.Created, grant)
}
