package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/repository"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
)

type commerceRepository interface {
	FindOffer(ctx context.Context, p tenancy.Principal, id string) (*models.Offer, error)
	FindCouponByCode(ctx context.Context, p tenancy.Principal, schoolID, code string) (*models.Coupon, error)
	CreateRedemption(ctx context.Context, p tenancy.Principal, redemption *models.CouponRedemption) error
	IncrementCouponUsage(ctx context.Context, p tenancy.Principal, coupon *models.Coupon) error
	FindTransaction(ctx context.Context, p tenancy.Principal, id string) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, p tenancy.Principal, tx *models.Transaction) error
	UpdateTransactionStatus(ctx context.Context, p tenancy.Principal, id string, status models.TransactionStatus) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, p tenancy.Principal, entry *models.AuditLog) error
}

// CheckoutRequest starts a checkout for one offer, optionally with a coupon.
type CheckoutRequest struct {
	OfferID    string `json:"offer_id" binding:"required"`
	CouponCode string `json:"coupon_code"`
}

// CheckoutResult is the priced, pending transaction returned to the client.
type CheckoutResult struct {
	Transaction models.Transaction `json:"transaction"`
	Discount    int64              `json:"discount_cents"`
	Total       int64              `json:"total_cents"`
}

// WebhookEvent is the payment-processor callback payload.
type WebhookEvent struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	Status        string `json:"status" binding:"required"`
}

// CheckoutService prices offers, redeems coupons once per transaction, and
// turns paid transactions into entitlement grants.
type CheckoutService struct {
	repo         commerceRepository
	entitlements *EntitlementService
	audit        auditWriter
	metrics      *MetricsService
	logger       *zap.Logger
	now          func() time.Time
}

// NewCheckoutService constructs the service.
func NewCheckoutService(repo commerceRepository, entitlements *EntitlementService, audit auditWriter, metrics *MetricsService, logger *zap.Logger) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		repo:         repo,
		entitlements: entitlements,
		audit:        audit,
		metrics:      metrics,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Discount computes the coupon's value in cents against a price. A coupon that
// is nil or no longer usable yields zero, never an error.
func Discount(coupon *models.Coupon, priceCents int64, now time.Time) int64 {
	if coupon == nil || !coupon.Usable(now) {
		return 0
	}
	var discount int64
	switch coupon.DiscountType {
	case models.DiscountPercentage:
		discount = int64(math.Round(float64(priceCents) * coupon.Value / 100))
	case models.DiscountAmount:
		discount = int64(math.Round(coupon.Value * 100))
	default:
		return 0
	}
	if discount < 0 {
		return 0
	}
	if discount > priceCents {
		return priceCents
	}
	return discount
}

// Begin prices an offer for the caller and records a pending transaction. A
// free (fully discounted or zero-price) checkout is completed inline.
func (s *CheckoutService) Begin(ctx context.Context, p tenancy.Principal, req CheckoutRequest) (*CheckoutResult, error) {
	offer, err := s.repo.FindOffer(ctx, p, req.OfferID)
	if err != nil {
		return nil, err
	}
	if !offer.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "offer is not available for purchase")
	}

	now := s.now()
	var coupon *models.Coupon
	if req.CouponCode != "" {
		coupon, err = s.repo.FindCouponByCode(ctx, p, offer.SchoolID, req.CouponCode)
		if err != nil {
			return nil, err
		}
	}

	discount := Discount(coupon, offer.PriceCents, now)
	total := offer.PriceCents - discount

	tx := models.Transaction{
		SchoolID:      offer.SchoolID,
		OfferID:       offer.ID,
		UserEmail:     p.Email,
		AmountCents:   total,
		DiscountCents: discount,
		Status:        models.TransactionPending,
	}
	if coupon != nil && discount > 0 {
		tx.CouponCode = coupon.Code
	}
	if err := s.repo.CreateTransaction(ctx, p, &tx); err != nil {
		return nil, err
	}

	if coupon != nil && discount > 0 {
		s.redeem(ctx, p, coupon, &tx)
	}

	if total == 0 {
		if err := s.settle(ctx, p, &tx, offer); err != nil {
			return nil, err
		}
	}

	return &CheckoutResult{Transaction: tx, Discount: discount, Total: total}, nil
}

// Complete settles a pending transaction synchronously (card captured in the
// same request) and issues the grants it pays for.
func (s *CheckoutService) Complete(ctx context.Context, p tenancy.Principal, transactionID string) (*IssueResult, error) {
	tx, err := s.repo.FindTransaction(ctx, p, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.UserEmail != p.Email {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "transaction belongs to another user")
	}
	offer, err := s.repo.FindOffer(ctx, p, tx.OfferID)
	if err != nil {
		return nil, err
	}
	if err := s.settle(ctx, p, tx, offer); err != nil {
		return nil, err
	}
	return s.issue(ctx, p, tx, offer, models.SourcePurchase)
}

// HandleWebhook applies a payment-processor status callback. Paid transactions
// trigger entitlement issuance; repeated callbacks are harmless because the
// issuer is idempotent per source transaction.
func (s *CheckoutService) HandleWebhook(ctx context.Context, p tenancy.Principal, event WebhookEvent) (*IssueResult, error) {
	tx, err := s.repo.FindTransaction(ctx, p, event.TransactionID)
	if err != nil {
		return nil, err
	}

	switch models.TransactionStatus(event.Status) {
	case models.TransactionPaid:
		offer, err := s.repo.FindOffer(ctx, p, tx.OfferID)
		if err != nil {
			return nil, err
		}
		if err := s.settle(ctx, p, tx, offer); err != nil {
			return nil, err
		}
		return s.issue(ctx, p, tx, offer, models.SourceWebhook)
	case models.TransactionFailed:
		if err := s.repo.UpdateTransactionStatus(ctx, p, tx.ID, models.TransactionFailed); err != nil {
			return nil, err
		}
		return &IssueResult{}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidPayload, "unknown transaction status")
	}
}

// settle marks the transaction paid and issues grants for inline (free)
// completions.
func (s *CheckoutService) settle(ctx context.Context, p tenancy.Principal, tx *models.Transaction, offer *models.Offer) error {
	if tx.Status != models.TransactionPaid {
		if err := s.repo.UpdateTransactionStatus(ctx, p, tx.ID, models.TransactionPaid); err != nil {
			return err
		}
		tx.Status = models.TransactionPaid
	}
	if tx.AmountCents == 0 {
		if _, err := s.issue(ctx, p, tx, offer, models.SourcePurchase); err != nil {
			return err
		}
	}
	return nil
}

func (s *CheckoutService) issue(ctx context.Context, p tenancy.Principal, tx *models.Transaction, offer *models.Offer, source models.EntitlementSource) (*IssueResult, error) {
	result, err := s.entitlements.IssueForOffer(ctx, p, offer, tx.UserEmail, source, tx.ID, nil)
	if err != nil {
		return nil, err
	}
	if len(result.Created) > 0 {
		s.writeAudit(ctx, p, &models.AuditLog{
			SchoolID:   tx.SchoolID,
			UserEmail:  tx.UserEmail,
			Action:     models.AuditActionIssuance,
			Resource:   models.EntityTransaction,
			ResourceID: tx.ID,
		})
	}
	return result, nil
}

// redeem records the coupon redemption once per transaction and bumps usage on
// the first one. Failures are logged, not surfaced: the buyer already has
// their price.
func (s *CheckoutService) redeem(ctx context.Context, p tenancy.Principal, coupon *models.Coupon, tx *models.Transaction) {
	redemption := models.CouponRedemption{
		SchoolID:      tx.SchoolID,
		CouponID:      coupon.ID,
		TransactionID: tx.ID,
		UserEmail:     tx.UserEmail,
	}
	err := s.repo.CreateRedemption(ctx, p, &redemption)
	if errors.Is(err, repository.ErrAlreadyRedeemed) {
		return
	}
	if err != nil {
		s.logger.Warn("coupon redemption write failed",
			zap.String("coupon_id", coupon.ID),
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
		return
	}
	if err := s.repo.IncrementCouponUsage(ctx, p, coupon); err != nil {
		s.logger.Warn("coupon usage increment failed", zap.String("coupon_id", coupon.ID), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordCouponRedemption()
	}
	s.writeAudit(ctx, p, &models.AuditLog{
		SchoolID:   tx.SchoolID,
		UserEmail:  tx.UserEmail,
		Action:     models.AuditActionRedemption,
		Resource:   models.EntityCoupon,
		ResourceID: coupon.ID,
		Detail:     coupon.Code,
	})
}

func (s *CheckoutService) writeAudit(ctx context.Context, p tenancy.Principal, entry *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, p, entry); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", entry.Action), zap.Error(err))
	}
}
