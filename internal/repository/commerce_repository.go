package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
)

// ErrAlreadyRedeemed signals a redemption record that already exists for the
// transaction.
var ErrAlreadyRedeemed = errors.New("coupon already redeemed for transaction")

// CommerceRepository persists offers, coupons, redemptions and transactions.
type CommerceRepository struct {
	store *tenancy.GuardedStore
}

// NewCommerceRepository constructs the repository.
func NewCommerceRepository(gs *tenancy.GuardedStore) *CommerceRepository {
	return &CommerceRepository{store: gs}
}

// FindOffer returns an offer visible to the caller.
func (r *CommerceRepository) FindOffer(ctx context.Context, p tenancy.Principal, id string) (*models.Offer, error) {
	rec, err := r.store.Get(ctx, p, models.EntityOffer, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offer not found")
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}
	var offer models.Offer
	if err := decodeRecord(rec, &offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

// ListOfferCourses resolves the course ids an offer unlocks via the join
// table.
func (r *CommerceRepository) ListOfferCourses(ctx context.Context, p tenancy.Principal, schoolID, offerID string) ([]string, error) {
	records, err := r.store.List(ctx, p, models.EntityOfferCourse, store.Query{
		Filter: store.Record{
			store.FieldSchoolID: schoolID,
			"offer_id":          offerID,
		},
		Limit: store.MaxLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list offer courses: %w", err)
	}
	joins, err := decodeAll[models.OfferCourse](records)
	if err != nil {
		return nil, err
	}
	courseIDs := make([]string, 0, len(joins))
	for _, j := range joins {
		if j.CourseID != "" {
			courseIDs = append(courseIDs, j.CourseID)
		}
	}
	return courseIDs, nil
}

// FindCouponByCode looks up an active-or-not coupon by its code,
// case-insensitively.
func (r *CommerceRepository) FindCouponByCode(ctx context.Context, p tenancy.Principal, schoolID, code string) (*models.Coupon, error) {
	records, err := r.store.List(ctx, p, models.EntityCoupon, store.Query{
		Filter: store.Record{store.FieldSchoolID: schoolID},
		Limit:  store.MaxLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	coupons, err := decodeAll[models.Coupon](records)
	if err != nil {
		return nil, err
	}
	for i := range coupons {
		if strings.EqualFold(coupons[i].Code, code) {
			return &coupons[i], nil
		}
	}
	return nil, nil
}

// CreateRedemption records a coupon redemption keyed by (school,
// transaction). An existing record maps to ErrAlreadyRedeemed.
func (r *CommerceRepository) CreateRedemption(ctx context.Context, p tenancy.Principal, redemption *models.CouponRedemption) error {
	existing, err := r.store.List(ctx, p, models.EntityCouponRedemption, store.Query{
		Filter: store.Record{
			store.FieldSchoolID: redemption.SchoolID,
			"transaction_id":    redemption.TransactionID,
		},
		Limit: 1,
	})
	if err != nil {
		return fmt.Errorf("check redemption: %w", err)
	}
	if len(existing) > 0 {
		return ErrAlreadyRedeemed
	}
	rec, err := encodeRecord(redemption)
	if err != nil {
		return err
	}
	created, err := r.store.Create(ctx, p, models.EntityCouponRedemption, rec)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return ErrAlreadyRedeemed
		}
		return fmt.Errorf("create redemption: %w", err)
	}
	return decodeRecord(created, redemption)
}

// IncrementCouponUsage bumps usage_count after the first redemption.
func (r *CommerceRepository) IncrementCouponUsage(ctx context.Context, p tenancy.Principal, coupon *models.Coupon) error {
	_, err := r.store.Update(ctx, p, models.EntityCoupon, coupon.ID, store.Record{
		"usage_count": coupon.UsageCount + 1,
	})
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	coupon.UsageCount++
	return nil
}

// FindTransaction returns a checkout transaction visible to the caller.
func (r *CommerceRepository) FindTransaction(ctx context.Context, p tenancy.Principal, id string) (*models.Transaction, error) {
	rec, err := r.store.Get(ctx, p, models.EntityTransaction, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found")
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	var tx models.Transaction
	if err := decodeRecord(rec, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// CreateTransaction records a checkout attempt.
func (r *CommerceRepository) CreateTransaction(ctx context.Context, p tenancy.Principal, tx *models.Transaction) error {
	rec, err := encodeRecord(tx)
	if err != nil {
		return err
	}
	created, err := r.store.Create(ctx, p, models.EntityTransaction, rec)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return decodeRecord(created, tx)
}

// UpdateTransactionStatus moves a transaction through its lifecycle.
func (r *CommerceRepository) UpdateTransactionStatus(ctx context.Context, p tenancy.Principal, id string, status models.TransactionStatus) error {
	_, err := r.store.Update(ctx, p, models.EntityTransaction, id, store.Record{
		"status": string(status),
	})
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	return nil
}
