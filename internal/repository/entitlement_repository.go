package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
)

// ErrAlreadyGranted signals a create that collided with an existing grant for
// the same (school, user, type, course, source) tuple. Issuers treat it as a
// skip, not a failure.
var ErrAlreadyGranted = errors.New("entitlement already granted")

// EntitlementRepository persists grants through the guarded store.
type EntitlementRepository struct {
	store *tenancy.GuardedStore
}

// NewEntitlementRepository constructs the repository.
func NewEntitlementRepository(gs *tenancy.GuardedStore) *EntitlementRepository {
	return &EntitlementRepository{store: gs}
}

// ListForUser returns all grants a user holds in a school, active or not.
func (r *EntitlementRepository) ListForUser(ctx context.Context, p tenancy.Principal, schoolID, email string) ([]models.Entitlement, error) {
	records, err := r.store.List(ctx, p, models.EntityEntitlement, store.Query{
		Filter: store.Record{
			store.FieldSchoolID:  schoolID,
			store.FieldUserEmail: email,
		},
		Limit: store.MaxLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list entitlements: %w", err)
	}
	return decodeAll[models.Entitlement](records)
}

// ListBySource returns grants produced by one source transaction, the
// idempotency read of the issuer.
func (r *EntitlementRepository) ListBySource(ctx context.Context, p tenancy.Principal, schoolID, email, sourceID string) ([]models.Entitlement, error) {
	records, err := r.store.List(ctx, p, models.EntityEntitlement, store.Query{
		Filter: store.Record{
			store.FieldSchoolID:  schoolID,
			store.FieldUserEmail: email,
			"source_id":          sourceID,
		},
		Limit: store.MaxLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list entitlements by source: %w", err)
	}
	return decodeAll[models.Entitlement](records)
}

// Create persists a grant. A uniqueness violation in the backing store maps to
// ErrAlreadyGranted, closing the read-then-write race under concurrent webhook
// retries.
func (r *EntitlementRepository) Create(ctx context.Context, p tenancy.Principal, e *models.Entitlement) error {
	rec, err := encodeRecord(e)
	if err != nil {
		return err
	}
	created, err := r.store.Create(ctx, p, models.EntityEntitlement, rec)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return ErrAlreadyGranted
		}
		return fmt.Errorf("create entitlement: %w", err)
	}
	return decodeRecord(created, e)
}

// Revoke marks a grant revoked. Grants are never physically deleted.
func (r *EntitlementRepository) Revoke(ctx context.Context, p tenancy.Principal, id string) error {
	_, err := r.store.Update(ctx, p, models.EntityEntitlement, id, store.Record{
		"status": string(models.EntitlementRevoked),
	})
	if err != nil {
		return fmt.Errorf("revoke entitlement: %w", err)
	}
	return nil
}
