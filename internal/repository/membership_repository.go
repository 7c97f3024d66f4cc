package repository

import (
	"context"
	"fmt"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
)

// MembershipRepository reads memberships through the guarded store.
type MembershipRepository struct {
	store *tenancy.GuardedStore
}

// NewMembershipRepository constructs the repository.
func NewMembershipRepository(gs *tenancy.GuardedStore) *MembershipRepository {
	return &MembershipRepository{store: gs}
}

// FindForUser returns the caller's membership in a school, or nil when none
// exists.
func (r *MembershipRepository) FindForUser(ctx context.Context, p tenancy.Principal, schoolID, email string) (*models.Membership, error) {
	records, err := r.store.List(ctx, p, models.EntityMembership, store.Query{
		Filter: store.Record{
			store.FieldSchoolID:  schoolID,
			store.FieldUserEmail: email,
		},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("find membership: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	var membership models.Membership
	if err := decodeRecord(records[0], &membership); err != nil {
		return nil, err
	}
	return &membership, nil
}

// ListForUser returns every membership a user holds across schools. This is a
// self-scoped bootstrap lookup, legal before a school is selected.
func (r *MembershipRepository) ListForUser(ctx context.Context, p tenancy.Principal, email string) ([]models.Membership, error) {
	records, err := r.store.List(ctx, p, models.EntityMembership, store.Query{
		Filter: store.Record{store.FieldUserEmail: email},
	})
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	return decodeAll[models.Membership](records)
}

// Create provisions a membership. Duplicate (school, user) pairs surface as
// store.ErrDuplicate.
func (r *MembershipRepository) Create(ctx context.Context, p tenancy.Principal, membership *models.Membership) error {
	rec, err := encodeRecord(membership)
	if err != nil {
		return err
	}
	created, err := r.store.Create(ctx, p, models.EntityMembership, rec)
	if err != nil {
		return err
	}
	return decodeRecord(created, membership)
}
