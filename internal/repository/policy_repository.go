package repository

import (
	"context"
	"fmt"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
)

// PolicyRepository reads per-school content protection policies.
type PolicyRepository struct {
	store *tenancy.GuardedStore
}

// NewPolicyRepository constructs the repository.
func NewPolicyRepository(gs *tenancy.GuardedStore) *PolicyRepository {
	return &PolicyRepository{store: gs}
}

// FindBySchool returns the school's policy row, or nil when none exists (the
// caller applies the hard-coded default).
func (r *PolicyRepository) FindBySchool(ctx context.Context, p tenancy.Principal, schoolID string) (*models.ContentProtectionPolicy, error) {
	records, err := r.store.List(ctx, p, models.EntityProtectionPolicy, store.Query{
		Filter: store.Record{store.FieldSchoolID: schoolID},
		Sort:   "-updated_date",
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("find protection policy: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	var policy models.ContentProtectionPolicy
	if err := decodeRecord(records[0], &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}
