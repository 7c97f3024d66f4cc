package repository

import (
	"context"
	"fmt"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
)

// AuditRepository appends privileged-action records. Write-only from the
// core's perspective.
type AuditRepository struct {
	store *tenancy.GuardedStore
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(gs *tenancy.GuardedStore) *AuditRepository {
	return &AuditRepository{store: gs}
}

// CreateAuditLog appends an audit entry.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, p tenancy.Principal, entry *models.AuditLog) error {
	rec, err := encodeRecord(entry)
	if err != nil {
		return err
	}
	if _, err := r.store.Create(ctx, p, models.EntityAuditLog, rec); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
