package tenancy

import (
	"context"
	"strings"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
)

// GuardedStore wraps an entity store so every operation passes the tenancy
// guard. It is the only store handle handed to repositories and handlers; the
// raw store never leaves the composition root.
type GuardedStore struct {
	inner store.Store
	guard *Guard
}

// NewGuardedStore wraps the store.
func NewGuardedStore(inner store.Store, guard *Guard) *GuardedStore {
	return &GuardedStore{inner: inner, guard: guard}
}

// Guard exposes the underlying guard for predicate checks.
func (s *GuardedStore) Guard() *Guard {
	return s.guard
}

// List runs a scoped list. Blocked reads return an empty slice, never an
// error.
func (s *GuardedStore) List(ctx context.Context, p Principal, entityType string, q store.Query) ([]store.Record, error) {
	decision := s.guard.ScopeRead(entityType, q.Filter, p)
	if !decision.Allowed {
		return []store.Record{}, nil
	}
	q.Filter = decision.Filter
	return s.inner.List(ctx, entityType, q)
}

// Get fetches by id and re-checks visibility of the fetched row: a record in
// a foreign tenant reads as not found.
func (s *GuardedStore) Get(ctx context.Context, p Principal, entityType, id string) (store.Record, error) {
	rec, err := s.inner.Get(ctx, entityType, id)
	if err != nil {
		return nil, err
	}
	if s.visible(entityType, rec, p) {
		return rec, nil
	}
	return nil, store.ErrNotFound
}

// Create injects tenant scope and writes. Unscoped creates fail.
func (s *GuardedStore) Create(ctx context.Context, p Principal, entityType string, rec store.Record) (store.Record, error) {
	scoped, err := s.guard.ScopeWrite(entityType, rec, p)
	if err != nil {
		return nil, err
	}
	return s.inner.Create(ctx, entityType, scoped)
}

// Update patches a record the caller can see. The tenant key cannot be moved
// by a patch.
func (s *GuardedStore) Update(ctx context.Context, p Principal, entityType, id string, patch store.Record) (store.Record, error) {
	if _, err := s.Get(ctx, p, entityType, id); err != nil {
		return nil, err
	}
	if patch != nil {
		if _, ok := patch[store.FieldSchoolID]; ok && !s.guard.IsGlobalAdmin(p) {
			patch = cloneFilter(patch)
			delete(patch, store.FieldSchoolID)
		}
	}
	return s.inner.Update(ctx, entityType, id, patch)
}

// Delete removes a record the caller can see.
func (s *GuardedStore) Delete(ctx context.Context, p Principal, entityType, id string) (bool, error) {
	if _, err := s.Get(ctx, p, entityType, id); err != nil {
		if err == store.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return s.inner.Delete(ctx, entityType, id)
}

// AdminList is the explicit global escape hatch: it bypasses tenant scoping
// but re-checks the global-admin predicate at call time.
func (s *GuardedStore) AdminList(ctx context.Context, p Principal, entityType string, q store.Query) ([]store.Record, error) {
	if err := s.guard.AuthorizeAdmin(p); err != nil {
		return nil, err
	}
	return s.inner.List(ctx, entityType, q)
}

// AdminGet fetches any record regardless of tenant, for global admins only.
func (s *GuardedStore) AdminGet(ctx context.Context, p Principal, entityType, id string) (store.Record, error) {
	if err := s.guard.AuthorizeAdmin(p); err != nil {
		return nil, err
	}
	rec, err := s.inner.Get(ctx, entityType, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, appErrors.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *GuardedStore) visible(entityType string, rec store.Record, p Principal) bool {
	switch Classify(entityType) {
	case ScopedGlobal:
		return true
	case ScopedSelf:
		if email, ok := rec[store.FieldUserEmail].(string); ok {
			if !p.Known() || strings.EqualFold(email, p.Email) {
				return true
			}
		}
	}
	schoolID, _ := rec[store.FieldSchoolID].(string)
	if schoolID != "" && schoolID == p.ActiveSchoolID {
		return true
	}
	return s.guard.IsGlobalAdmin(p)
}
