// Package store implements the generic entity store the platform core runs
// on: JSON-ish records addressed by (entity type, id), with filtered list,
// create, update and delete. Production uses the Postgres backend; the memory
// backend is a single-process development double.
package store

import (
	"context"
	"errors"
)

// Record is one stored entity payload. Tenant-scoped records carry their
// school id under the "school_id" field.
type Record = map[string]interface{}

// Well-known record fields.
const (
	FieldID          = "id"
	FieldSchoolID    = "school_id"
	FieldUserEmail   = "user_email"
	FieldCreatedDate = "created_date"
	FieldUpdatedDate = "updated_date"
)

// List limits: callers get DefaultLimit records unless they ask for more, and
// never more than MaxLimit.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Query captures list criteria. Filter supports exact matches plus the $in,
// $ne and $or operators. Sort names a field, with a leading '-' for
// descending order.
type Query struct {
	Filter Record
	Sort   string
	Limit  int
}

var (
	// ErrNotFound is returned for updates/gets of absent records.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a create violates a uniqueness
	// constraint; issuers treat it as "already exists".
	ErrDuplicate = errors.New("store: duplicate record")
)

// Store is the entity store contract the access-control core consumes.
type Store interface {
	List(ctx context.Context, entityType string, q Query) ([]Record, error)
	Get(ctx context.Context, entityType, id string) (Record, error)
	Create(ctx context.Context, entityType string, rec Record) (Record, error)
	Update(ctx context.Context, entityType, id string, patch Record) (Record, error)
	Delete(ctx context.Context, entityType, id string) (bool, error)
}

// ClampLimit applies the default and maximum list limits.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
