package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-memory fallback used for local development and tests.
// It is process-wide state behind a single mutex: good enough for one dev
// process, not a production store. It cannot provide the uniqueness
// constraints the Postgres backend uses to harden idempotent issuance, so the
// uniqueKeys table below emulates them.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]map[string]Record // entityType -> id -> record
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[string]Record)}
}

// uniqueKeys mirrors the partial unique indexes of the Postgres backend:
// entity types whose records must be unique per the listed field tuple.
var uniqueKeys = map[string][]string{
	"Entitlement":      {FieldSchoolID, FieldUserEmail, "type", "course_id", "source_id"},
	"CouponRedemption": {FieldSchoolID, "transaction_id"},
	"Membership":       {FieldSchoolID, FieldUserEmail},
}

// List returns records matching the query, sorted and clamped.
func (s *MemoryStore) List(_ context.Context, entityType string, q Query) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, rec := range s.records[entityType] {
		if Matches(rec, q.Filter) {
			out = append(out, cloneRecord(rec))
		}
	}
	SortRecords(out, q.Sort)
	limit := ClampLimit(q.Limit)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns a record by id.
func (s *MemoryStore) Get(_ context.Context, entityType, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[entityType][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

// Create stores a new record, assigning an id and stamping timestamps when
// absent. Violating an emulated uniqueness constraint returns ErrDuplicate.
func (s *MemoryStore) Create(_ context.Context, entityType string, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneRecord(rec)
	if _, ok := stored[FieldID].(string); !ok || stored[FieldID] == "" {
		stored[FieldID] = uuid.NewString()
	}
	now := time.Now().UTC()
	if _, ok := stored[FieldCreatedDate]; !ok {
		stored[FieldCreatedDate] = now
	}
	stored[FieldUpdatedDate] = now

	if fields, ok := uniqueKeys[entityType]; ok {
		for _, existing := range s.records[entityType] {
			if sameKey(existing, stored, fields) {
				return nil, ErrDuplicate
			}
		}
	}

	if s.records[entityType] == nil {
		s.records[entityType] = make(map[string]Record)
	}
	id := stored[FieldID].(string)
	s.records[entityType][id] = stored
	return cloneRecord(stored), nil
}

// Update merges the patch into an existing record.
func (s *MemoryStore) Update(_ context.Context, entityType, id string, patch Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[entityType][id]
	if !ok {
		return nil, ErrNotFound
	}
	for k, v := range patch {
		if k == FieldID || k == FieldCreatedDate {
			continue
		}
		rec[k] = v
	}
	rec[FieldUpdatedDate] = time.Now().UTC()
	return cloneRecord(rec), nil
}

// Delete removes a record, reporting whether it existed.
func (s *MemoryStore) Delete(_ context.Context, entityType, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[entityType][id]; !ok {
		return false, nil
	}
	delete(s.records[entityType], id)
	return true, nil
}

func sameKey(a, b Record, fields []string) bool {
	for _, f := range fields {
		if !valuesEqual(a[f], b[f]) {
			return false
		}
	}
	return true
}

func cloneRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
