package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresStore persists entities in a single table:
//
//	entities(entity_type, id, school_id, user_email, data jsonb,
//	         created_date, updated_date)
//
// Partial unique indexes on (entity_type, school_id, user_email, data->>'type',
// data->>'course_id', data->>'source_id') for Entitlement and on
// (entity_type, school_id, data->>'transaction_id') for CouponRedemption make
// issuance and coupon redemption safe under concurrent webhook retries; a
// violation surfaces as ErrDuplicate.
//
// SQL narrows by entity type plus tenant/user equality; the full filter
// predicate (including $in/$ne/$or) is applied in Go before sort and limit.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore constructs the store.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const pqUniqueViolation = "23505"

const listQuery = `SELECT data FROM entities WHERE entity_type = $1
	AND ($2 = '' OR school_id = $2)
	AND ($3 = '' OR user_email = $3)
	ORDER BY created_date ASC`

// List returns records matching the query.
func (s *PostgresStore) List(ctx context.Context, entityType string, q Query) ([]Record, error) {
	schoolEq := plainString(q.Filter, FieldSchoolID)
	emailEq := plainString(q.Filter, FieldUserEmail)

	rows, err := s.db.QueryxContext(ctx, listQuery, entityType, schoolEq, emailEq)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", entityType, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", entityType, err)
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", entityType, err)
		}
		if Matches(rec, q.Filter) {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", entityType, err)
	}

	SortRecords(out, q.Sort)
	limit := ClampLimit(q.Limit)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns a record by id.
func (s *PostgresStore) Get(ctx context.Context, entityType, id string) (Record, error) {
	const query = `SELECT data FROM entities WHERE entity_type = $1 AND id = $2`
	var raw []byte
	if err := s.db.GetContext(ctx, &raw, query, entityType, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", entityType, id, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", entityType, id, err)
	}
	return rec, nil
}

// Create inserts a record, assigning an id and stamping timestamps when
// absent.
func (s *PostgresStore) Create(ctx context.Context, entityType string, rec Record) (Record, error) {
	stored := cloneRecord(rec)
	id, _ := stored[FieldID].(string)
	if id == "" {
		id = uuid.NewString()
		stored[FieldID] = id
	}
	now := time.Now().UTC()
	if _, ok := stored[FieldCreatedDate]; !ok {
		stored[FieldCreatedDate] = now.Format(time.RFC3339Nano)
	}
	stored[FieldUpdatedDate] = now.Format(time.RFC3339Nano)

	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", entityType, err)
	}

	const query = `INSERT INTO entities (entity_type, id, school_id, user_email, data, created_date, updated_date)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`
	schoolID, _ := stored[FieldSchoolID].(string)
	email, _ := stored[FieldUserEmail].(string)
	if _, err := s.db.ExecContext(ctx, query, entityType, id, schoolID, email, payload, now); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create %s: %w", entityType, err)
	}
	return stored, nil
}

// Update merges the patch into the stored record.
func (s *PostgresStore) Update(ctx context.Context, entityType, id string, patch Record) (Record, error) {
	rec, err := s.Get(ctx, entityType, id)
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		if k == FieldID || k == FieldCreatedDate {
			continue
		}
		rec[k] = v
	}
	now := time.Now().UTC()
	rec[FieldUpdatedDate] = now.Format(time.RFC3339Nano)

	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode %s/%s: %w", entityType, id, err)
	}
	const query = `UPDATE entities SET data = $3, school_id = $4, user_email = $5, updated_date = $6
		WHERE entity_type = $1 AND id = $2`
	schoolID, _ := rec[FieldSchoolID].(string)
	email, _ := rec[FieldUserEmail].(string)
	res, err := s.db.ExecContext(ctx, query, entityType, id, payload, schoolID, email, now)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", entityType, id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Delete removes a record, reporting whether it existed.
func (s *PostgresStore) Delete(ctx context.Context, entityType, id string) (bool, error) {
	const query = `DELETE FROM entities WHERE entity_type = $1 AND id = $2`
	res, err := s.db.ExecContext(ctx, query, entityType, id)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", entityType, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, nil
	}
	return affected > 0, nil
}

// plainString extracts a filter value only when it is a plain string equality
// match, never an operator map.
func plainString(filter Record, key string) string {
	if filter == nil {
		return ""
	}
	if v, ok := filter[key].(string); ok {
		return v
	}
	return ""
}
