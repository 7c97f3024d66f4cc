package repository

import (
	"encoding/json"
	"fmt"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
)

// normalizer is implemented by models whose string enums must be checked
// against their closed sets after decoding.
type normalizer interface {
	Normalize() error
}

// decodeRecord converts a generic store record into a typed model via a JSON
// round-trip, so model json tags stay the single source of field names.
// Models with closed enums are normalized: a stored value outside the set is
// an explicit error here, never a silently-false comparison downstream.
func decodeRecord(rec store.Record, dest interface{}) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if n, ok := dest.(normalizer); ok {
		if err := n.Normalize(); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
	}
	return nil
}

// decodeAll converts a record slice into typed models.
func decodeAll[T any](records []store.Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		var item T
		if err := decodeRecord(rec, &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// encodeRecord converts a typed model into a generic store record.
func encodeRecord(src interface{}) (store.Record, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	var rec store.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return rec, nil
}
