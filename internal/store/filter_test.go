package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesExactAndOperators(t *testing.T) {
	rec := Record{
		"school_id": "s1",
		"status":    "active",
		"price":     float64(1000),
		"level":     3,
	}

	assert.True(t, Matches(rec, nil))
	assert.True(t, Matches(rec, Record{"school_id": "s1"}))
	assert.False(t, Matches(rec, Record{"school_id": "s2"}))

	// JSON widening: int vs float64 compare equal.
	assert.True(t, Matches(rec, Record{"price": 1000}))
	assert.True(t, Matches(rec, Record{"level": float64(3)}))

	assert.True(t, Matches(rec, Record{"status": map[string]interface{}{"$in": []interface{}{"active", "paused"}}}))
	assert.False(t, Matches(rec, Record{"status": map[string]interface{}{"$in": []interface{}{"revoked"}}}))
	assert.True(t, Matches(rec, Record{"status": map[string]interface{}{"$ne": "revoked"}}))
	assert.False(t, Matches(rec, Record{"status": map[string]interface{}{"$ne": "active"}}))

	// Unknown operators never match.
	assert.False(t, Matches(rec, Record{"status": map[string]interface{}{"$gt": "a"}}))
}

func TestMatchesOr(t *testing.T) {
	rec := Record{"type": "COURSE", "course_id": "c1"}
	filter := Record{
		"$or": []interface{}{
			map[string]interface{}{"type": "ALL_COURSES"},
			map[string]interface{}{"type": "COURSE", "course_id": "c1"},
		},
	}
	assert.True(t, Matches(rec, filter))

	rec["course_id"] = "c2"
	assert.False(t, Matches(rec, filter))
}

func TestSortRecords(t *testing.T) {
	records := []Record{
		{"id": "a", "question_index": 2},
		{"id": "b", "question_index": 0},
		{"id": "c", "question_index": 1},
	}
	SortRecords(records, "question_index")
	assert.Equal(t, "b", records[0]["id"])
	assert.Equal(t, "c", records[1]["id"])
	assert.Equal(t, "a", records[2]["id"])

	SortRecords(records, "-question_index")
	assert.Equal(t, "a", records[0]["id"])
}

func TestSortRecordsByTimeString(t *testing.T) {
	records := []Record{
		{"id": "new", "updated_date": "2026-02-01T00:00:00Z"},
		{"id": "old", "updated_date": "2026-01-01T00:00:00Z"},
	}
	SortRecords(records, "-updated_date")
	assert.Equal(t, "new", records[0]["id"])
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-5))
	assert.Equal(t, 10, ClampLimit(10))
	assert.Equal(t, MaxLimit, ClampLimit(100000))
}
