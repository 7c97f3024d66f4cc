package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.Create(ctx, "Course", Record{"school_id": "s1", "title": "Likutey Moharan"})
	require.NoError(t, err)
	assert.NotEmpty(t, created[FieldID])
	assert.NotNil(t, created[FieldCreatedDate])

	id := created[FieldID].(string)
	got, err := s.Get(ctx, "Course", id)
	require.NoError(t, err)
	assert.Equal(t, "Likutey Moharan", got["title"])

	updated, err := s.Update(ctx, "Course", id, Record{"title": "Likutey Moharan II", FieldID: "hijack"})
	require.NoError(t, err)
	assert.Equal(t, "Likutey Moharan II", updated["title"])
	assert.Equal(t, id, updated[FieldID], "patches cannot move the id")

	deleted, err := s.Delete(ctx, "Course", id)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.Get(ctx, "Course", id)
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err = s.Delete(ctx, "Course", id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMemoryStoreListFilterSortLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i := 0; i < 5; i++ {
		_, err := s.Create(ctx, "QuizQuestion", Record{
			"school_id":      "s1",
			"quiz_id":        "q1",
			"question_index": i,
		})
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, "QuizQuestion", Record{"school_id": "s1", "quiz_id": "other", "question_index": 9})
	require.NoError(t, err)

	out, err := s.List(ctx, "QuizQuestion", Query{
		Filter: Record{"quiz_id": "q1"},
		Sort:   "question_index",
		Limit:  3,
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 0, out[0]["question_index"])
	assert.Equal(t, 2, out[2]["question_index"])
}

func TestMemoryStoreUniqueKeyEmulation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	grant := Record{
		"school_id":  "s1",
		"user_email": "buyer@example.com",
		"type":       "COURSE",
		"course_id":  "c1",
		"source_id":  "tx-1",
	}
	_, err := s.Create(ctx, "Entitlement", grant)
	require.NoError(t, err)

	_, err = s.Create(ctx, "Entitlement", grant)
	assert.ErrorIs(t, err, ErrDuplicate)

	// Same tuple except course id is a distinct grant.
	other := cloneRecord(grant)
	other["course_id"] = "c2"
	_, err = s.Create(ctx, "Entitlement", other)
	assert.NoError(t, err)
}

func TestMemoryStoreRedemptionUniquePerTransaction(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := Record{"school_id": "s1", "coupon_id": "cp1", "transaction_id": "tx-1"}
	_, err := s.Create(ctx, "CouponRedemption", first)
	require.NoError(t, err)

	second := Record{"school_id": "s1", "coupon_id": "cp2", "transaction_id": "tx-1"}
	_, err = s.Create(ctx, "CouponRedemption", second)
	assert.ErrorIs(t, err, ErrDuplicate)
}
