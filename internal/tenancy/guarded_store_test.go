package tenancy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
)

func newGuardedMemory(t *testing.T) *GuardedStore {
	t.Helper()
	return NewGuardedStore(store.NewMemoryStore(), newTestGuard(Config{DevUserID: "dev-1"}))
}

func seed(t *testing.T, gs *GuardedStore, entityType string, rec store.Record) store.Record {
	t.Helper()
	created, err := gs.Create(context.Background(), Principal{UserID: "dev-1"}, entityType, rec)
	require.NoError(t, err)
	return created
}

func TestGuardedListCoercesForeignTenantFilter(t *testing.T) {
	ctx := context.Background()
	gs := newGuardedMemory(t)
	seed(t, gs, models.EntityCourse, store.Record{store.FieldSchoolID: "s1", "title": "mine"})
	seed(t, gs, models.EntityCourse, store.Record{store.FieldSchoolID: "s2", "title": "theirs"})

	out, err := gs.List(ctx, student("s1"), models.EntityCourse, store.Query{
		Filter: store.Record{store.FieldSchoolID: "s2"},
	})
	require.NoError(t, err)
	require.Len(t, out, 1, "foreign filter coerced to the caller's school")
	assert.Equal(t, "mine", out[0]["title"])
}

func TestGuardedListBlockedReadIsEmptyNotError(t *testing.T) {
	gs := newGuardedMemory(t)
	seed(t, gs, models.EntityCourse, store.Record{store.FieldSchoolID: "s1"})

	out, err := gs.List(context.Background(), student(""), models.EntityCourse, store.Query{})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, out)
}

func TestGuardedGetForeignTenantReadsAsNotFound(t *testing.T) {
	ctx := context.Background()
	gs := newGuardedMemory(t)
	created := seed(t, gs, models.EntityCourse, store.Record{store.FieldSchoolID: "s2"})
	id := created[store.FieldID].(string)

	_, err := gs.Get(ctx, student("s1"), models.EntityCourse, id)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The record's own tenant sees it.
	_, err = gs.Get(ctx, student("s2"), models.EntityCourse, id)
	assert.NoError(t, err)
}

func TestGuardedCreateWithoutScopeFails(t *testing.T) {
	gs := newGuardedMemory(t)
	_, err := gs.Create(context.Background(), student(""), models.EntityCourse, store.Record{"title": "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScopeRequired.Code, appErrors.FromError(err).Code)
}

func TestGuardedCreateInjectsScope(t *testing.T) {
	gs := newGuardedMemory(t)
	created, err := gs.Create(context.Background(), student("s1"), models.EntityCourse, store.Record{"title": "x"})
	require.NoError(t, err)
	assert.Equal(t, "s1", created[store.FieldSchoolID])
}

func TestGuardedUpdateStripsTenantKeyForNonAdmins(t *testing.T) {
	ctx := context.Background()
	gs := newGuardedMemory(t)
	created := seed(t, gs, models.EntityCourse, store.Record{store.FieldSchoolID: "s1", "title": "x"})
	id := created[store.FieldID].(string)

	updated, err := gs.Update(ctx, student("s1"), models.EntityCourse, id, store.Record{
		"title":             "y",
		store.FieldSchoolID: "s2",
	})
	require.NoError(t, err)
	assert.Equal(t, "y", updated["title"])
	assert.Equal(t, "s1", updated[store.FieldSchoolID], "patches cannot move a record between tenants")
}

func TestGuardedAdminEscapeHatch(t *testing.T) {
	ctx := context.Background()
	gs := newGuardedMemory(t)
	seed(t, gs, models.EntityCourse, store.Record{store.FieldSchoolID: "s1"})
	seed(t, gs, models.EntityCourse, store.Record{store.FieldSchoolID: "s2"})

	out, err := gs.AdminList(ctx, Principal{UserID: "dev-1"}, models.EntityCourse, store.Query{})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	_, err = gs.AdminList(ctx, student("s1"), models.EntityCourse, store.Query{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGuardedSelfScopedBootstrapAcrossTenants(t *testing.T) {
	ctx := context.Background()
	gs := newGuardedMemory(t)
	seed(t, gs, models.EntityMembership, store.Record{
		store.FieldSchoolID:  "s1",
		store.FieldUserEmail: "student@example.com",
		"role":               "STUDENT",
	})
	seed(t, gs, models.EntityMembership, store.Record{
		store.FieldSchoolID:  "s2",
		store.FieldUserEmail: "student@example.com",
		"role":               "TEACHER",
	})

	// No active school selected yet: own-email lookup still spans tenants.
	out, err := gs.List(ctx, student(""), models.EntityMembership, store.Query{
		Filter: store.Record{store.FieldUserEmail: "student@example.com"},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
