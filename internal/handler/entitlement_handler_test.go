package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/middleware"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/repository"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/service"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
)

type entitlementFixture struct {
	router  *gin.Engine
	guarded *tenancy.GuardedStore
}

func newEntitlementFixture(t *testing.T) *entitlementFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	guard := tenancy.NewGuard(tenancy.Config{}, nil, nil)
	guarded := tenancy.NewGuardedStore(store.NewMemoryStore(), guard)
	entitlements := service.NewEntitlementService(repository.NewEntitlementRepository(guarded), repository.NewCommerceRepository(guarded), nil, nil)
	h := NewEntitlementHandler(entitlements)

	router := gin.New()
	router.Use(principalFromHeader())
	router.POST("/admin/entitlements/:id/revoke", middleware.RequireGlobalAdmin(guard), h.Revoke)

	return &entitlementFixture{router: router, guarded: guarded}
}

func (f *entitlementFixture) seedGrant(t *testing.T) store.Record {
	t.Helper()
	rec, err := f.guarded.Create(context.Background(), adminPrincipal(), models.EntityEntitlement, store.Record{
		"school_id":  "s1",
		"user_email": "student@example.com",
		"type":       string(models.EntitlementCourse),
		"course_id":  "c1",
		"source_id":  "tx1",
		"status":     string(models.EntitlementActive),
	})
	require.NoError(t, err)
	return rec
}

func TestRevokeEntitlementRequiresGlobalAdmin(t *testing.T) {
	f := newEntitlementFixture(t)
	grant := f.seedGrant(t)

	req, _ := http.NewRequest(http.MethodPost, "/admin/entitlements/"+grant["id"].(string)+"/revoke", nil)
	asPrincipal(t, req, studentPrincipal("s1"))
	resp := performRequest(f.router, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRevokeEntitlementMarksGrantRevoked(t *testing.T) {
	f := newEntitlementFixture(t)
	grant := f.seedGrant(t)
	id := grant["id"].(string)

	req, _ := http.NewRequest(http.MethodPost, "/admin/entitlements/"+id+"/revoke", nil)
	asPrincipal(t, req, adminPrincipal())
	resp := performRequest(f.router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "revoked")

	stored, err := f.guarded.Get(context.Background(), adminPrincipal(), models.EntityEntitlement, id)
	require.NoError(t, err)
	assert.Equal(t, string(models.EntitlementRevoked), stored["status"])
}

func TestRevokeEntitlementUnknownIDIsNotFound(t *testing.T) {
	f := newEntitlementFixture(t)

	req, _ := http.NewRequest(http.MethodPost, "/admin/entitlements/nope/revoke", nil)
	asPrincipal(t, req, adminPrincipal())
	resp := performRequest(f.router, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
