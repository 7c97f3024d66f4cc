package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
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

const testPrincipalHeader = "X-Test-Principal"

// principalFromHeader lets tests choose the caller per request without minting
// tokens.
func principalFromHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader(testPrincipalHeader); raw != "" {
			var p tenancy.Principal
			if err := json.Unmarshal([]byte(raw), &p); err == nil {
				c.Set(middleware.ContextPrincipalKey, p)
			}
		}
		c.Next()
	}
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func asPrincipal(t *testing.T, req *http.Request, p tenancy.Principal) {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	req.Header.Set(testPrincipalHeader, string(raw))
}

func studentPrincipal(school string) tenancy.Principal {
	return tenancy.Principal{UserID: "u1", Email: "student@example.com", Role: models.RoleStudent, ActiveSchoolID: school}
}

func adminPrincipal() tenancy.Principal {
	return tenancy.Principal{UserID: "root-1", Email: "root@example.com", Role: models.RoleSuperAdmin}
}

type entityFixture struct {
	router  *gin.Engine
	guarded *tenancy.GuardedStore
}

func newEntityFixture(t *testing.T) *entityFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	guard := tenancy.NewGuard(tenancy.Config{}, nil, nil)
	guarded := tenancy.NewGuardedStore(store.NewMemoryStore(), guard)
	policies := service.NewPolicyService(repository.NewPolicyRepository(guarded), nil, service.PolicyDefaults{}, 0, false, nil)
	h := NewEntityHandler(guarded, policies)

	router := gin.New()
	router.Use(principalFromHeader())
	router.GET("/entities/:type", h.List)
	router.GET("/entities/:type/:id", h.Get)
	router.POST("/entities/:type", h.Create)
	router.PATCH("/entities/:type/:id", h.Update)
	router.DELETE("/entities/:type/:id", h.Delete)
	router.GET("/admin/entities/:type", middleware.RequireGlobalAdmin(guard), h.AdminList)

	return &entityFixture{router: router, guarded: guarded}
}

func (f *entityFixture) seed(t *testing.T, entityType string, rec store.Record) store.Record {
	t.Helper()
	out, err := f.guarded.Create(context.Background(), adminPrincipal(), entityType, rec)
	require.NoError(t, err)
	return out
}

func TestEntityListScopedToCallerSchool(t *testing.T) {
	f := newEntityFixture(t)
	f.seed(t, models.EntityCourse, store.Record{"school_id": "s1", "title": "mine"})
	f.seed(t, models.EntityCourse, store.Record{"school_id": "s2", "title": "theirs"})

	req, _ := http.NewRequest(http.MethodGet, "/entities/Course", nil)
	asPrincipal(t, req, studentPrincipal("s1"))
	resp := performRequest(f.router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"mine"`)
	assert.NotContains(t, resp.Body.String(), `"theirs"`)
}

func TestEntityListBlockedReadIsEmptyOK(t *testing.T) {
	f := newEntityFixture(t)
	f.seed(t, models.EntityCourse, store.Record{"school_id": "s1"})

	// Student with no active school: tenant-scoped list is empty, not an error.
	req, _ := http.NewRequest(http.MethodGet, "/entities/Course", nil)
	asPrincipal(t, req, studentPrincipal(""))
	resp := performRequest(f.router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data []store.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Empty(t, envelope.Data)
}

func TestEntityListFieldProjection(t *testing.T) {
	f := newEntityFixture(t)
	f.seed(t, models.EntityCourse, store.Record{"school_id": "s1", "title": "mine", "price_cents": 10000})

	req, _ := http.NewRequest(http.MethodGet, "/entities/Course?fields=title", nil)
	asPrincipal(t, req, studentPrincipal("s1"))
	resp := performRequest(f.router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"title"`)
	assert.NotContains(t, resp.Body.String(), `"price_cents"`)
	assert.Contains(t, resp.Body.String(), `"school_id"`, "tenancy key is force-included")
}

func TestEntityListFilterCoercion(t *testing.T) {
	f := newEntityFixture(t)
	f.seed(t, models.EntityCourse, store.Record{"school_id": "s1", "title": "mine"})
	f.seed(t, models.EntityCourse, store.Record{"school_id": "s2", "title": "theirs"})

	// Asking for another school's rows silently reads your own.
	filter := url.QueryEscape(`{"school_id":"s2"}`)
	req, _ := http.NewRequest(http.MethodGet, "/entities/Course?filter="+filter, nil)
	asPrincipal(t, req, studentPrincipal("s1"))
	resp := performRequest(f.router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"mine"`)
	assert.NotContains(t, resp.Body.String(), `"theirs"`)
}

func TestEntityGetForeignTenantIs404(t *testing.T) {
	f := newEntityFixture(t)
	rec := f.seed(t, models.EntityCourse, store.Record{"school_id": "s2"})

	req, _ := http.NewRequest(http.MethodGet, "/entities/Course/"+rec["id"].(string), nil)
	asPrincipal(t, req, studentPrincipal("s1"))
	resp := performRequest(f.router, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestEntityCreateInjectsSchool(t *testing.T) {
	f := newEntityFixture(t)

	req, _ := http.NewRequest(http.MethodPost, "/entities/Course", bytes.NewBufferString(`{"title":"new"}`))
	req.Header.Set("Content-Type", "application/json")
	asPrincipal(t, req, studentPrincipal("s1"))
	resp := performRequest(f.router, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), `"school_id":"s1"`)
}

func TestEntityCreateWithoutScopeRejected(t *testing.T) {
	f := newEntityFixture(t)

	req, _ := http.NewRequest(http.MethodPost, "/entities/Course", bytes.NewBufferString(`{"title":"new"}`))
	req.Header.Set("Content-Type", "application/json")
	asPrincipal(t, req, studentPrincipal(""))
	resp := performRequest(f.router, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "scope_required")
}

func TestEntityDuplicateIs409(t *testing.T) {
	f := newEntityFixture(t)
	payload := `{"user_email":"student@example.com","type":"COURSE","course_id":"c1","source_id":"tx1"}`

	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req, _ := http.NewRequest(http.MethodPost, "/entities/Entitlement", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		asPrincipal(t, req, studentPrincipal("s1"))
		resp := performRequest(f.router, req)
		require.Equal(t, want, resp.Code, "attempt %d", i+1)
	}
}

func TestAdminListRequiresGlobalAdmin(t *testing.T) {
	f := newEntityFixture(t)
	f.seed(t, models.EntityCourse, store.Record{"school_id": "s1"})
	f.seed(t, models.EntityCourse, store.Record{"school_id": "s2"})

	req, _ := http.NewRequest(http.MethodGet, "/admin/entities/Course", nil)
	asPrincipal(t, req, studentPrincipal("s1"))
	resp := performRequest(f.router, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// A school's own admin is still a tenant principal, not a platform one.
	schoolAdmin := tenancy.Principal{UserID: "a1", Email: "owner@s1.example.com", Role: models.RoleAdmin, ActiveSchoolID: "s1"}
	req, _ = http.NewRequest(http.MethodGet, "/admin/entities/Course", nil)
	asPrincipal(t, req, schoolAdmin)
	resp = performRequest(f.router, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	req, _ = http.NewRequest(http.MethodGet, "/admin/entities/Course", nil)
	asPrincipal(t, req, adminPrincipal())
	resp = performRequest(f.router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data []store.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)
}
