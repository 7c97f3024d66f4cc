package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/repository"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/service"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
)

type contentFixture struct {
	router  *gin.Engine
	guarded *tenancy.GuardedStore
}

func newContentHandlerFixture(t *testing.T) *contentFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	guard := tenancy.NewGuard(tenancy.Config{}, nil, nil)
	guarded := tenancy.NewGuardedStore(store.NewMemoryStore(), guard)

	policies := service.NewPolicyService(repository.NewPolicyRepository(guarded), nil, service.PolicyDefaults{}, 0, false, nil)
	memberships := service.NewMembershipService(repository.NewMembershipRepository(guarded), nil)
	entitlements := service.NewEntitlementService(repository.NewEntitlementRepository(guarded), repository.NewCommerceRepository(guarded), nil, nil)
	content := service.NewContentService(repository.NewContentRepository(guarded), policies, memberships, entitlements, service.NewAccessService(nil), nil)
	h := NewContentHandler(content)

	router := gin.New()
	router.Use(principalFromHeader())
	router.GET("/content/lessons/:id", h.GetLesson)
	router.GET("/content/quizzes/:id/questions", h.GetQuizQuestions)
	router.POST("/content/questions/batch", h.BatchQuestions)

	return &contentFixture{router: router, guarded: guarded}
}

func (f *contentFixture) seed(t *testing.T, entityType string, rec store.Record) store.Record {
	t.Helper()
	out, err := f.guarded.Create(context.Background(), adminPrincipal(), entityType, rec)
	require.NoError(t, err)
	return out
}

func TestGetLessonPreviewResponse(t *testing.T) {
	f := newContentHandlerFixture(t)
	course := f.seed(t, models.EntityCourse, store.Record{"school_id": "s1", "access_tier": "PAID"})
	lesson := f.seed(t, models.EntityLesson, store.Record{
		"school_id": "s1", "course_id": course["id"], "title": "Azamra",
		"is_preview": true, "content": strings.Repeat("x", 2000),
	})

	req, _ := http.NewRequest(http.MethodGet, "/content/lessons/"+lesson["id"].(string), nil)
	asPrincipal(t, req, studentPrincipal("s1"))
	resp := performRequest(f.router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data store.Record           `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "PREVIEW", envelope.Meta["level"])
	content, ok := envelope.Data["content"].(string)
	require.True(t, ok)
	assert.Equal(t, 1503, utf8.RuneCountInString(content))
	assert.Equal(t, "Azamra", envelope.Data["title"])
}

func TestGetLessonLockedResponse(t *testing.T) {
	f := newContentHandlerFixture(t)
	course := f.seed(t, models.EntityCourse, store.Record{"school_id": "s1", "access_tier": "PAID"})
	lesson := f.seed(t, models.EntityLesson, store.Record{
		"school_id": "s1", "course_id": course["id"], "title": "Hidden", "content": "secret",
	})

	req, _ := http.NewRequest(http.MethodGet, "/content/lessons/"+lesson["id"].(string), nil)
	asPrincipal(t, req, studentPrincipal("s1"))
	resp := performRequest(f.router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data store.Record           `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "LOCKED", envelope.Meta["level"])
	assert.Nil(t, envelope.Data["content"])
	assert.Equal(t, "Hidden", envelope.Data["title"])
}

func TestGetLessonInvalidPreviewChars(t *testing.T) {
	f := newContentHandlerFixture(t)

	req, _ := http.NewRequest(http.MethodGet, "/content/lessons/l1?preview_chars=abc", nil)
	asPrincipal(t, req, studentPrincipal("s1"))
	resp := performRequest(f.router, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetQuizQuestionsMeta(t *testing.T) {
	f := newContentHandlerFixture(t)
	course := f.seed(t, models.EntityCourse, store.Record{"school_id": "s1", "access_tier": "FREE"})
	quiz := f.seed(t, models.EntityQuiz, store.Record{"school_id": "s1", "course_id": course["id"]})
	f.seed(t, models.EntityQuizQuestion, store.Record{"school_id": "s1", "quiz_id": quiz["id"], "question_index": 0, "text": "q?"})

	req, _ := http.NewRequest(http.MethodGet, "/content/quizzes/"+quiz["id"].(string)+"/questions", nil)
	asPrincipal(t, req, studentPrincipal("s1"))
	resp := performRequest(f.router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data []models.QuizQuestion  `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "FULL", envelope.Meta["level"])
	assert.Equal(t, quiz["id"], envelope.Meta["quiz_id"])
	assert.Len(t, envelope.Data, 1)
}

func TestBatchQuestionsRequiresIDs(t *testing.T) {
	f := newContentHandlerFixture(t)

	req, _ := http.NewRequest(http.MethodPost, "/content/questions/batch", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	asPrincipal(t, req, studentPrincipal("s1"))
	resp := performRequest(f.router, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
