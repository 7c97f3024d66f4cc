package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/middleware"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/service"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
	"github.com/yeshivabachur/breslov-academy-sub000/pkg/response"
)

// ContentHandler serves sanitized, access-gated content reads.
type ContentHandler struct {
	content *service.ContentService
}

// NewContentHandler creates the handler.
func NewContentHandler(content *service.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

// GetLesson godoc
// @Summary Resolve a lesson for the caller
// @Description Returns the lesson sanitized to the caller's access level, with the verdict in the meta block
// @Tags Content
// @Produce json
// @Param id path string true "Lesson id"
// @Param preview_chars query int false "Requested preview window, capped by policy"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /content/lessons/{id} [get]
func (h *ContentHandler) GetLesson(c *gin.Context) {
	requested := 0
	if raw := c.Query("preview_chars"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidPayload, "preview_chars must be an integer"))
			return
		}
		requested = n
	}

	view, err := h.content.GetLesson(c.Request.Context(), middleware.Principal(c), c.Param("id"), requested)
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := map[string]interface{}{"level": view.Access.Level}
	if view.Access.UnlockAt != nil {
		meta["unlock_at"] = view.Access.UnlockAt
	}
	response.JSON(c, http.StatusOK, view.Lesson, nil, meta)
}

// GetQuizQuestions godoc
// @Summary Resolve quiz questions for the caller
// @Description Returns the question set gated to the caller's access level
// @Tags Content
// @Produce json
// @Param id path string true "Quiz id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /content/quizzes/{id}/questions [get]
func (h *ContentHandler) GetQuizQuestions(c *gin.Context) {
	view, err := h.content.GetQuizQuestions(c.Request.Context(), middleware.Principal(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view.Questions, nil, map[string]interface{}{
		"quiz_id": view.QuizID,
		"level":   view.Access.Level,
	})
}

// BatchQuestions godoc
// @Summary Resolve a mixed batch of questions
// @Description Gates question ids spanning multiple quizzes, grouped per quiz
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body object true "Question ids"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /content/questions/batch [post]
func (h *ContentHandler) BatchQuestions(c *gin.Context) {
	var payload struct {
		QuestionIDs []string `json:"question_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidPayload.Code, http.StatusBadRequest, "question_ids is required"))
		return
	}

	views, err := h.content.BatchQuestions(c.Request.Context(), middleware.Principal(c), payload.QuestionIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}
