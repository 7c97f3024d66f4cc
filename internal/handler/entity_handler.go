package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/middleware"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/service"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
	"github.com/yeshivabachur/breslov-academy-sub000/pkg/response"
)

// EntityHandler is the generic guarded CRUD surface over the entity store.
// Every call passes the tenancy guard; there is no route that reaches the raw
// store.
type EntityHandler struct {
	store    *tenancy.GuardedStore
	policies *service.PolicyService
}

// NewEntityHandler creates the handler.
func NewEntityHandler(gs *tenancy.GuardedStore, policies *service.PolicyService) *EntityHandler {
	return &EntityHandler{store: gs, policies: policies}
}

// List godoc
// @Summary List entities
// @Description List entities of one type, scoped to the caller's school. Supports filter (JSON object), sort and limit query params.
// @Tags Entities
// @Produce json
// @Param type path string true "Entity type"
// @Param filter query string false "JSON filter object"
// @Param sort query string false "Sort field, '-' prefix for descending"
// @Param limit query int false "Max records (clamped)"
// @Param fields query string false "Comma-separated field projection"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /entities/{type} [get]
func (h *EntityHandler) List(c *gin.Context) {
	entityType := c.Param("type")
	p := middleware.Principal(c)

	q, err := queryFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	records, err := h.store.List(c.Request.Context(), p, entityType, q)
	if err != nil {
		response.Error(c, err)
		return
	}

	if fields := splitFields(c.Query("fields")); len(fields) > 0 {
		policy := h.policies.Resolve(c.Request.Context(), p, p.ActiveSchoolID)
		projected := make([]store.Record, len(records))
		for i, rec := range records {
			projected[i] = service.ProjectFields(rec, fields, policy)
		}
		records = projected
	}

	response.JSON(c, http.StatusOK, records, nil)
}

// Get godoc
// @Summary Get one entity
// @Description Fetch a single entity by id; foreign-tenant records read as not found
// @Tags Entities
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Entity id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /entities/{type}/{id} [get]
func (h *EntityHandler) Get(c *gin.Context) {
	p := middleware.Principal(c)
	rec, err := h.store.Get(c.Request.Context(), p, c.Param("type"), c.Param("id"))
	if err != nil {
		if err == store.ErrNotFound {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// Create godoc
// @Summary Create an entity
// @Description Create an entity; tenant scope is injected from the caller's active school
// @Tags Entities
// @Accept json
// @Produce json
// @Param type path string true "Entity type"
// @Param payload body object true "Entity payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /entities/{type} [post]
func (h *EntityHandler) Create(c *gin.Context) {
	var payload store.Record
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidPayload.Code, http.StatusBadRequest, "invalid entity payload"))
		return
	}

	p := middleware.Principal(c)
	created, err := h.store.Create(c.Request.Context(), p, c.Param("type"), payload)
	if err != nil {
		if err == store.ErrDuplicate {
			response.Error(c, appErrors.Clone(appErrors.ErrConflict, "entity already exists"))
			return
		}
		response.Error(c, err)
		return
	}
	h.invalidatePolicy(c, c.Param("type"), created)
	response.Created(c, created)
}

// Update godoc
// @Summary Patch an entity
// @Description Partially update an entity visible to the caller
// @Tags Entities
// @Accept json
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Entity id"
// @Param payload body object true "Patch payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /entities/{type}/{id} [patch]
func (h *EntityHandler) Update(c *gin.Context) {
	var patch store.Record
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidPayload.Code, http.StatusBadRequest, "invalid patch payload"))
		return
	}

	p := middleware.Principal(c)
	updated, err := h.store.Update(c.Request.Context(), p, c.Param("type"), c.Param("id"), patch)
	if err != nil {
		if err == store.ErrNotFound {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}
	h.invalidatePolicy(c, c.Param("type"), updated)
	response.JSON(c, http.StatusOK, updated, nil)
}

// Delete godoc
// @Summary Delete an entity
// @Description Delete an entity visible to the caller
// @Tags Entities
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Entity id"
// @Success 204 "deleted"
// @Router /entities/{type}/{id} [delete]
func (h *EntityHandler) Delete(c *gin.Context) {
	p := middleware.Principal(c)
	if _, err := h.store.Delete(c.Request.Context(), p, c.Param("type"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AdminList godoc
// @Summary List entities across tenants
// @Description Global-admin escape hatch: list without tenant scoping
// @Tags Admin
// @Produce json
// @Param type path string true "Entity type"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/entities/{type} [get]
func (h *EntityHandler) AdminList(c *gin.Context) {
	q, err := queryFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.store.AdminList(c.Request.Context(), middleware.Principal(c), c.Param("type"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// AdminGet godoc
// @Summary Get one entity across tenants
// @Description Global-admin escape hatch: fetch regardless of tenant
// @Tags Admin
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Entity id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/entities/{type}/{id} [get]
func (h *EntityHandler) AdminGet(c *gin.Context) {
	rec, err := h.store.AdminGet(c.Request.Context(), middleware.Principal(c), c.Param("type"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// GuardInterventions godoc
// @Summary Recent tenancy guard interventions
// @Description Diagnostic ring buffer of coerced and blocked operations
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/guard/interventions [get]
func (h *EntityHandler) GuardInterventions(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.store.Guard().Interventions(), nil)
}

// invalidatePolicy drops the cached protection policy after a policy row
// changes through the generic endpoints.
func (h *EntityHandler) invalidatePolicy(c *gin.Context, entityType string, rec store.Record) {
	if entityType != models.EntityProtectionPolicy || rec == nil {
		return
	}
	if schoolID, ok := rec[store.FieldSchoolID].(string); ok && schoolID != "" {
		h.policies.Invalidate(c.Request.Context(), schoolID)
	}
}

func queryFromRequest(c *gin.Context) (store.Query, error) {
	q := store.Query{Sort: c.Query("sort")}

	if raw := c.Query("filter"); raw != "" {
		var filter store.Record
		if err := json.Unmarshal([]byte(raw), &filter); err != nil {
			return q, appErrors.Wrap(err, appErrors.ErrInvalidPayload.Code, http.StatusBadRequest, "filter must be a JSON object")
		}
		q.Filter = filter
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return q, appErrors.Clone(appErrors.ErrInvalidPayload, "limit must be an integer")
		}
		q.Limit = limit
	}
	return q, nil
}

func splitFields(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	fields := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			fields = append(fields, trimmed)
		}
	}
	return fields
}
