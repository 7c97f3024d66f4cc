package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/middleware"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/service"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
	"github.com/yeshivabachur/breslov-academy-sub000/pkg/response"
)

// EntitlementHandler serves the administrative grant operations. Issuance
// happens through checkout and webhooks; revocation is the manual
// counterpart.
type EntitlementHandler struct {
	entitlements *service.EntitlementService
}

// NewEntitlementHandler creates the handler.
func NewEntitlementHandler(entitlements *service.EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{entitlements: entitlements}
}

// Revoke godoc
// @Summary Revoke an entitlement
// @Description Mark a grant revoked. The row is kept; the grant stops matching immediately.
// @Tags Admin
// @Produce json
// @Param id path string true "Entitlement id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/entitlements/{id}/revoke [post]
func (h *EntitlementHandler) Revoke(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrMissingParams, "entitlement id is required"))
		return
	}

	if err := h.entitlements.Revoke(c.Request.Context(), middleware.Principal(c), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": id, "status": "revoked"}, nil)
}
