package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/middleware"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/service"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
	"github.com/yeshivabachur/breslov-academy-sub000/pkg/response"
)

// MeHandler serves the caller's own memberships and entitlements. These are
// the self-scoped bootstrap reads a client needs before it has picked a
// school.
type MeHandler struct {
	memberships  *service.MembershipService
	entitlements *service.EntitlementService
}

// NewMeHandler creates the handler.
func NewMeHandler(memberships *service.MembershipService, entitlements *service.EntitlementService) *MeHandler {
	return &MeHandler{memberships: memberships, entitlements: entitlements}
}

// Memberships godoc
// @Summary List own memberships
// @Description List the caller's memberships across all schools
// @Tags Me
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me/memberships [get]
func (h *MeHandler) Memberships(c *gin.Context) {
	p := middleware.Principal(c)
	if !p.Known() {
		response.Error(c, appErrors.ErrAuthRequired)
		return
	}

	memberships, err := h.memberships.ListForUser(c.Request.Context(), p, p.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, memberships, nil)
}

// Entitlements godoc
// @Summary List own entitlements
// @Description List the caller's entitlements in the active school
// @Tags Me
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me/entitlements [get]
func (h *MeHandler) Entitlements(c *gin.Context) {
	p := middleware.Principal(c)
	if !p.Known() {
		response.Error(c, appErrors.ErrAuthRequired)
		return
	}

	entitlements, err := h.entitlements.ListForUser(c.Request.Context(), p, p.ActiveSchoolID, p.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entitlements, nil)
}
