package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/service"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
	"github.com/yeshivabachur/breslov-academy-sub000/pkg/response"
)

// SchoolHeader selects the active school for one request.
const SchoolHeader = "X-School-ID"

// ResolveTenant lets a caller switch the active school per request via the
// X-School-ID header. The switch requires a membership in the target school;
// global admins may select any school. Runs after JWT.
func ResolveTenant(guard *tenancy.Guard, memberships *service.MembershipService) gin.HandlerFunc {
	return func(c *gin.Context) {
		requested := c.GetHeader(SchoolHeader)
		if requested == "" {
			c.Next()
			return
		}

		p := Principal(c)
		if !p.Known() {
			c.Next()
			return
		}
		if requested == p.ActiveSchoolID {
			c.Next()
			return
		}

		if !guard.IsGlobalAdmin(p) {
			if memberships.Resolve(c.Request.Context(), p, requested, p.Email) == nil {
				response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no membership in the requested school"))
				c.Abort()
				return
			}
		}

		p.ActiveSchoolID = requested
		c.Set(ContextPrincipalKey, p)
		c.Next()
	}
}
