package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
	"github.com/yeshivabachur/breslov-academy-sub000/pkg/response"
)

// RequireGlobalAdmin gates the admin escape hatches on the guard's own
// predicate, so route wiring and store enforcement cannot drift apart.
func RequireGlobalAdmin(guard *tenancy.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := Principal(c)
		if !p.Known() {
			response.Error(c, appErrors.ErrAuthRequired)
			c.Abort()
			return
		}
		if err := guard.AuthorizeAdmin(p); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
