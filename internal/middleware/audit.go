package middleware

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/repository"
)

// Audit records an audit entry after successful requests on privileged
// routes. Runs after JWT so the principal is attached.
func Audit(repo *repository.AuditRepository, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		p := Principal(c)
		detail, _ := json.Marshal(map[string]interface{}{
			"path":   c.FullPath(),
			"method": c.Request.Method,
			"status": c.Writer.Status(),
		})

		_ = repo.CreateAuditLog(c.Request.Context(), p, &models.AuditLog{
			SchoolID:   p.ActiveSchoolID,
			UserEmail:  p.Email,
			Action:     action,
			Resource:   resource,
			ResourceID: c.Param("id"),
			Detail:     string(detail),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		})
	}
}
