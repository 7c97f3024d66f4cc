package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/service"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
	"github.com/yeshivabachur/breslov-academy-sub000/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// ContextPrincipalKey is the gin context key storing the tenancy principal.
const ContextPrincipalKey = "principal"

// JWT protects routes by requiring a valid access token.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := claimsFromHeader(c, authService)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		attach(c, claims)
		c.Next()
	}
}

// OptionalJWT attaches claims when present but does not block. Anonymous
// callers proceed with an unknown principal.
func OptionalJWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := claimsFromHeader(c, authService)
		if err == nil && claims != nil {
			attach(c, claims)
		}
		c.Next()
	}
}

// Principal returns the tenancy principal for the request. Zero value for
// anonymous callers.
func Principal(c *gin.Context) tenancy.Principal {
	if v, ok := c.Get(ContextPrincipalKey); ok {
		if p, ok := v.(tenancy.Principal); ok {
			return p
		}
	}
	return tenancy.Principal{}
}

// Claims returns the parsed JWT claims, or nil for anonymous callers.
func Claims(c *gin.Context) *models.JWTClaims {
	if v, ok := c.Get(ContextUserKey); ok {
		if claims, ok := v.(*models.JWTClaims); ok {
			return claims
		}
	}
	return nil
}

func claimsFromHeader(c *gin.Context, authService *service.AuthService) (*models.JWTClaims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, appErrors.ErrAuthRequired
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, appErrors.Clone(appErrors.ErrAuthRequired, "invalid authorization header")
	}
	return authService.ValidateToken(parts[1])
}

func attach(c *gin.Context, claims *models.JWTClaims) {
	c.Set(ContextUserKey, claims)
	c.Set(ContextPrincipalKey, tenancy.Principal{
		UserID:         claims.UserID,
		Email:          claims.Email,
		Role:           claims.Role,
		ActiveSchoolID: claims.ActiveSchoolID,
	})
}
