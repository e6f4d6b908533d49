package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/lms-api/internal/models"
	"github.com/campusworks/lms-api/internal/service"
	appErrors "github.com/campusworks/lms-api/pkg/errors"
	"github.com/campusworks/lms-api/pkg/response"
)

// ContextClaimsKey is the gin context key storing verified token claims.
const ContextClaimsKey = "currentClaims"

// JWT protects routes by requiring a valid bearer token.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the verified claims attached by JWT, if any.
func ClaimsFrom(c *gin.Context) (*models.TokenClaims, bool) {
	value, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.TokenClaims)
	return claims, ok
}
