package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/cloudpanel/internal/models"
	"example.com/cloudpanel/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Gin context keys
const (
	APIKeyContextKey = "api_key"
	CallerContextKey = "caller"
)

// APIKeyAuth validates API tokens from the Authorization header and requires
// at least the given access level
func APIKeyAuth(repo repository.Repository, log *logrus.Logger, requiredLevel models.AuthorizationLevel) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid Authorization header format. Expected: 'Bearer {token}'",
			})
			c.Abort()
			return
		}

		apiKey, err := repo.Auth().GetAPIKeyByKey(c.Request.Context(), parts[1])
		if err != nil {
			log.WithError(err).Warn("Invalid API key")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API key",
			})
			c.Abort()
			return
		}

		if apiKey.ExpiresAt != nil && apiKey.ExpiresAt.Before(time.Now()) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "API key expired",
			})
			c.Abort()
			return
		}

		if apiKey.AuthorizationLevel < requiredLevel {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			c.Abort()
			return
		}

		now := time.Now()
		apiKey.LastUsedAt = &now
		if err := repo.Auth().UpdateAPIKey(c.Request.Context(), apiKey); err != nil {
			log.WithError(err).Warn("Failed to update API key usage")
		}

		c.Set(APIKeyContextKey, apiKey)
		c.Next()
	}
}

// CallerFromRequest builds the explicit caller identity from request headers.
// The identity travels as a parameter into the pipeline, never as ambient
// session state.
func CallerFromRequest(c *gin.Context) models.Caller {
	caller := models.Caller{Role: c.GetHeader("X-Caller-Role")}
	if id, err := strconv.ParseUint(c.GetHeader("X-Caller-Id"), 10, 64); err == nil {
		caller.UserID = uint(id)
	}
	if id, err := strconv.ParseUint(c.GetHeader("X-Caller-Department"), 10, 64); err == nil {
		caller.DepartmentID = uint(id)
	}
	return caller
}
