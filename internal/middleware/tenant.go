package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"catalog-import-service/internal/models"
)

// TenantMiddleware extracts the tenant from X-Tenant-ID. There is no default
// tenant: requests without one are rejected.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// an upstream auth layer may already have set it
		tenantID := c.GetString("tenant_id")
		if tenantID == "" {
			tenantID = strings.TrimSpace(c.GetHeader("X-Tenant-ID"))
		}

		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "TENANT_REQUIRED",
					Message: "Tenant ID is required. Include the X-Tenant-ID header.",
				},
			})
			return
		}

		c.Set("tenant_id", tenantID)
		c.Next()
	}
}

// GetTenantID retrieves the tenant ID from gin context
func GetTenantID(c *gin.Context) string {
	return c.GetString("tenant_id")
}
