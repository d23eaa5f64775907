package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/swiftparcel/parcel-backend/internal/config"
	"github.com/swiftparcel/parcel-backend/internal/models"
	"github.com/swiftparcel/parcel-backend/pkg/response"
	"github.com/swiftparcel/parcel-backend/pkg/utils"
)

// AuthMiddleware validates the bearer access token, ensures the account
// still exists and is not blocked, and attaches the decoded claims to the
// request context.
func AuthMiddleware(cfg *config.Config, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		// First try to get token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// If not found in header, try query parameter (for WebSocket)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			response.Error(c, 401, "Authentication required. Please provide a valid token.")
			c.Abort()
			return
		}

		claims, err := utils.ValidateAccessToken(cfg, tokenString)
		if err != nil {
			response.Error(c, 401, "Invalid or expired token")
			c.Abort()
			return
		}

		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			response.Error(c, 401, "User not found. Please login again.")
			c.Abort()
			return
		}

		if user.IsBlocked {
			response.Error(c, 403, "Your account has been blocked. Please contact admin.")
			c.Abort()
			return
		}

		c.Set("userId", claims.UserID)
		c.Set("userEmail", claims.Email)
		c.Set("userRole", models.Role(claims.Role))
		c.Next()
	}
}

// RequireRoles allows the request through only when the caller's role is one
// of the given roles. Must run after AuthMiddleware.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(roles) == 0 {
			c.Next()
			return
		}

		callerRole, _ := c.MustGet("userRole").(models.Role)
		for _, role := range roles {
			if callerRole == role {
				c.Next()
				return
			}
		}

		var names []string
		for _, role := range roles {
			names = append(names, string(role))
		}
		response.Error(c, 403, "Access denied. Only "+strings.Join(names, ", ")+" can access this resource.")
		c.Abort()
	}
}
