package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Kayler1303/ACS-sub001/internal/shared/auth"
	"github.com/Kayler1303/ACS-sub001/internal/shared/server/respond"
)

const (
	staffIDKey    = "staffId"
	staffEmailKey = "staffEmail"
	staffNameKey  = "staffName"
	staffRoleKey  = "staffRole"
)

// RoleAdmin marks staff allowed to resolve overrides and discrepancies.
const RoleAdmin = "admin"

// Auth validates staff JWTs and stores identity in context. Outside
// production a plain X-Staff-Id header is accepted so local setups do
// not need a token issuer.
func Auth(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))

		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			claims, err := auth.VerifyJWT(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			c.Set(staffIDKey, claims.Sub)
			if claims.Email != "" {
				c.Set(staffEmailKey, claims.Email)
			}
			if claims.Name != "" {
				c.Set(staffNameKey, claims.Name)
			}
			role := claims.Role
			if role == "" {
				role = "staff"
			}
			c.Set(staffRoleKey, role)
			c.Next()
			return
		}

		if env != "production" {
			if staffID := strings.TrimSpace(c.GetHeader("X-Staff-Id")); staffID != "" {
				c.Set(staffIDKey, staffID)
				c.Set(staffRoleKey, RoleAdmin)
				c.Next()
				return
			}
		}

		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
	}
}

// RequireAdmin rejects requests whose staff role is not admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if StaffRoleFromContext(c) != RoleAdmin {
			respond.Error(c, http.StatusForbidden, "forbidden", "admin role required", nil)
			return
		}
		c.Next()
	}
}

// StaffIDFromContext fetches the staff ID set by the auth middleware.
func StaffIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(staffIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// StaffEmailFromContext fetches the staff email set by the auth middleware.
func StaffEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(staffEmailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}

// StaffNameFromContext fetches the staff display name set by the auth
// middleware.
func StaffNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(staffNameKey)
	if name, ok := val.(string); ok {
		return name
	}
	return ""
}

// StaffRoleFromContext fetches the staff role set by the auth middleware.
func StaffRoleFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(staffRoleKey)
	if role, ok := val.(string); ok {
		return role
	}
	return ""
}
