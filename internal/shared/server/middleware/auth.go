package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"interntrack-backend/internal/shared/auth"
	"interntrack-backend/internal/shared/config"
	"interntrack-backend/internal/shared/server/respond"
)

const (
	userIDKey   = "userId"
	userRoleKey = "userRole"
	userNameKey = "userName"
)

// Auth validates bearer JWTs and stores identity in context. In dev-like
// environments the X-User-Id / X-User-Role headers are accepted instead.
func Auth(env string) gin.HandlerFunc {
	devLike := config.IsDevLike(env)
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

			c.Set(userIDKey, claims.Subject)
			c.Set(userRoleKey, claims.Role)
			if claims.Name != "" {
				c.Set(userNameKey, claims.Name)
			}
			c.Next()
			return
		}

		if devLike {
			if id := strings.TrimSpace(c.GetHeader("X-User-Id")); id != "" {
				role := strings.ToLower(strings.TrimSpace(c.GetHeader("X-User-Role")))
				if role != auth.RoleTeacher {
					role = auth.RoleStudent
				}
				c.Set(userIDKey, id)
				c.Set(userRoleKey, role)
				c.Next()
				return
			}
		}

		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
	}
}

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := RoleFromContext(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		respond.Error(c, http.StatusForbidden, "forbidden", "insufficient role", nil)
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// RoleFromContext fetches the role set by the auth middleware.
func RoleFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userRoleKey)
	if role, ok := val.(string); ok {
		return role
	}
	return ""
}

// UserNameFromContext fetches the display name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userNameKey)
	if name, ok := val.(string); ok {
		return name
	}
	return ""
}

// CanActFor reports whether the caller may read or write studentID's data.
// Teachers may act for anyone; students only for themselves.
func CanActFor(c *gin.Context, studentID string) bool {
	if RoleFromContext(c) == auth.RoleTeacher {
		return true
	}
	id := UserIDFromContext(c)
	return id != "" && id == strings.TrimSpace(studentID)
}
