package server

import (
	"github.com/gin-gonic/gin"

	"interntrack-backend/internal/shared/auth"
	"interntrack-backend/internal/shared/server/middleware"
	"interntrack-backend/internal/shared/server/respond"
)

type meResponse struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Name   string `json:"name,omitempty"`
	// StudentID is the register number a student's documents are filed under.
	StudentID string `json:"studentId,omitempty"`
}

func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", func(c *gin.Context) {
		resp := meResponse{
			UserID: middleware.UserIDFromContext(c),
			Role:   middleware.RoleFromContext(c),
			Name:   middleware.UserNameFromContext(c),
		}
		if resp.Role == auth.RoleStudent {
			resp.StudentID = resp.UserID
		}
		respond.OK(c, resp)
	})
}
