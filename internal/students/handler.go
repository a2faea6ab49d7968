package students

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"interntrack-backend/internal/shared/server/middleware"
	"interntrack-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/students", h.register)
	rg.GET("/students/:id", h.get)
}

type registerRequest struct {
	StudentID string `json:"studentId"`
	Username  string `json:"username"`
	Name      string `json:"name"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	id := strings.TrimSpace(req.StudentID)
	if id == "" {
		id = strings.TrimSpace(req.Username)
	}
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "studentId is required", nil)
		return
	}
	if !middleware.CanActFor(c, id) {
		respond.Error(c, http.StatusForbidden, "forbidden", "cannot register another student", nil)
		return
	}
	c.Set(middleware.StudentIDKey, id)

	student, err := h.Svc.Register(c.Request.Context(), id, req.Name)
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "registration_failed", "failed to register student", nil)
		return
	}
	respond.Created(c, student)
}

func (h *Handler) get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if !middleware.CanActFor(c, id) {
		respond.Error(c, http.StatusForbidden, "forbidden", "cannot view another student", nil)
		return
	}
	student, err := h.Svc.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "student not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load student", nil)
		return
	}
	respond.JSON(c, http.StatusOK, student)
}
