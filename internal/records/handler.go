package records

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"interntrack-backend/internal/shared/auth"
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
	rg.GET("/records", h.list)
	rg.GET("/records/:studentId", h.listByStudent)
	rg.POST("/records", h.add)
	rg.PUT("/records/:studentId/:company", h.update)
}

type listResponse struct {
	Count int      `json:"count"`
	Data  []Record `json:"data"`
}

func (h *Handler) list(c *gin.Context) {
	var (
		recs []Record
		err  error
	)
	if middleware.RoleFromContext(c) == auth.RoleTeacher {
		recs, err = h.Svc.List(c.Request.Context())
	} else {
		recs, err = h.Svc.ListByStudent(c.Request.Context(), middleware.UserIDFromContext(c))
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read records", nil)
		return
	}
	respond.OK(c, listResponse{Count: len(recs), Data: recs})
}

func (h *Handler) listByStudent(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("studentId"))
	if !middleware.CanActFor(c, studentID) {
		respond.Error(c, http.StatusForbidden, "forbidden", "cannot view another student's records", nil)
		return
	}
	c.Set(middleware.StudentIDKey, studentID)
	recs, err := h.Svc.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read records", nil)
		return
	}
	respond.OK(c, listResponse{Count: len(recs), Data: recs})
}

func (h *Handler) add(c *gin.Context) {
	row, err := bindRow(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	rec := Record{Fields: row}
	if v := row["studentId"]; v != "" {
		rec.StudentID = v
		delete(rec.Fields, "studentId")
	}
	if v := row["companyName"]; v != "" {
		rec.CompanyName = v
		delete(rec.Fields, "companyName")
	}
	studentID := rec.StudentID
	if studentID == "" {
		studentID = row[ColumnStudentID]
	}
	if !middleware.CanActFor(c, studentID) {
		respond.Error(c, http.StatusForbidden, "forbidden", "cannot add records for another student", nil)
		return
	}
	c.Set(middleware.StudentIDKey, strings.TrimSpace(studentID))

	created, err := h.Svc.Add(c.Request.Context(), rec)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Created(c, created)
}

func (h *Handler) update(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("studentId"))
	company := strings.TrimSpace(c.Param("company"))
	if !middleware.CanActFor(c, studentID) {
		respond.Error(c, http.StatusForbidden, "forbidden", "cannot update another student's records", nil)
		return
	}
	c.Set(middleware.StudentIDKey, studentID)

	row, err := bindRow(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	updated, err := h.Svc.Update(c.Request.Context(), studentID, company, row)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, updated)
}

// bindRow accepts a flat JSON object of column -> scalar.
func bindRow(c *gin.Context) (map[string]string, error) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		return nil, errors.New("invalid request body")
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = t
		case float64, bool:
			out[k] = fmt.Sprint(t)
		default:
			return nil, fmt.Errorf("column %q must be a scalar", k)
		}
	}
	return out, nil
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidRecord):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrAlreadyExists):
		respond.Error(c, http.StatusConflict, "already_exists", "an internship with this company already exists for this student", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "internship not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to write record", nil)
	}
}
