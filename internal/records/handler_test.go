package records

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interntrack-backend/internal/shared/server/middleware"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth("dev"))
	NewHandler(svc).RegisterRoutes(api)
	return r
}

func do(r *gin.Engine, method, path, user, role, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", user)
	req.Header.Set("X-User-Role", role)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHandlerListScopesStudents(t *testing.T) {
	svc := NewService(NewMemoryStore(
		Record{StudentID: "21BCE1001", CompanyName: "Acme"},
		Record{StudentID: "21BCE1002", CompanyName: "Globex"},
	))
	r := newTestRouter(svc)

	var body listResponse
	resp := do(r, http.MethodGet, "/api/v1/records", "21BCE1001", "student", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	resp = do(r, http.MethodGet, "/api/v1/records", "t1", "teacher", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)

	resp = do(r, http.MethodGet, "/api/v1/records/21BCE1002", "21BCE1001", "student", "")
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestHandlerAddAndUpdate(t *testing.T) {
	svc := NewService(NewMemoryStore(), "Offer Letter")
	r := newTestRouter(svc)

	resp := do(r, http.MethodPost, "/api/v1/records", "21BCE1001", "student",
		`{"Register No":"21BCE1001","Company Name":"Acme","Stipend":10000,"Offer Letter":"Yes"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var rec Record
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rec))
	assert.Equal(t, "10000", rec.Fields["Stipend"])
	assert.NotContains(t, rec.Fields, "Offer Letter")

	resp = do(r, http.MethodPost, "/api/v1/records", "21BCE1001", "student",
		`{"Register No":"21BCE1001","Company Name":"Acme"}`)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = do(r, http.MethodPost, "/api/v1/records", "21BCE1001", "student",
		`{"Register No":"21BCE1002","Company Name":"Acme"}`)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = do(r, http.MethodPut, "/api/v1/records/21BCE1001/Acme", "t1", "teacher", `{"Stipend":"15000"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rec))
	assert.Equal(t, "15000", rec.Fields["Stipend"])

	resp = do(r, http.MethodPut, "/api/v1/records/21BCE1001/Nowhere", "t1", "teacher", `{"Stipend":"1"}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(r, http.MethodPut, "/api/v1/records/21BCE1001/Acme", "t1", "teacher", `{"Stipend":{"a":1}}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
