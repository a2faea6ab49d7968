package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"interntrack-backend/internal/shared/auth"
)

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth("dev"))
	router.OPTIONS("/api/v1/documents/upload", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/documents/upload", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func identityRouter(env string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(env))
	router.GET("/api/v1/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserIDFromContext(c), "role": RoleFromContext(c)})
	})
	router.GET("/api/v1/teacher", RequireRole(auth.RoleTeacher), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENV", "production")

	token, err := auth.SignJWT(auth.Claims{Role: auth.RoleTeacher, RegisteredClaims: jwt.RegisteredClaims{Subject: "t-1"}})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	router := identityRouter("production")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/teacher", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	router := identityRouter("dev")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthDevHeadersOnlyInDev(t *testing.T) {
	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/teacher", nil)
		r.Header.Set("X-User-Id", "21BCE1001")
		return r
	}

	resp := httptest.NewRecorder()
	identityRouter("dev").ServeHTTP(resp, req())
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected student header identity to be forbidden on teacher route, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	identityRouter("production").ServeHTTP(resp, req())
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 in production, got %d", resp.Code)
	}
}

func TestCanActFor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(userIDKey, "21BCE1001")
	c.Set(userRoleKey, auth.RoleStudent)

	if !CanActFor(c, "21BCE1001") {
		t.Fatal("student should act for self")
	}
	if CanActFor(c, "21BCE1002") {
		t.Fatal("student should not act for others")
	}
	c.Set(userRoleKey, auth.RoleTeacher)
	if !CanActFor(c, "21BCE1002") {
		t.Fatal("teacher should act for anyone")
	}
}
