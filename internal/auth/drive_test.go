package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"interntrack-backend/internal/shared/server/middleware"
)

type stubFolders struct{ names []string }

func (s *stubFolders) CreateFolder(_ context.Context, name string) (string, error) {
	s.names = append(s.names, name)
	return "id-" + name, nil
}

func newTestDriveAuth(t *testing.T, tokenURL string) (*DriveAuth, *TokenStore, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := NewTokenStore(filepath.Join(t.TempDir(), "drive_oauth.json"), "")
	a := NewDriveAuth("client", "secret", "http://localhost:5000/api/v1/drive/oauth/callback", tokens, &stubFolders{})
	if tokenURL != "" {
		a.oauthConfig.Endpoint = oauth2.Endpoint{AuthURL: "https://accounts.test/auth", TokenURL: tokenURL}
	}

	r := gin.New()
	api := r.Group("/api/v1")
	secured := api.Group("")
	secured.Use(middleware.Auth("dev"))
	a.RegisterRoutes(api, secured)
	return a, tokens, r
}

func TestTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	s := NewTokenStore(path, "env-token")

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "env-token", got)

	require.NoError(t, s.Save("saved-token"))
	got, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "saved-token", got)

	assert.Error(t, NewTokenStore("", "x").Save("y"))
}

func TestAuthURLRequiresTeacher(t *testing.T) {
	_, _, r := newTestDriveAuth(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/drive/oauth/url", nil)
	req.Header.Set("X-User-Id", "21BCE1001")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/drive/oauth/url", nil)
	req.Header.Set("X-User-Id", "t1")
	req.Header.Set("X-User-Role", "teacher")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	u, err := url.Parse(body.URL)
	require.NoError(t, err)
	assert.Equal(t, "offline", u.Query().Get("access_type"))
	assert.Equal(t, "consent", u.Query().Get("prompt"))
	assert.NotEmpty(t, u.Query().Get("state"))
}

func TestCallbackExchangesAndSavesToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","refresh_token":"rt-1","expires_in":3600}`))
	}))
	t.Cleanup(tokenServer.Close)

	a, tokens, r := newTestDriveAuth(t, tokenServer.URL)
	a.stateStore.put("good-state", time.Now().Add(time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/drive/oauth/callback?state=bad&code=c", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/drive/oauth/callback?state=good-state&code=c", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	got, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "rt-1", got)

	// state is single use
	req = httptest.NewRequest(http.MethodGet, "/api/v1/drive/oauth/callback?state=good-state&code=c", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSaveTokenAndCreateFolder(t *testing.T) {
	_, tokens, r := newTestDriveAuth(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/drive/token", strings.NewReader(`{"refresh_token":"manual"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "t1")
	req.Header.Set("X-User-Role", "teacher")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	got, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "manual", got)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/drive/folders", strings.NewReader(`{"folderName":"21BCE1001"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "t1")
	req.Header.Set("X-User-Role", "teacher")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), "id-21BCE1001")
}

func TestTokenSourceWithoutTokenFails(t *testing.T) {
	a, _, _ := newTestDriveAuth(t, "")
	_, err := a.TokenSource(context.Background()).Token()
	assert.ErrorIs(t, err, ErrNoDriveToken)
}
