package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "interntrack-backend/internal/shared/auth"
	"interntrack-backend/internal/shared/server/middleware"
	"interntrack-backend/internal/shared/server/respond"
	"interntrack-backend/internal/shared/telemetry"
)

const driveScope = "https://www.googleapis.com/auth/drive"

// ErrNoDriveToken is returned by the token source until a refresh token is stored.
var ErrNoDriveToken = errors.New("drive refresh token not configured")

// FolderCreator creates a folder under the storage root.
type FolderCreator interface {
	CreateFolder(ctx context.Context, name string) (string, error)
}

// DriveAuth handles the teacher-driven OAuth flow that authorizes the
// service to act on a Drive account, and serves tokens to the Drive client.
type DriveAuth struct {
	oauthConfig *oauth2.Config
	tokens      *TokenStore
	folders     FolderCreator
	stateTTL    time.Duration
	stateStore  *stateStore
}

// NewDriveAuth builds a DriveAuth. folders may be nil.
func NewDriveAuth(clientID, clientSecret, redirectURL string, tokens *TokenStore, folders FolderCreator) *DriveAuth {
	return &DriveAuth{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{driveScope},
			Endpoint:     google.Endpoint,
		},
		tokens:     tokens,
		folders:    folders,
		stateTTL:   10 * time.Minute,
		stateStore: newStateStore(),
	}
}

// SetFolders binds the folder creator after the storage client exists.
func (a *DriveAuth) SetFolders(folders FolderCreator) {
	a.folders = folders
}

// Configured reports whether the OAuth client settings are present.
func (a *DriveAuth) Configured() bool {
	c := a.oauthConfig
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

// RegisterRoutes attaches Drive routes. The callback is public; its state
// must come from a teacher's /oauth/url call.
func (a *DriveAuth) RegisterRoutes(public, secured *gin.RouterGroup) {
	public.GET("/drive/oauth/callback", a.callback)

	teacher := secured.Group("/drive")
	teacher.Use(middleware.RequireRole(sharedauth.RoleTeacher))
	teacher.GET("/oauth/url", a.authURL)
	teacher.POST("/token", a.saveToken)
	teacher.POST("/folders", a.createFolder)
}

func (a *DriveAuth) authURL(c *gin.Context) {
	if !a.Configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "OAuth client not configured (set GOOGLE_OAUTH_CLIENT_ID/SECRET/REDIRECT_URI)", nil)
		return
	}

	state := uuid.NewString()
	a.stateStore.put(state, time.Now().Add(a.stateTTL))

	url := a.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	respond.OK(c, gin.H{"url": url})
}

func (a *DriveAuth) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}
	if !a.stateStore.consume(state) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}
	if !a.Configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "OAuth client not configured", nil)
		return
	}

	token, err := a.oauthConfig.Exchange(c.Request.Context(), code)
	if err != nil {
		telemetry.Error("drive.oauth_exchange_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to exchange code", nil)
		return
	}

	saved := false
	if token.RefreshToken != "" {
		if err := a.tokens.Save(token.RefreshToken); err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save refresh token", nil)
			return
		}
		saved = true
	}
	telemetry.Info("drive.oauth_authorized", map[string]any{"refresh_token_saved": saved})
	respond.OK(c, gin.H{"success": true, "refreshTokenSaved": saved})
}

type saveTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *DriveAuth) saveToken(c *gin.Context) {
	var req saveTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "refresh_token is required", nil)
		return
	}
	if err := a.tokens.Save(strings.TrimSpace(req.RefreshToken)); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save refresh token", nil)
		return
	}
	respond.OK(c, gin.H{"success": true, "message": "Refresh token saved"})
}

type createFolderRequest struct {
	FolderName string `json:"folderName"`
}

func (a *DriveAuth) createFolder(c *gin.Context) {
	if a.folders == nil {
		respond.Error(c, http.StatusNotImplemented, "not_configured", "folder creation not available", nil)
		return
	}
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.FolderName) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "folderName is required", nil)
		return
	}
	id, err := a.folders.CreateFolder(c.Request.Context(), strings.TrimSpace(req.FolderName))
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "storage_error", "failed to create folder", nil)
		return
	}
	respond.Created(c, gin.H{"folderId": id})
}

// TokenSource returns a source that re-reads the stored refresh token on
// every call.
func (a *DriveAuth) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &reloadingSource{ctx: ctx, auth: a}
}

type reloadingSource struct {
	ctx  context.Context
	auth *DriveAuth

	mu      sync.Mutex
	refresh string
	src     oauth2.TokenSource
}

func (r *reloadingSource) Token() (*oauth2.Token, error) {
	refresh, err := r.auth.tokens.Load()
	if err != nil {
		return nil, err
	}
	if refresh == "" {
		return nil, ErrNoDriveToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.src == nil || refresh != r.refresh {
		r.refresh = refresh
		r.src = r.auth.oauthConfig.TokenSource(r.ctx, &oauth2.Token{RefreshToken: refresh})
	}
	return r.src.Token()
}

type stateStore struct {
	items map[string]time.Time
	mu    sync.Mutex
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time)}
}

func (s *stateStore) put(state string, exp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, v := range s.items {
		if now.After(v) {
			delete(s.items, k)
		}
	}
	s.items[state] = exp
}

func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	exp, ok := s.items[state]
	if ok {
		delete(s.items, state)
	}
	s.mu.Unlock()
	return ok && !time.Now().After(exp)
}
