package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interntrack-backend/internal/extract"
	"interntrack-backend/internal/records"
	"interntrack-backend/internal/shared/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Env:             "dev",
		BlobStoreType:   "local",
		LocalStoreDir:   filepath.Join(dir, "blobs"),
		RecordStoreType: "memory",
		Extractor:       "native",
		TempDir:         dir,
	}
}

func TestBuildWiresRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(testConfig(t))
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.DB)
	assert.NotNil(t, app.Pipeline)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-User-Id", "21BCE1001")
	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, strings.Contains(resp.Body.String(), "21BCE1001"))
}

func TestBuildRecordsRouteUsesStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(testConfig(t))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	req.Header.Set("X-User-Id", "t-1")
	req.Header.Set("X-User-Role", "teacher")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, 0, payload.Count)
}

func TestBuildRejectsS3WithoutBucket(t *testing.T) {
	cfg := testConfig(t)
	cfg.BlobStoreType = "s3"
	_, err := Build(cfg)
	require.Error(t, err)
}

func TestBuildRejectsDriveWithoutCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.BlobStoreType = "drive"
	_, err := Build(cfg)
	require.Error(t, err)
}

func TestBuildRecordStoreSelection(t *testing.T) {
	cfg := testConfig(t)

	cfg.RecordStoreType = "xlsx"
	cfg.RecordsXLSXPath = filepath.Join(t.TempDir(), "records.xlsx")
	store, err := buildRecordStore(cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &records.XLSXStore{}, store)

	cfg.RecordStoreType = "postgres"
	store, err = buildRecordStore(cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &records.MemoryStore{}, store)
}

func TestBuildExtractorSelection(t *testing.T) {
	cfg := testConfig(t)

	ex, err := buildExtractor(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, extract.Native{}, ex)

	cfg.Extractor = "chain"
	cfg.ExtractCommand = "pdftotext {path} -"
	ex, err = buildExtractor(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &extract.Fallback{}, ex)

	cfg.Extractor = "command"
	cfg.ExtractCommand = ""
	_, err = buildExtractor(context.Background(), cfg)
	require.Error(t, err)

	cfg.Extractor = "documentai"
	_, err = buildExtractor(context.Background(), cfg)
	require.Error(t, err, "documentai needs a project and processor")
}
