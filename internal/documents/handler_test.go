package documents

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interntrack-backend/internal/records"
	"interntrack-backend/internal/shared/server/middleware"
)

type handlerFixture struct {
	router  *gin.Engine
	store   *fakeStore
	records *records.MemoryStore
	tmp     string
}

func newHandlerFixture(t *testing.T) handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	recs := records.NewMemoryStore(records.Record{StudentID: "21BCE1001", CompanyName: "Acme Corp"})
	tmp := t.TempDir()
	table := DefaultKeywordTable()
	p := NewPipeline(
		NewUploader(store, fakeFolders{"21BCE1001": "folder-a", "21BCE1002": ""}),
		NewVerifier(store, &textExtractor{}, table, tmp),
		NewReconciler(recs),
	)

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth("dev"))
	NewHandler(p, table, tmp).RegisterRoutes(api)
	return handlerFixture{router: r, store: store, records: recs, tmp: tmp}
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func (f handlerFixture) do(req *http.Request, user string) *httptest.ResponseRecorder {
	req.Header.Set("X-User-Id", user)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func TestHandlerUploadThenVerify(t *testing.T) {
	f := newHandlerFixture(t)

	body, ct := multipartBody(t, map[string]string{
		"username":    "21BCE1001",
		"docType":     "Offer Letter",
		"companyName": "Acme Corp",
	}, map[string]string{"offer.pdf": offerText})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
	req.Header.Set("Content-Type", ct)
	resp := f.do(req, "21BCE1001")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var up UploadResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &up))
	require.Len(t, up.UploadedFiles, 1)
	assert.Equal(t, "1001-Acme Corp-Offer Letter.pdf", up.UploadedFiles[0].FileName)
	assert.NotEmpty(t, up.UploadedFiles[0].WebViewLink)
	assertDirEmpty(t, f.tmp)

	payload, _ := json.Marshal(VerifyRequest{
		FileID:      up.UploadedFiles[0].FileID,
		DocType:     "Offer Letter",
		Keywords:    []string{"offer letter", "offer", "letter", "Acme Corp"},
		Username:    "21BCE1001",
		CompanyName: "Acme Corp",
	})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/documents/verify", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp = f.do(req, "21BCE1001")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var vr VerifyResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &vr))
	assert.True(t, vr.Verified)
	assert.Equal(t, "Document verified successfully", vr.Message)

	rec, err := f.records.Find(req.Context(), "21BCE1001", "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, records.Yes, rec.Get("Offer Letter"))
	assertDirEmpty(t, f.tmp)
}

func TestHandlerUploadErrors(t *testing.T) {
	f := newHandlerFixture(t)

	tests := []struct {
		name   string
		fields map[string]string
		user   string
		status int
		code   string
	}{
		{"missing student", map[string]string{"docType": "Offer Letter"}, "21BCE1001", http.StatusBadRequest, "missing_student_id"},
		{"other student", map[string]string{"studentId": "21BCE1009", "docType": "Offer Letter"}, "21BCE1001", http.StatusForbidden, "forbidden"},
		{"unknown doc type", map[string]string{"studentId": "21BCE1001", "docType": "Selfie"}, "21BCE1001", http.StatusBadRequest, "validation_error"},
		{"no folder", map[string]string{"studentId": "21BCE1002", "docType": "Offer Letter"}, "21BCE1002", http.StatusConflict, "no_storage_folder"},
		{"unknown student", map[string]string{"studentId": "21BCE1003", "docType": "Offer Letter"}, "21BCE1003", http.StatusNotFound, "unknown_student"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.fields, map[string]string{"a.pdf": "x"})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
			req.Header.Set("Content-Type", ct)
			resp := f.do(req, tt.user)
			require.Equal(t, tt.status, resp.Code, resp.Body.String())

			var payload struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
			assert.Equal(t, tt.code, payload.Error.Code)
			assertDirEmpty(t, f.tmp)
		})
	}
}

func TestHandlerVerifyDownloadFailure(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.getErr = errBoom

	payload := []byte(`{"fileId":"file-1","docType":"Offer Letter","studentId":"21BCE1001","companyName":"Acme Corp"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/verify", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := f.do(req, "21BCE1001")
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Contains(t, resp.Body.String(), "download_failed")
}

func TestHandlerSubmitAndList(t *testing.T) {
	f := newHandlerFixture(t)

	body, ct := multipartBody(t, map[string]string{
		"studentId":   "21BCE1001",
		"docType":     "Offer Letter",
		"companyName": "Acme Corp",
	}, map[string]string{"offer.pdf": "unrelated"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/submit", body)
	req.Header.Set("Content-Type", ct)
	resp := f.do(req, "21BCE1001")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var sub SubmitResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &sub))
	require.Len(t, sub.Results, 1)
	assert.Equal(t, StageDone, sub.Results[0].Stage)
	assert.False(t, sub.Results[0].Verified)
	assert.Equal(t, "Unknown Document.pdf", sub.Results[0].RenamedTo)

	rec, err := f.records.Find(req.Context(), "21BCE1001", "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, records.No, rec.Get("Offer Letter"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents?studentId=21BCE1001", nil)
	resp = f.do(req, "21BCE1001")
	require.Equal(t, http.StatusOK, resp.Code)
	var list ListResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Unknown Document.pdf", list.Data[0].FileName)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents?studentId=21BCE1002", nil)
	resp = f.do(req, "21BCE1001")
	assert.Equal(t, http.StatusForbidden, resp.Code)
}
