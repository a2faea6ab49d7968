package documents

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"interntrack-backend/internal/shared/server/middleware"
	"interntrack-backend/internal/shared/server/respond"
)

const maxUploadSize = 25 << 20 // 25MB per request

// Handler wires HTTP handlers to the pipeline.
type Handler struct {
	Pipeline *Pipeline
	Keywords KeywordTable
	TempDir  string
}

// NewHandler constructs a Handler.
func NewHandler(p *Pipeline, keywords KeywordTable, tempDir string) *Handler {
	return &Handler{Pipeline: p, Keywords: keywords, TempDir: tempDir}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload", h.upload)
	rg.POST("/documents/verify", h.verify)
	rg.POST("/documents/submit", h.submit)
	rg.GET("/documents", h.list)
}

type uploadForm struct {
	studentID   string
	docType     DocumentType
	companyName string
	keywords    []string
	files       []*multipart.FileHeader
}

// parseForm reads the multipart submission shared by upload and submit.
// It writes the error response itself and returns false on failure.
func (h *Handler) parseForm(c *gin.Context) (uploadForm, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid multipart form", nil)
		return uploadForm{}, false
	}

	var f uploadForm
	f.studentID = strings.TrimSpace(c.PostForm("studentId"))
	if f.studentID == "" {
		f.studentID = strings.TrimSpace(c.PostForm("username"))
	}
	if f.studentID == "" {
		respond.Error(c, http.StatusBadRequest, "missing_student_id", "studentId is required", nil)
		return uploadForm{}, false
	}
	c.Set(middleware.StudentIDKey, f.studentID)
	if !middleware.CanActFor(c, f.studentID) {
		respond.Error(c, http.StatusForbidden, "forbidden", "cannot upload for another student", nil)
		return uploadForm{}, false
	}

	f.docType = normalizeType(c.PostForm("docType"))
	if !h.Keywords.Has(f.docType) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unknown docType", gin.H{"docType": f.docType})
		return uploadForm{}, false
	}
	c.Set(middleware.DocTypeKey, string(f.docType))
	f.companyName = strings.TrimSpace(c.PostForm("companyName"))
	for _, k := range form.Value["keywords"] {
		if k = strings.TrimSpace(k); k != "" {
			f.keywords = append(f.keywords, k)
		}
	}

	f.files = append(f.files, form.File["files"]...)
	f.files = append(f.files, form.File["file"]...)
	if len(f.files) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "at least one file is required", nil)
		return uploadForm{}, false
	}
	return f, true
}

// stage copies the multipart parts to temp files. Parts that cannot be
// copied are reported in failed.
func (h *Handler) stage(f uploadForm) ([]UploadInput, []FailedFile) {
	var (
		inputs []UploadInput
		failed []FailedFile
	)
	for _, fh := range f.files {
		path, err := saveTemp(fh, h.TempDir)
		if err != nil {
			failed = append(failed, FailedFile{FileName: fh.Filename, Code: "validation_error", Message: "unable to read file"})
			continue
		}
		inputs = append(inputs, UploadInput{
			StudentID:   f.studentID,
			DocType:     f.docType,
			CompanyName: f.companyName,
			LocalPath:   path,
			FileName:    fh.Filename,
			MimeType:    fh.Header.Get("Content-Type"),
		})
	}
	return inputs, failed
}

func (h *Handler) upload(c *gin.Context) {
	f, ok := h.parseForm(c)
	if !ok {
		return
	}
	inputs, failed := h.stage(f)

	resp := UploadResponse{UploadedFiles: []FileResponse{}, Failed: failed}
	var firstErr error
	for _, out := range h.Pipeline.Uploader.UploadBatch(c.Request.Context(), inputs) {
		if out.Err != nil {
			if firstErr == nil {
				firstErr = out.Err
			}
			_, code, msg := errorStatus(out.Err)
			resp.Failed = append(resp.Failed, FailedFile{FileName: out.Input.FileName, Code: code, Message: msg})
			continue
		}
		resp.UploadedFiles = append(resp.UploadedFiles, toFileResponse(out.Blob))
	}
	if resp.Failed == nil {
		resp.Failed = []FailedFile{}
	}

	if len(resp.UploadedFiles) == 0 {
		if firstErr == nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "no readable files", resp.Failed)
			return
		}
		writeError(c, firstErr)
		return
	}
	if len(resp.UploadedFiles) == 1 {
		c.Set(middleware.FileIDKey, resp.UploadedFiles[0].FileID)
	}
	respond.Created(c, resp)
}

func (h *Handler) verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.FileID = strings.TrimSpace(req.FileID)
	studentID := strings.TrimSpace(req.StudentID)
	if studentID == "" {
		studentID = strings.TrimSpace(req.Username)
	}
	if req.FileID == "" || strings.TrimSpace(req.DocType) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileId and docType are required", nil)
		return
	}
	if studentID == "" {
		respond.Error(c, http.StatusBadRequest, "missing_student_id", "studentId is required", nil)
		return
	}
	docType := normalizeType(req.DocType)
	if !h.Keywords.Has(docType) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unknown docType", gin.H{"docType": docType})
		return
	}
	c.Set(middleware.StudentIDKey, studentID)
	c.Set(middleware.FileIDKey, req.FileID)
	c.Set(middleware.DocTypeKey, string(docType))
	if !middleware.CanActFor(c, studentID) {
		respond.Error(c, http.StatusForbidden, "forbidden", "cannot verify for another student", nil)
		return
	}

	out := h.Pipeline.VerifyAndReconcile(c.Request.Context(), VerifyInput{
		FileID:      req.FileID,
		DocType:     docType,
		StudentID:   studentID,
		Keywords:    req.Keywords,
		CompanyName: strings.TrimSpace(req.CompanyName),
	})
	if out.Err != nil {
		if out.Stage == StageReconcile {
			respond.Error(c, http.StatusInternalServerError, "record_update_failed", "document verified but the record could not be updated", toVerifyResponse(out.Result))
			return
		}
		writeError(c, out.Err)
		return
	}
	respond.OK(c, toVerifyResponse(out.Result))
}

func (h *Handler) submit(c *gin.Context) {
	f, ok := h.parseForm(c)
	if !ok {
		return
	}
	inputs, failed := h.stage(f)

	resp := SubmitResponse{Results: []SubmitResult{}}
	for _, ff := range failed {
		resp.Results = append(resp.Results, SubmitResult{FileName: ff.FileName, Stage: StageUpload, Error: &ff})
	}

	var (
		firstErr error
		uploaded int
	)
	outcomes := h.Pipeline.SubmitBatch(c.Request.Context(), inputs, f.keywords)
	for i, out := range outcomes {
		res := SubmitResult{FileName: inputs[i].FileName, FileID: out.Blob.ID, Stage: out.Stage}
		if out.Blob.ID != "" {
			uploaded++
			res.FileName = out.Blob.Name
		}
		if out.Stage != StageVerify && out.Stage != StageUpload {
			res.VerifyResponse = toVerifyResponse(out.Result)
		}
		if out.Err != nil {
			if firstErr == nil {
				firstErr = out.Err
			}
			_, code, msg := errorStatus(out.Err)
			if out.Stage == StageReconcile {
				code, msg = "record_update_failed", "record could not be updated"
			}
			res.Error = &FailedFile{FileName: res.FileName, Code: code, Message: msg}
		}
		resp.Results = append(resp.Results, res)
	}

	if uploaded == 0 {
		if firstErr == nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "no readable files", resp.Results)
			return
		}
		writeError(c, firstErr)
		return
	}
	respond.OK(c, resp)
}

func (h *Handler) list(c *gin.Context) {
	studentID := strings.TrimSpace(c.Query("studentId"))
	if studentID == "" {
		studentID = middleware.UserIDFromContext(c)
	}
	if !middleware.CanActFor(c, studentID) {
		respond.Error(c, http.StatusForbidden, "forbidden", "cannot list another student's documents", nil)
		return
	}
	c.Set(middleware.StudentIDKey, studentID)

	blobs, err := h.Pipeline.Uploader.List(c.Request.Context(), studentID)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := ListResponse{Data: make([]FileResponse, 0, len(blobs))}
	for _, b := range blobs {
		resp.Data = append(resp.Data, toFileResponse(b))
	}
	resp.Count = len(resp.Data)
	respond.OK(c, resp)
}

func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrMissingStudentID):
		return http.StatusBadRequest, "missing_student_id", "studentId is required"
	case errors.Is(err, ErrUnknownStudent):
		return http.StatusNotFound, "unknown_student", "student is not registered"
	case errors.Is(err, ErrNoStorageFolder):
		return http.StatusConflict, "no_storage_folder", "no storage folder for student"
	case errors.Is(err, ErrUploadFailed):
		return http.StatusBadGateway, "upload_failed", "file upload failed"
	case errors.Is(err, ErrDownloadFailed):
		return http.StatusBadGateway, "download_failed", "could not download document"
	case errors.Is(err, ErrExtractionFailed):
		return http.StatusUnprocessableEntity, "extraction_failed", "could not extract text from document"
	case errors.Is(err, ErrForeignFile):
		return http.StatusForbidden, "forbidden", err.Error()
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, "validation_error", err.Error()
	default:
		return http.StatusInternalServerError, "internal_error", "document request failed"
	}
}

func writeError(c *gin.Context, err error) {
	status, code, msg := errorStatus(err)
	respond.Error(c, status, code, msg, nil)
}

func saveTemp(fh *multipart.FileHeader, dir string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp(dir, "upload-*"+extOf(fh.Filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		removeTemp(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		removeTemp(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}
