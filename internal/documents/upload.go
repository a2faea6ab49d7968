package documents

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"interntrack-backend/internal/shared/metrics"
	"interntrack-backend/internal/shared/storage/blob"
	"interntrack-backend/internal/shared/telemetry"
	"interntrack-backend/internal/shared/tracing"
	"interntrack-backend/internal/students"
)

const defaultBatchLimit = 4

// FolderResolver maps a student to their storage folder.
type FolderResolver interface {
	FolderID(ctx context.Context, studentID string) (string, error)
}

// UploadInput describes one file waiting on local disk.
type UploadInput struct {
	StudentID   string
	DocType     DocumentType
	CompanyName string
	LocalPath   string
	// FileName is the client's original name; its extension is kept.
	FileName string
	MimeType string
}

// UploadOutcome is the per-file result of UploadBatch.
type UploadOutcome struct {
	Input UploadInput
	Blob  blob.Blob
	Err   error
}

// Uploader stores submitted files in the student's folder.
type Uploader struct {
	Store   blob.Store
	Folders FolderResolver
	// BatchLimit bounds concurrent uploads in UploadBatch.
	BatchLimit int
}

func NewUploader(store blob.Store, folders FolderResolver) *Uploader {
	return &Uploader{Store: store, Folders: folders, BatchLimit: defaultBatchLimit}
}

// Upload stores in.LocalPath as one blob and removes the local file on every
// path out of the call.
func (u *Uploader) Upload(ctx context.Context, in UploadInput) (_ blob.Blob, err error) {
	defer removeTemp(in.LocalPath)
	ctx, span := tracer.Start(ctx, "documents.Upload", trace.WithAttributes(
		attribute.String("student_id", in.StudentID),
		attribute.String("doc_type", string(in.DocType)),
	))
	defer func() { tracing.End(span, err) }()

	studentID := strings.TrimSpace(in.StudentID)
	if studentID == "" {
		return blob.Blob{}, ErrMissingStudentID
	}
	folderID, err := u.folder(ctx, studentID)
	if err != nil {
		return blob.Blob{}, err
	}

	f, err := os.Open(in.LocalPath)
	if err != nil {
		metrics.IncUploadFailures()
		return blob.Blob{}, fmt.Errorf("%w: open local file: %v", ErrUploadFailed, err)
	}
	defer f.Close()

	ext := extOf(in.FileName, in.LocalPath)
	if ext == "" {
		ext = extForMime(in.MimeType)
	}
	name := UploadName(studentID, strings.TrimSpace(in.CompanyName), in.DocType, ext)
	mimeType := in.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = blob.MimeTypeFor(name)
	}

	b, err := u.Store.Create(ctx, folderID, name, mimeType, f)
	if err != nil {
		metrics.IncUploadFailures()
		telemetry.Error("documents.upload_failed", map[string]any{
			"student_id": studentID,
			"doc_type":   string(in.DocType),
			"file_name":  name,
			"error":      err.Error(),
		})
		return blob.Blob{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	metrics.IncUploads()
	telemetry.Info("documents.uploaded", map[string]any{
		"student_id": studentID,
		"doc_type":   string(in.DocType),
		"file_id":    b.ID,
		"file_name":  b.Name,
		"size_bytes": b.SizeBytes,
	})
	return b, nil
}

// UploadBatch uploads every input independently. A failed file never undoes
// files already stored.
func (u *Uploader) UploadBatch(ctx context.Context, inputs []UploadInput) []UploadOutcome {
	out := make([]UploadOutcome, len(inputs))
	limit := u.BatchLimit
	if limit <= 0 {
		limit = defaultBatchLimit
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, in := range inputs {
		g.Go(func() error {
			b, err := u.Upload(ctx, in)
			out[i] = UploadOutcome{Input: in, Blob: b, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// List returns the blobs in a student's folder.
func (u *Uploader) List(ctx context.Context, studentID string) ([]blob.Blob, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, ErrMissingStudentID
	}
	folderID, err := u.folder(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return u.Store.List(ctx, folderID)
}

func (u *Uploader) folder(ctx context.Context, studentID string) (string, error) {
	folderID, err := u.Folders.FolderID(ctx, studentID)
	switch {
	case errors.Is(err, students.ErrNotFound):
		return "", ErrUnknownStudent
	case errors.Is(err, students.ErrNoFolder):
		return "", ErrNoStorageFolder
	case err != nil:
		return "", fmt.Errorf("resolve folder: %w", err)
	case strings.TrimSpace(folderID) == "":
		return "", ErrNoStorageFolder
	}
	return folderID, nil
}

func removeTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		telemetry.Warn("documents.temp_cleanup_failed", map[string]any{
			"path":  path,
			"error": err.Error(),
		})
	}
}
