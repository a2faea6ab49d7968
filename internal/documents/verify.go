package documents

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"interntrack-backend/internal/extract"
	"interntrack-backend/internal/shared/metrics"
	"interntrack-backend/internal/shared/storage/blob"
	"interntrack-backend/internal/shared/telemetry"
	"interntrack-backend/internal/shared/tracing"
)

var tracer = tracing.Tracer("documents")

const defaultExt = ".pdf"

// VerifyInput identifies a stored document and what it should be.
type VerifyInput struct {
	FileID    string
	DocType   DocumentType
	StudentID string
	// Keywords overrides the configured keywords for DocType when non-empty.
	Keywords    []string
	CompanyName string
	// FolderID, when set, must match the blob's folder.
	FolderID string
}

// Verifier downloads a blob, extracts its text and checks it.
type Verifier struct {
	Store     blob.Store
	Extractor extract.Extractor
	Keywords  KeywordTable
	TempDir   string
}

func NewVerifier(store blob.Store, extractor extract.Extractor, keywords KeywordTable, tempDir string) *Verifier {
	return &Verifier{Store: store, Extractor: extractor, Keywords: keywords, TempDir: tempDir}
}

// Verify checks the document and, when it fails, renames the blob. Download
// and extraction errors are returned; a failed rename is only logged.
func (v *Verifier) Verify(ctx context.Context, in VerifyInput) (res Result, err error) {
	ctx, span := tracer.Start(ctx, "documents.Verify")
	start := time.Now()
	defer func() {
		metrics.ObserveVerifyDurationMs(float64(time.Since(start).Microseconds()) / 1000)
		span.SetAttributes(attribute.Bool("verified", res.Verified))
		tracing.End(span, err)
	}()

	in.FileID = strings.TrimSpace(in.FileID)
	in.DocType = normalizeType(string(in.DocType))
	if in.FileID == "" || in.DocType == "" {
		return Result{}, fmt.Errorf("%w: fileId and docType are required", ErrInvalidInput)
	}
	span.SetAttributes(
		attribute.String("file_id", in.FileID),
		attribute.String("doc_type", string(in.DocType)),
	)

	path, b, err := v.download(ctx, in)
	if err != nil {
		metrics.IncVerifyErrors()
		return Result{}, err
	}
	defer removeTemp(path)

	text, err := v.Extractor.ExtractText(ctx, path)
	if err != nil {
		metrics.IncVerifyErrors()
		telemetry.Error("documents.extract_failed", map[string]any{
			"file_id": in.FileID,
			"error":   err.Error(),
		})
		return Result{}, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	keywords := in.Keywords
	if len(keywords) == 0 {
		keywords = v.Keywords.Keywords(in.DocType)
	}
	res = Evaluate(text, keywords, in.CompanyName)
	res.ClassifiedAs = Classify(text, v.Keywords)

	if res.Verified {
		metrics.IncVerified()
	} else {
		metrics.IncRejected()
		res.RenamedTo = v.rename(ctx, b, res, in)
	}

	telemetry.Info("documents.verified", map[string]any{
		"file_id":           in.FileID,
		"student_id":        in.StudentID,
		"doc_type":          string(in.DocType),
		"doc_type_verified": res.DocTypeVerified,
		"company_verified":  res.CompanyVerified,
		"verified":          res.Verified,
		"classified_as":     string(res.ClassifiedAs),
		"renamed_to":        res.RenamedTo,
	})
	return res, nil
}

// download copies the blob into a temp file and returns its path. No file
// is left behind on error.
func (v *Verifier) download(ctx context.Context, in VerifyInput) (string, blob.Blob, error) {
	b, rc, err := v.Store.Get(ctx, in.FileID)
	if err != nil {
		telemetry.Error("documents.download_failed", map[string]any{
			"file_id": in.FileID,
			"error":   err.Error(),
		})
		return "", blob.Blob{}, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer rc.Close()

	if in.FolderID != "" && b.FolderID != "" && b.FolderID != in.FolderID {
		return "", blob.Blob{}, ErrForeignFile
	}

	ext := extOf(b.Name)
	if ext == "" {
		ext = defaultExt
	}
	tmp, err := os.CreateTemp(v.TempDir, "verify-*"+ext)
	if err != nil {
		return "", blob.Blob{}, fmt.Errorf("%w: create temp file: %w", ErrDownloadFailed, err)
	}
	if _, err := io.Copy(tmp, rc); err != nil {
		_ = tmp.Close()
		removeTemp(tmp.Name())
		return "", blob.Blob{}, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	if err := tmp.Close(); err != nil {
		removeTemp(tmp.Name())
		return "", blob.Blob{}, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	return tmp.Name(), b, nil
}

// rename applies the corrective name and returns it, or "" if the rename
// was not needed or failed.
func (v *Verifier) rename(ctx context.Context, b blob.Blob, res Result, in VerifyInput) string {
	ext := extOf(b.Name)
	if ext == "" {
		ext = defaultExt
	}
	name, ok := CorrectiveName(res, in.StudentID, in.DocType, ext)
	if !ok {
		return ""
	}
	if err := v.Store.Rename(ctx, in.FileID, name); err != nil {
		metrics.IncRenameFailures()
		telemetry.Warn("documents.rename_failed", map[string]any{
			"file_id":  in.FileID,
			"new_name": name,
			"error":    fmt.Errorf("%w: %w", ErrRenameFailed, err).Error(),
		})
		return ""
	}
	metrics.IncRenames()
	return name
}
