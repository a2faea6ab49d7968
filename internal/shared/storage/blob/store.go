package blob

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned when a blob or folder id does not resolve.
var ErrNotFound = errors.New("blob not found")

// Blob describes a stored file.
type Blob struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	FolderID    string    `json:"folderId"`
	MimeType    string    `json:"mimeType"`
	SizeBytes   int64     `json:"sizeBytes"`
	WebViewLink string    `json:"webViewLink,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store is folder-scoped object storage. Ids are opaque to callers.
type Store interface {
	Create(ctx context.Context, folderID, name, mimeType string, r io.Reader) (Blob, error)
	Get(ctx context.Context, id string) (Blob, io.ReadCloser, error)
	Rename(ctx context.Context, id, name string) error
	List(ctx context.Context, folderID string) ([]Blob, error)
	CreateFolder(ctx context.Context, name string) (string, error)
}

// MimeTypeFor guesses a content type from the file extension, falling back to
// application/octet-stream.
func MimeTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
