package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"interntrack-backend/internal/shared/storage/blob"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	fileFields     = "id, name, mimeType, size, webViewLink, createdTime, parents"
)

// Store implements blob.Store on Google Drive. Folder ids and blob ids are
// Drive file ids.
type Store struct {
	files      *drive.FilesService
	rootFolder string
}

// New builds a Drive client from opts (a token source or a credentials file).
// rootFolder is the parent of every per-student folder; empty means My Drive.
func New(ctx context.Context, rootFolder string, opts ...option.ClientOption) (*Store, error) {
	opts = append([]option.ClientOption{option.WithScopes(drive.DriveScope)}, opts...)
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Store{files: srv.Files, rootFolder: strings.TrimSpace(rootFolder)}, nil
}

// CreateFolder returns the id of the folder called name under the root,
// creating it when missing.
func (s *Store) CreateFolder(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), folderMimeType)
	if s.rootFolder != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(s.rootFolder))
	}
	existing, err := s.files.List().Q(q).Fields("files(id)").PageSize(1).
		SupportsAllDrives(true).IncludeItemsFromAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive find folder %q: %w", name, err)
	}
	if len(existing.Files) > 0 {
		return existing.Files[0].Id, nil
	}

	meta := &drive.File{Name: name, MimeType: folderMimeType}
	if s.rootFolder != "" {
		meta.Parents = []string{s.rootFolder}
	}
	f, err := s.files.Create(meta).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive create folder %q: %w", name, err)
	}
	return f.Id, nil
}

// Create uploads r as a new file inside folderID.
func (s *Store) Create(ctx context.Context, folderID, name, mimeType string, r io.Reader) (blob.Blob, error) {
	if folderID == "" {
		return blob.Blob{}, fmt.Errorf("folder id is required")
	}
	if mimeType == "" {
		mimeType = blob.MimeTypeFor(name)
	}
	meta := &drive.File{Name: name, Parents: []string{folderID}, MimeType: mimeType}
	f, err := s.files.Create(meta).
		Media(r, googleapi.ContentType(mimeType)).
		Fields(fileFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return blob.Blob{}, wrapNotFound(fmt.Errorf("drive create %q: %w", name, err))
	}
	return toBlob(f), nil
}

// Get fetches metadata and opens the content stream.
func (s *Store) Get(ctx context.Context, id string) (blob.Blob, io.ReadCloser, error) {
	f, err := s.files.Get(id).Fields(fileFields).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return blob.Blob{}, nil, wrapNotFound(fmt.Errorf("drive get %s: %w", id, err))
	}
	resp, err := s.files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return blob.Blob{}, nil, wrapNotFound(fmt.Errorf("drive download %s: %w", id, err))
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return blob.Blob{}, nil, fmt.Errorf("drive download %s: status %d", id, resp.StatusCode)
	}
	return toBlob(f), resp.Body, nil
}

// Rename updates the file name in place.
func (s *Store) Rename(ctx context.Context, id, name string) error {
	_, err := s.files.Update(id, &drive.File{Name: name}).Fields("id, name").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return wrapNotFound(fmt.Errorf("drive rename %s: %w", id, err))
	}
	return nil
}

// List returns the non-trashed files inside folderID.
func (s *Store) List(ctx context.Context, folderID string) ([]blob.Blob, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false and mimeType != '%s'", escapeQuery(folderID), folderMimeType)
	var out []blob.Blob
	err := s.files.List().
		Q(q).
		Fields(googleapi.Field("nextPageToken, files("+fileFields+")")).
		OrderBy("createdTime").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				out = append(out, toBlob(f))
			}
			return nil
		})
	if err != nil {
		return nil, wrapNotFound(fmt.Errorf("drive list %s: %w", folderID, err))
	}
	return out, nil
}

func toBlob(f *drive.File) blob.Blob {
	b := blob.Blob{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		SizeBytes:   f.Size,
		WebViewLink: f.WebViewLink,
	}
	if len(f.Parents) > 0 {
		b.FolderID = f.Parents[0]
	}
	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		b.CreatedAt = t.UTC()
	}
	return b
}

// Drive query strings quote with single quotes and escape with backslashes.
func escapeQuery(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

func wrapNotFound(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %v", blob.ErrNotFound, err)
	}
	return err
}

var _ blob.Store = (*Store)(nil)
