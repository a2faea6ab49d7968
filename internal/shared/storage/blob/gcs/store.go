package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"interntrack-backend/internal/shared/storage/blob"
	"interntrack-backend/internal/shared/util"
)

const nameMetaKey = "display-name"

// Store implements blob.Store on a Google Cloud Storage bucket. Folders are
// object name prefixes.
type Store struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed store. credentialsFile may be empty to use
// application default credentials.
func New(ctx context.Context, bucket, credentialsFile string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if creds := strings.TrimSpace(credentialsFile); creds != "" {
		if strings.HasPrefix(creds, "{") {
			opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
		} else {
			opts = append(opts, option.WithCredentialsFile(creds))
		}
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// CreateFolder returns the object prefix used for name.
func (s *Store) CreateFolder(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	folderID, err := util.FolderKey(name)
	if err != nil {
		return "", fmt.Errorf("folder name %q: %w", name, err)
	}
	return folderID, nil
}

// Create streams r into a new object under folderID.
func (s *Store) Create(ctx context.Context, folderID, name, mimeType string, r io.Reader) (blob.Blob, error) {
	if folderID == "" || strings.Contains(folderID, "/") {
		return blob.Blob{}, fmt.Errorf("invalid folder id %q", folderID)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	id := path.Join(folderID, uuid.NewString())
	w := s.client.Bucket(s.bucket).Object(id).NewWriter(ctx)
	if mimeType == "" {
		mimeType = blob.MimeTypeFor(name)
	}
	w.ContentType = mimeType
	w.Metadata = map[string]string{nameMetaKey: name}

	written, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return blob.Blob{}, fmt.Errorf("write gcs object %s: %w", id, err)
	}
	if err := w.Close(); err != nil {
		return blob.Blob{}, fmt.Errorf("close gcs writer %s: %w", id, err)
	}

	b := blob.Blob{
		ID:          id,
		Name:        name,
		FolderID:    folderID,
		MimeType:    mimeType,
		SizeBytes:   written,
		WebViewLink: s.publicURL(id),
	}
	if attrs := w.Attrs(); attrs != nil {
		b.CreatedAt = attrs.Created.UTC()
	}
	return b, nil
}

// Get opens a reader for id. The reader keeps its own context alive until Close.
func (s *Store) Get(ctx context.Context, id string) (blob.Blob, io.ReadCloser, error) {
	obj := s.client.Bucket(s.bucket).Object(id)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return blob.Blob{}, nil, wrapNotFound(fmt.Errorf("gcs attrs %s: %w", id, err))
	}

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	r, err := obj.NewReader(readCtx)
	if err != nil {
		cancel()
		return blob.Blob{}, nil, wrapNotFound(fmt.Errorf("gcs reader %s: %w", id, err))
	}
	return s.toBlob(attrs), &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

// Rename updates the display-name metadata in place.
func (s *Store) Rename(ctx context.Context, id, name string) error {
	obj := s.client.Bucket(s.bucket).Object(id)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return wrapNotFound(fmt.Errorf("gcs attrs %s: %w", id, err))
	}
	meta := make(map[string]string, len(attrs.Metadata)+1)
	for k, v := range attrs.Metadata {
		meta[k] = v
	}
	meta[nameMetaKey] = name
	if _, err := obj.Update(ctx, storage.ObjectAttrsToUpdate{Metadata: meta}); err != nil {
		return fmt.Errorf("gcs update %s: %w", id, err)
	}
	return nil
}

// List returns the objects stored under folderID.
func (s *Store) List(ctx context.Context, folderID string) ([]blob.Blob, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: folderID + "/"})
	var out []blob.Blob
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs list %s: %w", folderID, err)
		}
		out = append(out, s.toBlob(attrs))
	}
	return out, nil
}

func (s *Store) toBlob(attrs *storage.ObjectAttrs) blob.Blob {
	name := attrs.Metadata[nameMetaKey]
	if name == "" {
		name = path.Base(attrs.Name)
	}
	folder, _, _ := strings.Cut(attrs.Name, "/")
	return blob.Blob{
		ID:          attrs.Name,
		Name:        name,
		FolderID:    folder,
		MimeType:    attrs.ContentType,
		SizeBytes:   attrs.Size,
		WebViewLink: s.publicURL(attrs.Name),
		CreatedAt:   attrs.Created.UTC(),
	}
}

func (s *Store) publicURL(id string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, id)
}

// Closing the reader also cancels the context it was opened with.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func wrapNotFound(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %v", blob.ErrNotFound, err)
	}
	return err
}

var _ blob.Store = (*Store)(nil)
