package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"interntrack-backend/internal/shared/storage/blob"
	"interntrack-backend/internal/shared/util"
)

const metaSuffix = ".meta.json"

// Store implements blob.Store on the local filesystem. Each folder is a
// directory under baseDir; each blob is a data file plus a JSON sidecar
// holding its display name.
type Store struct {
	baseDir string
	mu      sync.Mutex
	now     func() time.Time
}

// New creates a new local blob store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

// CreateFolder returns a stable folder id derived from name.
func (s *Store) CreateFolder(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	folderID, err := util.FolderKey(name)
	if err != nil {
		return "", fmt.Errorf("folder name %q: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Join(s.baseDir, folderID), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	return folderID, nil
}

// Create writes r into folderID under a fresh id.
func (s *Store) Create(ctx context.Context, folderID, name, mimeType string, r io.Reader) (blob.Blob, error) {
	if err := ctx.Err(); err != nil {
		return blob.Blob{}, err
	}
	dir, err := s.folderDir(folderID)
	if err != nil {
		return blob.Blob{}, err
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return blob.Blob{}, fmt.Errorf("folder %s: %w", folderID, blob.ErrNotFound)
		}
		return blob.Blob{}, err
	}

	fileID := uuid.NewString()
	f, err := os.OpenFile(filepath.Join(dir, fileID), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return blob.Blob{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var sniff [512]byte
	n, readErr := io.ReadFull(r, sniff[:])
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return blob.Blob{}, fmt.Errorf("read sniff: %w", readErr)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(sniff[:n])
	}

	size := int64(0)
	if n > 0 {
		if _, err := f.Write(sniff[:n]); err != nil {
			return blob.Blob{}, fmt.Errorf("write sniff: %w", err)
		}
		size += int64(n)
	}
	written, err := io.Copy(f, r)
	if err != nil {
		return blob.Blob{}, fmt.Errorf("write body: %w", err)
	}
	size += written

	b := blob.Blob{
		ID:        folderID + "/" + fileID,
		Name:      name,
		FolderID:  folderID,
		MimeType:  mimeType,
		SizeBytes: size,
		CreatedAt: s.now().UTC(),
	}
	if err := s.writeMeta(b); err != nil {
		return blob.Blob{}, err
	}
	return b, nil
}

// Get opens a stored blob for reading.
func (s *Store) Get(ctx context.Context, id string) (blob.Blob, io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return blob.Blob{}, nil, err
	}
	b, err := s.readMeta(id)
	if err != nil {
		return blob.Blob{}, nil, err
	}
	f, err := os.Open(filepath.Join(s.baseDir, filepath.FromSlash(id)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return blob.Blob{}, nil, fmt.Errorf("blob %s: %w", id, blob.ErrNotFound)
		}
		return blob.Blob{}, nil, err
	}
	return b, f, nil
}

// Rename updates the display name of a blob.
func (s *Store) Rename(ctx context.Context, id, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.readMeta(id)
	if err != nil {
		return err
	}
	b.Name = name
	return s.writeMeta(b)
}

// List returns the blobs of a folder ordered by creation time.
func (s *Store) List(ctx context.Context, folderID string) ([]blob.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.folderDir(folderID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("folder %s: %w", folderID, blob.ErrNotFound)
		}
		return nil, err
	}
	var out []blob.Blob
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, metaSuffix) {
			continue
		}
		b, err := s.readMeta(folderID + "/" + strings.TrimSuffix(name, metaSuffix))
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) folderDir(folderID string) (string, error) {
	clean := filepath.Clean(folderID)
	if folderID == "" || strings.ContainsAny(folderID, `/\`) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid folder id %q", folderID)
	}
	return filepath.Join(s.baseDir, clean), nil
}

func (s *Store) metaPath(id string) (string, error) {
	folderID, fileID, ok := strings.Cut(id, "/")
	if !ok || fileID == "" || strings.ContainsAny(fileID, `/\`) || strings.Contains(fileID, "..") {
		return "", fmt.Errorf("invalid blob id %q", id)
	}
	dir, err := s.folderDir(folderID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileID+metaSuffix), nil
}

func (s *Store) readMeta(id string) (blob.Blob, error) {
	p, err := s.metaPath(id)
	if err != nil {
		return blob.Blob{}, err
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return blob.Blob{}, fmt.Errorf("blob %s: %w", id, blob.ErrNotFound)
		}
		return blob.Blob{}, fmt.Errorf("read meta: %w", err)
	}
	var b blob.Blob
	if err := json.Unmarshal(raw, &b); err != nil {
		return blob.Blob{}, fmt.Errorf("decode meta: %w", err)
	}
	return b, nil
}

func (s *Store) writeMeta(b blob.Blob) error {
	p, err := s.metaPath(b.ID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("commit meta: %w", err)
	}
	return nil
}

var _ blob.Store = (*Store)(nil)
