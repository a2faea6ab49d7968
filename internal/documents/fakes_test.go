package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"interntrack-backend/internal/shared/storage/blob"
	"interntrack-backend/internal/students"
)

type storedBlob struct {
	meta blob.Blob
	data []byte
}

type fakeStore struct {
	mu        sync.Mutex
	blobs     map[string]*storedBlob
	next      int
	createErr error
	getErr    error
	renameErr error
	renames   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: map[string]*storedBlob{}}
}

func (s *fakeStore) put(folderID, name string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := fmt.Sprintf("file-%d", s.next)
	s.blobs[id] = &storedBlob{meta: blob.Blob{ID: id, Name: name, FolderID: folderID}, data: data}
	return id
}

func (s *fakeStore) Create(_ context.Context, folderID, name, mimeType string, r io.Reader) (blob.Blob, error) {
	if s.createErr != nil {
		return blob.Blob{}, s.createErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return blob.Blob{}, err
	}
	id := s.put(folderID, name, data)
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &s.blobs[id].meta
	b.MimeType = mimeType
	b.SizeBytes = int64(len(data))
	b.WebViewLink = "https://files.test/" + id
	return *b, nil
}

func (s *fakeStore) Get(_ context.Context, id string) (blob.Blob, io.ReadCloser, error) {
	if s.getErr != nil {
		return blob.Blob{}, nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[id]
	if !ok {
		return blob.Blob{}, nil, blob.ErrNotFound
	}
	return b.meta, io.NopCloser(bytes.NewReader(b.data)), nil
}

func (s *fakeStore) Rename(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renames = append(s.renames, name)
	if s.renameErr != nil {
		return s.renameErr
	}
	b, ok := s.blobs[id]
	if !ok {
		return blob.ErrNotFound
	}
	b.meta.Name = name
	return nil
}

func (s *fakeStore) List(_ context.Context, folderID string) ([]blob.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []blob.Blob
	for _, b := range s.blobs {
		if b.meta.FolderID == folderID {
			out = append(out, b.meta)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateFolder(_ context.Context, name string) (string, error) {
	return "folder-" + name, nil
}

func (s *fakeStore) name(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.blobs[id]; ok {
		return b.meta.Name
	}
	return ""
}

// textExtractor returns the file content as text.
type textExtractor struct {
	err   error
	paths []string
}

func (e *textExtractor) ExtractText(_ context.Context, path string) (string, error) {
	e.paths = append(e.paths, path)
	if e.err != nil {
		return "", e.err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type fakeFolders map[string]string

func (f fakeFolders) FolderID(_ context.Context, studentID string) (string, error) {
	folder, ok := f[studentID]
	if !ok {
		return "", students.ErrNotFound
	}
	if folder == "" {
		return "", students.ErrNoFolder
	}
	return folder, nil
}

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return path
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected %s to be empty, found %d entries", dir, len(entries))
	}
}

var errBoom = errors.New("boom")
