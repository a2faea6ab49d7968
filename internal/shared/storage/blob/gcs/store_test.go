package gcs

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/storage"

	"interntrack-backend/internal/shared/storage/blob"
)

func TestToBlobUsesDisplayName(t *testing.T) {
	s := &Store{bucket: "docs"}
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	b := s.toBlob(&storage.ObjectAttrs{
		Name:        "21BCE1001-abc/0f7c",
		ContentType: "application/pdf",
		Size:        42,
		Created:     created,
		Metadata:    map[string]string{nameMetaKey: "1001-Acme-Offer Letter.pdf"},
	})
	if b.Name != "1001-Acme-Offer Letter.pdf" || b.FolderID != "21BCE1001-abc" {
		t.Fatalf("unexpected blob %+v", b)
	}
	if b.WebViewLink != "https://storage.googleapis.com/docs/21BCE1001-abc/0f7c" {
		t.Fatalf("unexpected link %s", b.WebViewLink)
	}

	b = s.toBlob(&storage.ObjectAttrs{Name: "f/raw"})
	if b.Name != "raw" {
		t.Fatalf("expected base name fallback, got %s", b.Name)
	}
}

func TestWrapNotFound(t *testing.T) {
	err := wrapNotFound(fmt.Errorf("attrs: %w", storage.ErrObjectNotExist))
	if !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	other := errors.New("boom")
	if wrapNotFound(other) != other {
		t.Fatalf("expected passthrough")
	}
}
