package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	doc := `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	rels, err := zw.Create("word/_rels/document.xml.rels")
	if err != nil {
		t.Fatalf("create rels entry: %v", err)
	}
	if _, err := rels.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`)); err != nil {
		t.Fatalf("write rels entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTextFromBytes_ZipDocxNormalizes(t *testing.T) {
	data := buildDocx(t, `<w:p><w:r><w:t>Offer Letter</w:t></w:r></w:p><w:p><w:r><w:t>Acme Corp</w:t></w:r></w:p>`)

	text, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "test.docx")
	if err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
	if text != "Offer Letter\nAcme Corp" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractTextFromBytes_RealZipRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = ExtractTextFromBytes(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if !strings.Contains(err.Error(), "application/zip") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNativeReadsFilesByExtension(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "letter.txt")
	if err := os.WriteFile(txt, []byte("Completion Certificate"), 0o644); err != nil {
		t.Fatal(err)
	}
	docx := filepath.Join(dir, "feedback.docx")
	if err := os.WriteFile(docx, buildDocx(t, `<w:p><w:r><w:t>Student Feedback</w:t></w:r></w:p>`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewNative().ExtractText(context.Background(), txt)
	if err != nil || got != "Completion Certificate" {
		t.Fatalf("txt: got %q, %v", got, err)
	}
	got, err = NewNative().ExtractText(context.Background(), docx)
	if err != nil || got != "Student Feedback" {
		t.Fatalf("docx: got %q, %v", got, err)
	}
	if _, err := NewNative().ExtractText(context.Background(), filepath.Join(dir, "missing.pdf")); err == nil {
		t.Fatal("expected read error for missing file")
	}
}

func TestNativeRejectsBrokenPDF(t *testing.T) {
	p := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(p, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewNative().ExtractText(context.Background(), p); err == nil {
		t.Fatal("expected pdf parse error")
	}
}
