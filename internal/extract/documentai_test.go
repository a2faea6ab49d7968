package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentAISendsRawDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.PDF")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 scanned"), 0o600))

	var got *documentaipb.ProcessRequest
	d := &DocumentAI{
		processor: processorName("proj", "us", "abc123"),
		process: func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
			got = req
			return &documentaipb.ProcessResponse{Document: &documentaipb.Document{Text: "  Completion Certificate\n"}}, nil
		},
	}

	text, err := d.ExtractText(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Completion Certificate", text)

	require.NotNil(t, got)
	assert.Equal(t, "projects/proj/locations/us/processors/abc123", got.GetName())
	assert.Equal(t, "application/pdf", got.GetRawDocument().GetMimeType())
	assert.Equal(t, []byte("%PDF-1.4 scanned"), got.GetRawDocument().GetContent())
}

func TestDocumentAIRejectsUnsupportedType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "letter.docx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	d := &DocumentAI{process: func(context.Context, *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
		t.Fatal("process should not be called")
		return nil, nil
	}}
	_, err := d.ExtractText(context.Background(), path)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestDocumentAIWrapsProcessError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))

	boom := errors.New("quota exceeded")
	d := &DocumentAI{process: func(context.Context, *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
		return nil, boom
	}}
	_, err := d.ExtractText(context.Background(), path)
	assert.ErrorIs(t, err, boom)
}

func TestProcessorNameRequiresAllParts(t *testing.T) {
	assert.Equal(t, "", processorName("proj", "", "id"))
	_, err := NewDocumentAI(context.Background(), "", "us", "id")
	assert.Error(t, err)
}
