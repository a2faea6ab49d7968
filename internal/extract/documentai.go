package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"interntrack-backend/internal/shared/telemetry"
)

// online processing rejects larger payloads
const documentAIMaxBytes = 20 << 20

const documentAITimeout = 2 * time.Minute

type processFunc func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error)

// DocumentAI OCRs scanned PDFs and images with a Google Document AI processor.
type DocumentAI struct {
	processor string
	process   processFunc
	close     func() error
}

// NewDocumentAI connects to the regional endpoint for location ("us", "eu").
func NewDocumentAI(ctx context.Context, project, location, processorID string, opts ...option.ClientOption) (*DocumentAI, error) {
	name := processorName(project, location, processorID)
	if name == "" {
		return nil, fmt.Errorf("documentai: project, location and processor are required")
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", strings.TrimSpace(location))
	client, err := documentai.NewDocumentProcessorClient(ctx, append([]option.ClientOption{option.WithEndpoint(endpoint)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	return &DocumentAI{
		processor: name,
		process: func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
			return client.ProcessDocument(ctx, req)
		},
		close: client.Close,
	}, nil
}

// ExtractText sends the file inline and returns the recognised text.
func (d *DocumentAI) ExtractText(ctx context.Context, path string) (string, error) {
	mimeType, ok := documentAIMimeType(path)
	if !ok {
		return "", fmt.Errorf("%w: documentai cannot read %s", ErrUnsupported, filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("documentai read %s: %w", path, err)
	}
	if len(data) > documentAIMaxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds the inline limit", ErrUnsupported, len(data))
	}

	ctx, cancel := context.WithTimeout(ctx, documentAITimeout)
	defer cancel()

	start := time.Now()
	resp, err := d.process(ctx, &documentaipb.ProcessRequest{
		Name: d.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: data, MimeType: mimeType},
		},
	})
	if err != nil {
		return "", fmt.Errorf("documentai process: %w", err)
	}
	text := strings.TrimSpace(resp.GetDocument().GetText())
	telemetry.Debug("extract.documentai_ok", map[string]any{
		"mime_type":   mimeType,
		"chars":       len(text),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return text, nil
}

func (d *DocumentAI) Close() error {
	if d == nil || d.close == nil {
		return nil
	}
	return d.close()
}

func documentAIMimeType(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return mimePDF, true
	case ".png":
		return "image/png", true
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".tif", ".tiff":
		return "image/tiff", true
	case ".gif":
		return "image/gif", true
	}
	return "", false
}

func processorName(project, location, processorID string) string {
	project, location, processorID = strings.TrimSpace(project), strings.TrimSpace(location), strings.TrimSpace(processorID)
	if project == "" || location == "" || processorID == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
}
