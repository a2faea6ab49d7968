package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"interntrack-backend/internal/shared/telemetry"
)

// ErrNoText is returned by Fallback when every step came back blank or failed.
var ErrNoText = errors.New("no text extracted")

// Fallback tries each extractor in order and returns the first non-blank
// text. Scanned PDFs come back blank from text extractors, so an OCR
// extractor is usually last.
type Fallback struct {
	steps []Extractor
}

// NewFallback returns a chain over steps, skipping nil entries.
func NewFallback(steps ...Extractor) *Fallback {
	f := &Fallback{}
	for _, s := range steps {
		if s != nil {
			f.steps = append(f.steps, s)
		}
	}
	return f
}

// ExtractText returns the first non-blank result. When no step produces text
// the result is ErrNoText joined with any step errors.
func (f *Fallback) ExtractText(ctx context.Context, path string) (string, error) {
	if len(f.steps) == 0 {
		return "", fmt.Errorf("no extractors configured")
	}
	var (
		errs      []error
		succeeded bool
	)
	for i, step := range f.steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := step.ExtractText(ctx, path)
		if err != nil {
			errs = append(errs, err)
			telemetry.Warn("extract.step_failed", map[string]any{"step": i, "error": err})
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
		succeeded = true
		telemetry.Debug("extract.step_blank", map[string]any{"step": i})
	}
	if succeeded && len(errs) == 0 {
		return "", ErrNoText
	}
	return "", errors.Join(append([]error{ErrNoText}, errs...)...)
}

// Close closes every step that holds a client.
func (f *Fallback) Close() error {
	var errs []error
	for _, step := range f.steps {
		if c, ok := step.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
