// Package pdf extracts resume text in-process with ledongthuc/pdf.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/textextractor"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/pkg/textx"
)

// Extractor implements domain.TextExtractor without external services.
type Extractor struct{}

var _ domain.TextExtractor = Extractor{}

// New returns a local extractor.
func New() Extractor { return Extractor{} }

// Extract returns the plain text of a PDF or text document.
func (Extractor) Extract(ctx context.Context, fileName string, data []byte) (string, error) {
	format, mime := textextractor.Sniff(data)
	switch format {
	case textextractor.FormatText:
		return textx.Clean(string(data)), nil
	case textextractor.FormatPDF:
		text, err := plainText(data)
		if err != nil {
			slog.WarnContext(ctx, "pdf parse failed", slog.String("file_name", fileName), slog.Any("error", err))
			return "", fmt.Errorf("op=pdf.extract: %w: %v", domain.ErrUnsupportedFormat, err)
		}
		return textx.Clean(text), nil
	default:
		return "", fmt.Errorf("op=pdf.extract: %w: %s", domain.ErrUnsupportedFormat, mime)
	}
}

// plainText recovers from parser panics on malformed documents.
func plainText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	rd, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rd); err != nil {
		return "", err
	}
	return buf.String(), nil
}
