package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

func TestExtract_PlainText(t *testing.T) {
	out, err := New().Extract(context.Background(), "resume.txt", []byte("Jane Doe\n\n  Go,   SQL\x00\n"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo, SQL", out)
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	_, err := New().Extract(context.Background(), "resume.pdf", png)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestExtract_MalformedPDF(t *testing.T) {
	_, err := New().Extract(context.Background(), "resume.pdf", []byte("%PDF-1.4\nthis is not really a pdf"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestExtract_ZipIsNotAResume(t *testing.T) {
	zip := []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00")
	_, err := New().Extract(context.Background(), "resume.docx", zip)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}
