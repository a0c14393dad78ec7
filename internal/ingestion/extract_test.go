package ingestion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextPlainText(t *testing.T) {
	e := &TextExtractor{}

	text, err := e.ExtractText(Document{
		Bytes:    []byte("John Doe\r\n\r\n\r\n\r\nSKILLS\n- Go    programming\n- Kubernetes"),
		MimeType: "text/plain; charset=utf-8",
	})
	require.NoError(t, err)
	assert.Equal(t, "John Doe\n\nSKILLS\n- Go    programming\n- Kubernetes", text)
}

func TestExtractTextMissingMimeAssumesText(t *testing.T) {
	e := &TextExtractor{}
	text, err := e.ExtractText(Document{Bytes: []byte("plain content")})
	require.NoError(t, err)
	assert.Equal(t, "plain content", text)
}

func TestExtractTextUnsupportedFormat(t *testing.T) {
	e := &TextExtractor{}
	_, err := e.ExtractText(Document{Bytes: []byte("%PDF-1.4"), MimeType: "application/pdf"})
	require.Error(t, err)

	var ufe *UnsupportedFormatError
	require.True(t, errors.As(err, &ufe))
	assert.Equal(t, "application/pdf", ufe.MimeType)
}

func TestExtractTextFallback(t *testing.T) {
	e := &TextExtractor{Fallback: fallbackExtractor{}}
	text, err := e.ExtractText(Document{Bytes: []byte{0x25, 0x50}, MimeType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", text)
}

func TestExtractTextCorruptContent(t *testing.T) {
	e := &TextExtractor{}
	_, err := e.ExtractText(Document{Bytes: []byte{0xff, 0xfe, 0x00}, MimeType: "text/plain"})
	require.Error(t, err)

	var ee *ExtractionError
	assert.True(t, errors.As(err, &ee))
}

func TestExtractTextEmptyDocument(t *testing.T) {
	e := &TextExtractor{}
	_, err := e.ExtractText(Document{Bytes: []byte("   \n\n  "), MimeType: "text/plain"})
	require.Error(t, err)

	var ee *ExtractionError
	assert.True(t, errors.As(err, &ee))
}

type fallbackExtractor struct{}

func (fallbackExtractor) ExtractText(Document) (string, error) { return "from fallback", nil }

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"crlf", "a\r\nb", "a\nb"},
		{"heading preserved", "   # Heading\ntext", "# Heading\ntext"},
		{"bullets keep indent", "  - item one\n  - item two", "  - item one\n  - item two"},
		{"collapse spaces", "too    many   spaces", "too many spaces"},
		{"trim blank runs", "a\n\n\n\n\nb", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}
