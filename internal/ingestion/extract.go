// Package ingestion turns uploaded documents into cleaned plain text suitable
// for analysis. Rich formats (PDF, DOCX) are handled by an external extraction
// collaborator behind the Extractor interface; this package ships the plain
// text implementation and the shared cleaning pipeline.
package ingestion

import (
	"strings"
	"unicode/utf8"
)

// Document is a raw uploaded document plus its declared mime type.
type Document struct {
	Bytes    []byte
	MimeType string
}

// Extractor converts document bytes into plain text. Implementations return
// *UnsupportedFormatError for mime types they cannot handle and
// *ExtractionError for documents they cannot decode.
type Extractor interface {
	ExtractText(doc Document) (string, error)
}

// plainTextMimeTypes are the formats the built-in extractor accepts directly.
var plainTextMimeTypes = map[string]bool{
	"text/plain":      true,
	"text/markdown":   true,
	"text/x-markdown": true,
	"":                true, // missing tag, assume plain text and let UTF-8 checks catch binaries
}

// TextExtractor handles plain-text document formats. Anything binary is
// delegated to an external extraction collaborator, if configured.
type TextExtractor struct {
	// Fallback handles mime types this extractor does not support, such as
	// application/pdf routed to a document intelligence service. Nil means
	// those formats are rejected.
	Fallback Extractor
}

// ExtractText returns cleaned plain text for the document.
func (e *TextExtractor) ExtractText(doc Document) (string, error) {
	mime := normalizeMime(doc.MimeType)

	if !plainTextMimeTypes[mime] {
		if e.Fallback != nil {
			return e.Fallback.ExtractText(doc)
		}
		return "", &UnsupportedFormatError{MimeType: mime}
	}

	if !utf8.Valid(doc.Bytes) {
		return "", &ExtractionError{MimeType: mime, Message: "document is not valid UTF-8 text"}
	}

	text := CleanText(string(doc.Bytes))
	if text == "" {
		return "", &ExtractionError{MimeType: mime, Message: "document contains no text"}
	}
	return text, nil
}

// normalizeMime strips parameters like "; charset=utf-8" and lowercases the type.
func normalizeMime(mime string) string {
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = mime[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
