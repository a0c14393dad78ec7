package ingestion

import "fmt"

// UnsupportedFormatError indicates a document mime type the extractor cannot handle.
type UnsupportedFormatError struct {
	MimeType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported document format: %s", e.MimeType)
}

// ExtractionError indicates a document that matched a supported format but
// could not be decoded into usable text.
type ExtractionError struct {
	MimeType string
	Message  string
	Cause    error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed for %s: %s: %v", e.MimeType, e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction failed for %s: %s", e.MimeType, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
