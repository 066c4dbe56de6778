package domain

// RawDocument represents opaque document bytes before normalisation.
// It is the ingestion pipeline's input.
type RawDocument struct {
	// URI is the original location (file path, URL) when known.
	URI string

	// MIMEType is the content type (e.g. "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains caller-supplied key-value pairs.
	Metadata map[string]any
}
