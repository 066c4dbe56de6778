package domain

import "time"

// Document represents an ingested document with metadata.
// It is the canonical representation after normalisation.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Format is the source MIME type (e.g. "application/pdf").
	Format string

	// URI is the original location (file path, URL) when known.
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full text content after normalisation.
	// This is the complete document text before chunking.
	Content string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is the ingestion timestamp. Re-ingesting under the same
	// ID refreshes it; retrieval ties break on this value.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time
}

// Chunk represents a retrievable unit within a document.
// Documents are split into overlapping chunks so retrieval can return
// spans small enough to fit a prompt context window.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector representation for similarity search.
	// Immutable once created; re-embedding produces a new chunk set.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// Excerpt returns the first max characters of the chunk content,
// cut on a rune boundary, for use in citations.
func (c Chunk) Excerpt(max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(c.Content)
	if len(runes) <= max {
		return c.Content
	}
	return string(runes[:max]) + "..."
}
