package driving

import (
	"context"
	"time"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

// DocumentService manages documents in the knowledge base.
type DocumentService interface {
	// List returns all stored documents, most recently ingested first.
	List(ctx context.Context) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// GetContent returns the document's full normalised content.
	GetContent(ctx context.Context, documentID string) (string, error)

	// GetDetails returns document metadata for display.
	GetDetails(ctx context.Context, documentID string) (*DocumentDetails, error)

	// Delete removes a document, its chunks and its index entries.
	// Returns domain.ErrNotFound when the document does not exist.
	Delete(ctx context.Context, documentID string) error
}

// DocumentDetails provides a standardised view of document metadata.
type DocumentDetails struct {
	// ID is the unique document identifier.
	ID string

	// Title is the document title.
	Title string

	// Format is the MIME type the document was ingested as.
	Format string

	// URI is the original location.
	URI string

	// ChunkCount is the number of chunks.
	ChunkCount int

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time

	// Metadata contains flattened key-value pairs for display.
	Metadata map[string]string
}
