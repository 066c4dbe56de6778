package driven

import (
	"context"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for durable deployments or an in-memory map for tests.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks stores chunks for a document.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound when the document does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document, ordered by position.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	// Returns domain.ErrNotFound when the chunk does not exist.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// CountChunks returns the number of chunks stored for a document.
	CountChunks(ctx context.Context, documentID string) (int, error)

	// DeleteDocument removes a document and its chunks.
	// Returns domain.ErrNotFound when the document does not exist.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns all stored documents, most recently
	// ingested first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}
