package driving

import (
	"context"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

// IngestService brings documents into the knowledge base.
type IngestService interface {
	// Ingest normalises, chunks, embeds and stores one document.
	// Re-using a document ID replaces the prior version atomically:
	// readers see either the old version or the new one, never a mix.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestReceipt, error)

	// Reindex rebuilds the vector index from stored chunks, re-using
	// persisted embeddings. Returns the number of chunks indexed.
	// Useful after switching vector backends.
	Reindex(ctx context.Context) (int, error)
}
