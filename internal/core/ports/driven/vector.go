package driven

import (
	"context"
	"time"
)

// VectorStore indexes chunk embeddings for similarity search.
// The backend is selected once at startup: an in-memory index for
// ephemeral runs, Milvus or pgvector for persistent deployments.
// All backends expose identical semantics.
type VectorStore interface {
	// Add inserts entries into the index. Entries for chunk IDs that
	// are already indexed are overwritten.
	Add(ctx context.Context, entries []VectorEntry) error

	// DeleteByDocument removes every entry belonging to a document.
	// Deleting an unknown document is not an error.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Search finds the topK entries most similar to the query vector,
	// keeping only those with similarity of at least minSimilarity.
	// Results are ordered by similarity descending.
	Search(ctx context.Context, query []float32, topK int, minSimilarity float64) ([]VectorHit, error)

	// Ping verifies the backing index is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VectorEntry is one indexed chunk embedding.
type VectorEntry struct {
	// ChunkID identifies the chunk.
	ChunkID string

	// DocumentID identifies the parent document.
	DocumentID string

	// Embedding is the chunk's vector.
	Embedding []float32

	// IngestedAt is the parent document's ingestion time. Stored
	// alongside the vector so equal-similarity hits can be ordered
	// without hydrating documents.
	IngestedAt time.Time
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DocumentID is the matched chunk's parent document.
	DocumentID string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64

	// IngestedAt is the parent document's ingestion time.
	IngestedAt time.Time
}
