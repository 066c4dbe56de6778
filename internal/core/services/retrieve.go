package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
	"github.com/arcanum-labs/grimoire/internal/logger"
)

// Retriever embeds a question and finds the stored chunks most similar
// to it. An empty result is a normal outcome, not an error: it means the
// knowledge base holds nothing relevant above the similarity floor.
type Retriever struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	docs     driven.DocumentStore
	defaults domain.RetrievalSettings
}

// NewRetriever creates a retriever. Zero-valued defaults fall back to
// the documented retrieval thresholds.
func NewRetriever(
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	docs driven.DocumentStore,
	defaults domain.RetrievalSettings,
) *Retriever {
	base := domain.DefaultAppSettings().Retrieval
	if defaults.TopK <= 0 {
		defaults.TopK = base.TopK
	}
	if defaults.MinSimilarity < 0 {
		defaults.MinSimilarity = base.MinSimilarity
	}

	return &Retriever{
		embedder: embedder,
		vectors:  vectors,
		docs:     docs,
		defaults: defaults,
	}
}

// Retrieve returns up to topK chunks with similarity at or above the
// floor, ordered by similarity descending. Equal similarities are
// ordered by most recent ingestion, then by chunk position, so results
// are deterministic.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.Errorf(domain.CodeInvalidInput, "query must not be empty")
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = r.defaults.TopK
	}
	minSimilarity := opts.MinSimilarity
	if minSimilarity < 0 {
		minSimilarity = r.defaults.MinSimilarity
	}

	logger.Debug("Retrieving top %d chunks (floor %.2f) for query %q", topK, minSimilarity, query)

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.vectors.Search(ctx, embedding, topK, minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(hits) == 0 {
		logger.Debug("No chunks above similarity floor %.2f", minSimilarity)
		return []domain.RetrievedChunk{}, nil
	}

	results := r.hydrate(ctx, hits)
	sortRetrieved(results)

	logger.Debug("Retrieved %d chunks (top similarity %.3f)", len(results), topSimilarity(results))
	return results, nil
}

// hydrate loads chunk and document rows for each hit. Hits whose chunk
// or document has been deleted since indexing are skipped rather than
// failing the whole retrieval.
func (r *Retriever) hydrate(ctx context.Context, hits []driven.VectorHit) []domain.RetrievedChunk {
	docCache := make(map[string]*domain.Document)
	results := make([]domain.RetrievedChunk, 0, len(hits))

	for _, hit := range hits {
		chunk, err := r.docs.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("Skipping stale index entry for chunk %s", hit.ChunkID)
				continue
			}
			logger.Warn("Failed to load chunk %s: %v", hit.ChunkID, err)
			continue
		}

		doc, cached := docCache[hit.DocumentID]
		if !cached {
			doc, err = r.docs.GetDocument(ctx, hit.DocumentID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					logger.Debug("Skipping chunk %s of deleted document %s", hit.ChunkID, hit.DocumentID)
				} else {
					logger.Warn("Failed to load document %s: %v", hit.DocumentID, err)
				}
				docCache[hit.DocumentID] = nil
				continue
			}
			docCache[hit.DocumentID] = doc
		}
		if doc == nil {
			continue
		}

		ingestedAt := hit.IngestedAt
		if ingestedAt.IsZero() {
			ingestedAt = doc.CreatedAt
		}

		results = append(results, domain.RetrievedChunk{
			Document:   *doc,
			Chunk:      *chunk,
			Similarity: hit.Similarity,
			IngestedAt: ingestedAt,
		})
	}

	return results
}

// sortRetrieved orders results by similarity descending, breaking ties
// by most recent ingestion, then chunk position, then chunk ID.
func sortRetrieved(results []domain.RetrievedChunk) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if !results[i].IngestedAt.Equal(results[j].IngestedAt) {
			return results[i].IngestedAt.After(results[j].IngestedAt)
		}
		if results[i].Chunk.Position != results[j].Chunk.Position {
			return results[i].Chunk.Position < results[j].Chunk.Position
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
}

// topSimilarity returns the best similarity in an ordered result set,
// or 0 for an empty set.
func topSimilarity(results []domain.RetrievedChunk) float64 {
	if len(results) == 0 {
		return 0
	}
	return results[0].Similarity
}
