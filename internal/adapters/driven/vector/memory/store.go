// Package memory provides an in-process brute-force vector store.
// Every search scans all entries, which is fine for the corpus sizes a
// local knowledge base holds; persistent deployments use Milvus or
// pgvector instead.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store holds vector entries in memory. Contents are lost on restart;
// the reindex operation rebuilds them from persisted chunk embeddings.
type Store struct {
	mu      sync.RWMutex
	entries map[string]driven.VectorEntry
	byDoc   map[string]map[string]struct{}
	dims    int
}

// NewStore creates an empty store. A positive dims enforces that every
// added embedding has that dimension; zero disables the check.
func NewStore(dims int) *Store {
	return &Store{
		entries: make(map[string]driven.VectorEntry),
		byDoc:   make(map[string]map[string]struct{}),
		dims:    dims,
	}
}

// Add inserts entries, overwriting any prior entry for the same chunk ID.
func (s *Store) Add(_ context.Context, entries []driven.VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		if entry.ChunkID == "" {
			return domain.Errorf(domain.CodeInvalidInput, "vector entry has no chunk ID")
		}
		if s.dims > 0 && len(entry.Embedding) != s.dims {
			return domain.Errorf(domain.CodeInvalidInput,
				"embedding for chunk %s has %d dimensions, store expects %d",
				entry.ChunkID, len(entry.Embedding), s.dims)
		}

		// An overwrite may move the chunk to a different document
		if prior, ok := s.entries[entry.ChunkID]; ok {
			s.unlink(prior.DocumentID, entry.ChunkID)
		}

		stored := entry
		stored.Embedding = make([]float32, len(entry.Embedding))
		copy(stored.Embedding, entry.Embedding)
		s.entries[entry.ChunkID] = stored

		if s.byDoc[entry.DocumentID] == nil {
			s.byDoc[entry.DocumentID] = make(map[string]struct{})
		}
		s.byDoc[entry.DocumentID][entry.ChunkID] = struct{}{}
	}
	return nil
}

// DeleteByDocument removes every entry belonging to a document.
// Deleting an unknown document is not an error.
func (s *Store) DeleteByDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for chunkID := range s.byDoc[documentID] {
		delete(s.entries, chunkID)
	}
	delete(s.byDoc, documentID)
	return nil
}

// Search scans every entry and returns up to topK hits with similarity
// of at least minSimilarity, ordered by similarity descending. A
// non-positive topK returns no hits.
func (s *Store) Search(_ context.Context, query []float32, topK int, minSimilarity float64) ([]driven.VectorHit, error) {
	if topK <= 0 {
		return []driven.VectorHit{}, nil
	}

	s.mu.RLock()
	hits := make([]driven.VectorHit, 0, len(s.entries))
	for _, entry := range s.entries {
		similarity := CosineSimilarity(query, entry.Embedding)
		if similarity < minSimilarity {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:    entry.ChunkID,
			DocumentID: entry.DocumentID,
			Similarity: similarity,
			IngestedAt: entry.IngestedAt,
		})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		if !hits[i].IngestedAt.Equal(hits[j].IngestedAt) {
			return hits[i].IngestedAt.After(hits[j].IngestedAt)
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Ping always succeeds: the store lives in this process.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Close drops all entries.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]driven.VectorEntry)
	s.byDoc = make(map[string]map[string]struct{})
	return nil
}

// Len returns the number of indexed entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// unlink removes a chunk from a document's index set. Caller holds the
// write lock.
func (s *Store) unlink(documentID, chunkID string) {
	set := s.byDoc[documentID]
	delete(set, chunkID)
	if len(set) == 0 {
		delete(s.byDoc, documentID)
	}
}

// CosineSimilarity returns the cosine similarity of two vectors clamped
// to [0,1]. Mismatched lengths and zero vectors score 0, so degenerate
// inputs never rank above real matches.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		// Floating point can push a perfect match a hair over 1
		return 1
	}
	return cos
}
