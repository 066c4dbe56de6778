// Package cache provides an LRU caching layer over an embedding service.
// Embedding the same text twice is common (re-ingesting edited documents,
// repeated questions), and backend calls dominate ingest latency.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
	"github.com/arcanum-labs/grimoire/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultSize is the cache capacity used when none is configured.
const DefaultSize = 2048

// EmbeddingService caches embeddings from an underlying service. Keys
// include the model name, so switching models never serves stale vectors.
type EmbeddingService struct {
	inner driven.EmbeddingService
	cache *lru.Cache[string, []float32]
}

// New wraps an embedding service with an LRU cache of the given
// capacity. A size of zero or less falls back to DefaultSize.
func New(inner driven.EmbeddingService, size int) (*EmbeddingService, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &EmbeddingService{inner: inner, cache: cache}, nil
}

// Embed returns the cached embedding when present, otherwise delegates.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := s.key(text)
	if embedding, ok := s.cache.Get(key); ok {
		return cloneVector(embedding), nil
	}

	embedding, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, cloneVector(embedding))
	return embedding, nil
}

// EmbedBatch serves cached entries and forwards only the misses to the
// underlying service in a single call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(texts))
	var missTexts []string
	var missIndexes []int
	for i, text := range texts {
		if embedding, ok := s.cache.Get(s.key(text)); ok {
			embeddings[i] = cloneVector(embedding)
			continue
		}
		missTexts = append(missTexts, text)
		missIndexes = append(missIndexes, i)
	}
	if len(missTexts) == 0 {
		return embeddings, nil
	}

	fetched, err := s.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fetched) != len(missTexts) {
		return nil, domain.Errorf(domain.CodeEmbeddingBackend,
			"embedding batch returned %d vectors for %d texts", len(fetched), len(missTexts))
	}

	for j, embedding := range fetched {
		i := missIndexes[j]
		embeddings[i] = embedding
		s.cache.Add(s.key(texts[i]), cloneVector(embedding))
	}

	logger.Debug("Embedding cache: %d hits, %d misses", len(texts)-len(missTexts), len(missTexts))
	return embeddings, nil
}

// Dimensions returns the underlying embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the underlying model name.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping delegates to the underlying service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close releases the underlying service.
func (s *EmbeddingService) Close() error {
	return s.inner.Close()
}

// Len reports the number of cached entries.
func (s *EmbeddingService) Len() int {
	return s.cache.Len()
}

// key hashes model and text together so entries never collide across
// models or texts with embedded separators.
func (s *EmbeddingService) key(text string) string {
	sum := sha256.Sum256([]byte(s.inner.ModelName() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// cloneVector copies an embedding so cache entries stay immutable even
// if a caller mutates the returned slice.
func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
