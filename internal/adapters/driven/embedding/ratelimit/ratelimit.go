// Package ratelimit throttles calls to an embedding backend. Cloud
// providers meter requests per second, and batch ingestion can burst
// well past those limits without smoothing.
package ratelimit

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService throttles an underlying embedding service with a
// token bucket.
type EmbeddingService struct {
	inner   driven.EmbeddingService
	limiter *rate.Limiter
}

// New wraps an embedding service with a limit of rps requests per
// second and the given burst. A burst below one is raised to one, and
// a non-positive rps disables throttling.
func New(inner driven.EmbeddingService, rps float64, burst int) *EmbeddingService {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &EmbeddingService{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

// Embed waits for rate capacity, then delegates.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.Embed(ctx, text)
}

// EmbedBatch treats the whole batch as one request against the limit.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.EmbedBatch(ctx, texts)
}

// Dimensions returns the underlying embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the underlying model name.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping bypasses the limiter; health checks do not consume request budget.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close releases the underlying service.
func (s *EmbeddingService) Close() error {
	return s.inner.Close()
}

func (s *EmbeddingService) wait(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.WrapError(domain.ErrTimeout, err)
		}
		return domain.WrapError(domain.ErrResourceExhausted, err)
	}
	return nil
}
