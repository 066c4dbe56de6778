package driving

import (
	"context"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

// QueryService answers questions, optionally grounded in the knowledge base.
type QueryService interface {
	// Answer runs one request through the answer pipeline: retrieve
	// context (unless disabled), pick a model, generate, cite sources.
	Answer(ctx context.Context, req domain.QueryRequest) (*domain.Answer, error)
}
