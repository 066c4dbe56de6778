package driving

import (
	"context"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

// ModelRouter picks the generation model for a request.
type ModelRouter interface {
	// Recommend returns the best active model for the category under
	// the resource budget (budget <= 0 means unconstrained). When no
	// model in the category fits, it falls back to the cheapest active
	// lightweight model, then to the cheapest active model of any
	// category. Returns domain.ErrResourceExhausted only when every
	// registered model is deactivated.
	Recommend(ctx context.Context, category domain.ModelCategory, budget int) (*domain.ModelDescriptor, error)
}
