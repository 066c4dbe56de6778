package driving

import (
	"context"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

// ModelsService exposes the model registry to external actors.
type ModelsService interface {
	// List returns a snapshot of every registered model with its
	// rolling statistics, active and deactivated alike.
	List(ctx context.Context) ([]domain.ModelSnapshot, error)

	// Get returns a single model snapshot by name.
	// Returns domain.ErrNotFound for unknown models.
	Get(ctx context.Context, name string) (*domain.ModelSnapshot, error)

	// SetActive activates or deactivates a model. Deactivated models
	// keep their statistics and can be reactivated later.
	SetActive(ctx context.Context, name string, active bool) error
}
