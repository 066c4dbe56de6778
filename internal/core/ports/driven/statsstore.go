package driven

import (
	"context"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

// ModelStatsStore persists rolling model statistics across restarts.
// Persistence is best effort: the registry keeps serving from memory
// when loads or saves fail, so implementations should return errors
// rather than block.
type ModelStatsStore interface {
	// LoadStats returns all persisted stats keyed by model name.
	// An empty map and no error means nothing has been persisted yet.
	LoadStats(ctx context.Context) (map[string]domain.ModelStats, error)

	// SaveStats persists a stats snapshot, replacing any prior state
	// for the named models.
	SaveStats(ctx context.Context, stats map[string]domain.ModelStats) error
}
