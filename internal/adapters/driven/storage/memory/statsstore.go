package memory

import (
	"context"
	"sync"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
)

// Ensure StatsStore implements the interface.
var _ driven.ModelStatsStore = (*StatsStore)(nil)

// StatsStore is an in-memory implementation of driven.ModelStatsStore.
// Contents vanish on restart; useful for tests and ephemeral runs.
type StatsStore struct {
	mu    sync.RWMutex
	stats map[string]domain.ModelStats
}

// NewStatsStore creates a new in-memory stats store.
func NewStatsStore() *StatsStore {
	return &StatsStore{stats: make(map[string]domain.ModelStats)}
}

// LoadStats returns all persisted stats keyed by model name.
func (s *StatsStore) LoadStats(_ context.Context) (map[string]domain.ModelStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.ModelStats, len(s.stats))
	for name, stats := range s.stats {
		out[name] = stats
	}
	return out, nil
}

// SaveStats persists a stats snapshot for the named models.
func (s *StatsStore) SaveStats(_ context.Context, stats map[string]domain.ModelStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, st := range stats {
		s.stats[name] = st
	}
	return nil
}
