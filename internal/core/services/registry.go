package services

import (
	"context"
	"sync"
	"time"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driving"
	"github.com/arcanum-labs/grimoire/internal/logger"
)

const (
	// defaultFlushInterval is how often rolling stats are persisted.
	defaultFlushInterval = 30 * time.Second

	// flushTimeout bounds a single persistence attempt.
	flushTimeout = 5 * time.Second
)

// modelEntry pairs a descriptor with its rolling stats. Each entry has its
// own lock so invocations against different models never contend.
type modelEntry struct {
	mu         sync.Mutex
	descriptor domain.ModelDescriptor
	stats      domain.ModelStats
}

// ModelRegistry holds the model catalogue and its rolling runtime
// statistics. Descriptors are loaded once at construction and are never
// deleted afterwards; deactivation is the only way to take a model out
// of routing.
//
// Stats persistence is best effort: when a stats store is configured the
// registry loads persisted counters at Start and flushes snapshots on a
// background interval and at Stop. A failing store never affects callers.
type ModelRegistry struct {
	store driven.ModelStatsStore

	mu      sync.RWMutex
	entries map[string]*modelEntry
	order   []string

	flushInterval time.Duration

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Ensure ModelRegistry implements the interface.
var _ driving.ModelsService = (*ModelRegistry)(nil)

// RegistryOption configures a ModelRegistry.
type RegistryOption func(*ModelRegistry)

// WithStatsStore enables stats persistence through the given store.
func WithStatsStore(store driven.ModelStatsStore) RegistryOption {
	return func(r *ModelRegistry) {
		r.store = store
	}
}

// WithFlushInterval overrides how often stats are persisted.
func WithFlushInterval(interval time.Duration) RegistryOption {
	return func(r *ModelRegistry) {
		if interval > 0 {
			r.flushInterval = interval
		}
	}
}

// NewModelRegistry creates a registry from a model catalogue.
// The catalogue must be non-empty and free of duplicate names; every
// descriptor must validate.
func NewModelRegistry(catalog []domain.ModelDescriptor, opts ...RegistryOption) (*ModelRegistry, error) {
	if len(catalog) == 0 {
		return nil, domain.Errorf(domain.CodeInvalidInput, "model catalogue is empty")
	}

	r := &ModelRegistry{
		entries:       make(map[string]*modelEntry, len(catalog)),
		order:         make([]string, 0, len(catalog)),
		flushInterval: defaultFlushInterval,
	}

	for _, opt := range opts {
		opt(r)
	}

	for _, desc := range catalog {
		if err := desc.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.entries[desc.Name]; exists {
			return nil, domain.Errorf(domain.CodeInvalidInput, "duplicate model %q in catalogue", desc.Name)
		}
		r.entries[desc.Name] = &modelEntry{descriptor: desc}
		r.order = append(r.order, desc.Name)
	}

	return r, nil
}

// Start loads persisted stats and begins the background flush loop.
// It is a no-op without a stats store, and idempotent otherwise.
func (r *ModelRegistry) Start(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	r.runMu.Lock()
	if r.running {
		r.runMu.Unlock()
		return nil
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.runMu.Unlock()

	r.loadStats(ctx)

	r.wg.Add(1)
	go r.flushLoop()

	return nil
}

// Stop halts the flush loop and persists a final snapshot.
func (r *ModelRegistry) Stop() error {
	r.runMu.Lock()
	if !r.running {
		r.runMu.Unlock()
		return nil
	}
	r.running = false
	close(r.stopCh)
	r.runMu.Unlock()

	r.wg.Wait()
	r.flush(context.Background())

	return nil
}

// List returns a snapshot of every registered model in catalogue order.
func (r *ModelRegistry) List(_ context.Context) ([]domain.ModelSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshots := make([]domain.ModelSnapshot, 0, len(r.order))
	for _, name := range r.order {
		snapshots = append(snapshots, r.entries[name].snapshot())
	}
	return snapshots, nil
}

// Get returns a single model snapshot by name.
func (r *ModelRegistry) Get(_ context.Context, name string) (*domain.ModelSnapshot, error) {
	entry, ok := r.lookup(name)
	if !ok {
		return nil, domain.Errorf(domain.CodeNotFound, "model %q is not registered", name)
	}
	snap := entry.snapshot()
	return &snap, nil
}

// SetActive activates or deactivates a model. Stats survive deactivation.
func (r *ModelRegistry) SetActive(_ context.Context, name string, active bool) error {
	entry, ok := r.lookup(name)
	if !ok {
		return domain.Errorf(domain.CodeNotFound, "model %q is not registered", name)
	}

	entry.mu.Lock()
	changed := entry.descriptor.Active != active
	entry.descriptor.Active = active
	entry.mu.Unlock()

	if changed {
		state := "deactivated"
		if active {
			state = "activated"
		}
		logger.Info("Model %q %s", name, state)
	}
	return nil
}

// RecordInvocation folds one generation outcome into a model's rolling
// stats. Latency is smoothed with an exponentially weighted moving
// average (alpha 0.5) so recent calls dominate. Records for models not
// in the catalogue are dropped; the method never blocks on I/O and
// never reports an error to the caller.
func (r *ModelRegistry) RecordInvocation(name string, success bool, latency time.Duration) {
	entry, ok := r.lookup(name)
	if !ok {
		logger.Warn("Dropping invocation record for unknown model %q", name)
		return
	}

	ms := float64(latency) / float64(time.Millisecond)
	if ms < 0 {
		ms = 0
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if success {
		entry.stats.SuccessCount++
	} else {
		entry.stats.FailureCount++
	}
	if entry.stats.LatencyEWMAMs == 0 {
		entry.stats.LatencyEWMAMs = ms
	} else {
		entry.stats.LatencyEWMAMs = (entry.stats.LatencyEWMAMs + ms) / 2
	}
	entry.stats.LastInvokedAt = time.Now()
}

// lookup finds an entry by name. Entries are never removed, so the
// returned pointer stays valid for the registry's lifetime.
func (r *ModelRegistry) lookup(name string) (*modelEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	return entry, ok
}

// snapshot copies the entry under its lock.
func (e *modelEntry) snapshot() domain.ModelSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.ModelSnapshot{Descriptor: e.descriptor, Stats: e.stats}
}

// loadStats restores persisted counters for known models. Failures are
// logged and ignored; the registry then starts from zeroed stats.
func (r *ModelRegistry) loadStats(ctx context.Context) {
	persisted, err := r.store.LoadStats(ctx)
	if err != nil {
		logger.Warn("Failed to load model stats: %v", err)
		return
	}

	applied := 0
	for name, stats := range persisted {
		entry, ok := r.lookup(name)
		if !ok {
			logger.Debug("Ignoring persisted stats for unknown model %q", name)
			continue
		}
		entry.mu.Lock()
		entry.stats = stats
		entry.mu.Unlock()
		applied++
	}

	if applied > 0 {
		logger.Info("Restored stats for %d models", applied)
	}
}

// flushLoop persists stats on a fixed interval until Stop is called.
func (r *ModelRegistry) flushLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.flush(context.Background())
		}
	}
}

// flush writes a stats snapshot to the store. Errors are logged, never
// propagated.
func (r *ModelRegistry) flush(ctx context.Context) {
	if r.store == nil {
		return
	}

	r.mu.RLock()
	snapshot := make(map[string]domain.ModelStats, len(r.entries))
	for name, entry := range r.entries {
		entry.mu.Lock()
		snapshot[name] = entry.stats
		entry.mu.Unlock()
	}
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	if err := r.store.SaveStats(ctx, snapshot); err != nil {
		logger.Warn("Failed to persist model stats: %v", err)
		return
	}
	logger.Debug("Persisted stats for %d models", len(snapshot))
}
