package ai

import (
	"errors"
	"sync"
	"time"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
	"github.com/arcanum-labs/grimoire/internal/logger"
)

// Ensure LLMPool implements the interface.
var _ driven.LLMPool = (*LLMPool)(nil)

// LLMPool holds one live generation backend per catalogue model.
// Backends are constructed up front and shared across requests; the
// catalogue is static after startup, so no locking is needed on reads
// beyond guarding Close.
type LLMPool struct {
	mu       sync.RWMutex
	backends map[string]driven.LLMService
	closed   bool
}

// PoolConfig holds provider connections used to construct backends.
type PoolConfig struct {
	// Providers maps each provider to its connection settings.
	Providers map[domain.AIProvider]domain.ProviderSettings

	// Timeout is the per-request generation timeout. Zero selects the
	// provider defaults.
	Timeout time.Duration
}

// NewLLMPool constructs backends for every model in the catalogue.
// Models whose provider is not configured are skipped with a warning;
// the router can still pick them, and Acquire reports the gap.
// Inactive models get backends too, since activation can change at runtime.
func NewLLMPool(catalog []domain.ModelDescriptor, cfg PoolConfig) *LLMPool {
	backends := make(map[string]driven.LLMService, len(catalog))
	for _, descriptor := range catalog {
		conn, ok := cfg.Providers[descriptor.Provider]
		if !ok && descriptor.Provider.RequiresAPIKey() {
			logger.Warn("Model %s skipped: provider %s is not configured", descriptor.Name, descriptor.Provider)
			continue
		}

		svc, err := CreateLLMService(descriptor.Provider, descriptor.Name, conn, cfg.Timeout)
		if err != nil {
			logger.Warn("Model %s skipped: %v", descriptor.Name, err)
			continue
		}
		backends[descriptor.Name] = svc
	}

	return &LLMPool{backends: backends}
}

// Acquire returns the backend serving the named model.
func (p *LLMPool) Acquire(name string) (driven.LLMService, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, domain.Errorf(domain.CodeInternal, "llm pool is closed")
	}

	svc, ok := p.backends[name]
	if !ok {
		return nil, domain.Errorf(domain.CodeNotFound, "no generation backend for model %q", name)
	}
	return svc, nil
}

// Size returns the number of pooled backends.
func (p *LLMPool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.backends)
}

// Close releases all pooled backends.
func (p *LLMPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for name, svc := range p.backends {
		if err := svc.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(p.backends, name)
	}
	return errors.Join(errs...)
}
