// Package ai constructs embedding and generation backends from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	cacheembed "github.com/arcanum-labs/grimoire/internal/adapters/driven/embedding/cache"
	ollamaembed "github.com/arcanum-labs/grimoire/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/arcanum-labs/grimoire/internal/adapters/driven/embedding/openai"
	ratelimitembed "github.com/arcanum-labs/grimoire/internal/adapters/driven/embedding/ratelimit"
	anthropicllm "github.com/arcanum-labs/grimoire/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/arcanum-labs/grimoire/internal/adapters/driven/llm/ollama"
	openaillm "github.com/arcanum-labs/grimoire/internal/adapters/driven/llm/openai"
	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingService builds the embedding stack for the configured
// provider: the raw backend, a rate limiter when one is configured, and
// an LRU cache on the outside so hits never consume rate budget.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := createEmbeddingBackend(settings)
	if err != nil {
		return nil, err
	}

	if settings.RateLimit > 0 {
		svc = ratelimitembed.New(svc, settings.RateLimit, settings.RateBurst)
	}

	cached, err := cacheembed.New(svc, settings.CacheSize)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return cached, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'grimoire config validate' to diagnose",
			domain.ErrEmbeddingBackend, err)
	}

	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'grimoire config validate' to diagnose",
			domain.ErrEmbeddingBackend, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
// This is intended for validating credentials when configuration changes.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateGenerationConfig validates a provider connection by creating a
// throwaway generation service with the provider's default model and pinging it.
func ValidateGenerationConfig(provider domain.AIProvider, conn domain.ProviderSettings) error {
	svc, err := CreateLLMService(provider, "", conn, 0)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateLLMService creates a generation backend for the given provider and
// model. An empty model selects the provider's default. A zero timeout
// selects the provider's default.
func CreateLLMService(
	provider domain.AIProvider,
	model string,
	conn domain.ProviderSettings,
	timeout time.Duration,
) (driven.LLMService, error) {
	switch provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: conn.BaseURL,
			Model:   model,
			Timeout: timeout,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  conn.APIKey,
			BaseURL: conn.BaseURL,
			Model:   model,
			Timeout: timeout,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  conn.APIKey,
			BaseURL: conn.BaseURL,
			Model:   model,
			Timeout: timeout,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// createEmbeddingBackend creates the raw provider adapter.
func createEmbeddingBackend(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case domain.AIProviderOllama:
		dimensions := domain.EmbeddingDimensions()[settings.Model]
		if dimensions == 0 {
			dimensions = ollamaembed.DefaultDimensions
		}

		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: domain.EmbeddingDimensions()[settings.Model],
		})

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}
