package driven

import "github.com/arcanum-labs/grimoire/internal/core/domain"

// AIConfigValidator validates AI backend configurations.
// Implementations verify that configurations are valid by testing
// connectivity to the underlying services.
type AIConfigValidator interface {
	// ValidateEmbedding validates an embedding configuration by pinging the provider.
	// Returns nil if configuration is valid or not configured.
	ValidateEmbedding(settings *domain.EmbeddingSettings) error

	// ValidateGeneration validates a generation provider configuration by
	// pinging it with a throwaway model handle.
	// Returns nil if configuration is valid or not configured.
	ValidateGeneration(provider domain.AIProvider, settings domain.ProviderSettings) error
}
