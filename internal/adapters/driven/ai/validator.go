package ai

import (
	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(config)
}

// ValidateGeneration validates a provider connection by pinging the provider.
func (v *ConfigValidator) ValidateGeneration(provider domain.AIProvider, settings domain.ProviderSettings) error {
	return ValidateGenerationConfig(provider, settings)
}
