package driving

import "github.com/arcanum-labs/grimoire/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetVectorBackend selects the vector store backend used at startup.
	SetVectorBackend(backend domain.VectorBackend) error

	// Validate checks if current settings are internally consistent.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateGenerationConfig validates a generation provider's connection
	// settings by pinging it.
	ValidateGenerationConfig(provider domain.AIProvider) error
}
