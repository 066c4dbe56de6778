package services

import (
	"fmt"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedCacheSize = "embedding.cache_size"
	keyEmbedRateLimit = "embedding.rate_limit"
	keyEmbedRateBurst = "embedding.rate_burst"

	keyVectorBackend    = "vector.backend"
	keyVectorDims       = "vector.dimensions"
	keyVectorAddress    = "vector.address"
	keyVectorDSN        = "vector.dsn"
	keyVectorCollection = "vector.collection"

	keyRetrievalTopK   = "retrieval.top_k"
	keyRetrievalFloor  = "retrieval.min_similarity"
	keyRetrievalBudget = "retrieval.context_budget"

	keyRoutingCategory   = "routing.default_category"
	keyRoutingBudget     = "routing.default_budget"
	keyRoutingConfidence = "routing.neutral_confidence"

	keyGenMaxTokens = "generation.max_tokens"
	keyGenTemp      = "generation.temperature"
	keyGenTimeout   = "generation.timeout_seconds"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings. Keys absent from the
// config store fall back to the documented defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:  s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:     s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:   s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:    s.configStore.GetString(keyEmbedAPIKey),
			CacheSize: s.getInt(keyEmbedCacheSize, defaults.Embedding.CacheSize),
			RateLimit: s.getFloat(keyEmbedRateLimit, defaults.Embedding.RateLimit),
			RateBurst: s.getInt(keyEmbedRateBurst, defaults.Embedding.RateBurst),
		},
		Providers: s.getProviders(defaults.Providers),
		VectorStore: domain.VectorStoreSettings{
			Backend:    s.getBackend(keyVectorBackend, defaults.VectorStore.Backend),
			Dimensions: s.getInt(keyVectorDims, defaults.VectorStore.Dimensions),
			Address:    s.configStore.GetString(keyVectorAddress),
			DSN:        s.configStore.GetString(keyVectorDSN),
			Collection: s.getString(keyVectorCollection, defaults.VectorStore.Collection),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:          s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
			MinSimilarity: s.getFloat(keyRetrievalFloor, defaults.Retrieval.MinSimilarity),
			ContextBudget: s.getInt(keyRetrievalBudget, defaults.Retrieval.ContextBudget),
		},
		Routing: domain.RoutingSettings{
			DefaultCategory:   s.getCategory(keyRoutingCategory, defaults.Routing.DefaultCategory),
			DefaultBudget:     s.getInt(keyRoutingBudget, defaults.Routing.DefaultBudget),
			NeutralConfidence: s.getFloat(keyRoutingConfidence, defaults.Routing.NeutralConfidence),
		},
		Generation: domain.GenerationSettings{
			MaxTokens:      s.getInt(keyGenMaxTokens, defaults.Generation.MaxTokens),
			Temperature:    s.getFloat(keyGenTemp, defaults.Generation.Temperature),
			TimeoutSeconds: s.getInt(keyGenTimeout, defaults.Generation.TimeoutSeconds),
		},
		Pipeline: s.GetPipelineConfig(),
	}

	return settings, nil
}

// Save persists application settings.
//
//nolint:gocyclo // Flat field-by-field persistence.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	// Save embedding settings
	if err := s.configStore.Set(keyEmbedProvider, settings.Embedding.Provider.String()); err != nil {
		return fmt.Errorf("save embedding provider: %w", err)
	}
	if err := s.configStore.Set(keyEmbedModel, settings.Embedding.Model); err != nil {
		return fmt.Errorf("save embedding model: %w", err)
	}
	if err := s.configStore.Set(keyEmbedBaseURL, settings.Embedding.BaseURL); err != nil {
		return fmt.Errorf("save embedding base_url: %w", err)
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if err := s.configStore.Set(keyEmbedCacheSize, settings.Embedding.CacheSize); err != nil {
		return fmt.Errorf("save embedding cache_size: %w", err)
	}
	if err := s.configStore.Set(keyEmbedRateLimit, settings.Embedding.RateLimit); err != nil {
		return fmt.Errorf("save embedding rate_limit: %w", err)
	}
	if err := s.configStore.Set(keyEmbedRateBurst, settings.Embedding.RateBurst); err != nil {
		return fmt.Errorf("save embedding rate_burst: %w", err)
	}

	// Save generation provider connections
	for provider, ps := range settings.Providers {
		if err := s.configStore.Set(providerKey(provider, "base_url"), ps.BaseURL); err != nil {
			return fmt.Errorf("save %s base_url: %w", provider, err)
		}
		if ps.APIKey != "" {
			if err := s.configStore.Set(providerKey(provider, "api_key"), ps.APIKey); err != nil {
				return fmt.Errorf("save %s api_key: %w", provider, err)
			}
		}
	}

	// Save vector store settings
	if err := s.configStore.Set(keyVectorBackend, settings.VectorStore.Backend.String()); err != nil {
		return fmt.Errorf("save vector backend: %w", err)
	}
	if err := s.configStore.Set(keyVectorDims, settings.VectorStore.Dimensions); err != nil {
		return fmt.Errorf("save vector dimensions: %w", err)
	}
	if err := s.configStore.Set(keyVectorAddress, settings.VectorStore.Address); err != nil {
		return fmt.Errorf("save vector address: %w", err)
	}
	if err := s.configStore.Set(keyVectorDSN, settings.VectorStore.DSN); err != nil {
		return fmt.Errorf("save vector dsn: %w", err)
	}
	if err := s.configStore.Set(keyVectorCollection, settings.VectorStore.Collection); err != nil {
		return fmt.Errorf("save vector collection: %w", err)
	}

	// Save retrieval settings
	if err := s.configStore.Set(keyRetrievalTopK, settings.Retrieval.TopK); err != nil {
		return fmt.Errorf("save retrieval top_k: %w", err)
	}
	if err := s.configStore.Set(keyRetrievalFloor, settings.Retrieval.MinSimilarity); err != nil {
		return fmt.Errorf("save retrieval min_similarity: %w", err)
	}
	if err := s.configStore.Set(keyRetrievalBudget, settings.Retrieval.ContextBudget); err != nil {
		return fmt.Errorf("save retrieval context_budget: %w", err)
	}

	// Save routing settings
	if err := s.configStore.Set(keyRoutingCategory, settings.Routing.DefaultCategory.String()); err != nil {
		return fmt.Errorf("save routing default_category: %w", err)
	}
	if err := s.configStore.Set(keyRoutingBudget, settings.Routing.DefaultBudget); err != nil {
		return fmt.Errorf("save routing default_budget: %w", err)
	}
	if err := s.configStore.Set(keyRoutingConfidence, settings.Routing.NeutralConfidence); err != nil {
		return fmt.Errorf("save routing neutral_confidence: %w", err)
	}

	// Save generation settings
	if err := s.configStore.Set(keyGenMaxTokens, settings.Generation.MaxTokens); err != nil {
		return fmt.Errorf("save generation max_tokens: %w", err)
	}
	if err := s.configStore.Set(keyGenTemp, settings.Generation.Temperature); err != nil {
		return fmt.Errorf("save generation temperature: %w", err)
	}
	if err := s.configStore.Set(keyGenTimeout, settings.Generation.TimeoutSeconds); err != nil {
		return fmt.Errorf("save generation timeout_seconds: %w", err)
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate provider supports embeddings
	supported := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		defaults := domain.DefaultEmbeddingModels()
		if defaultModel, ok := defaults[provider]; ok {
			settings.Embedding.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		// Local providers need a base URL
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		// Cloud providers don't need a custom base URL
		settings.Embedding.BaseURL = ""
	}

	// Set API key
	settings.Embedding.APIKey = apiKey

	// Keep vector dimensions in step with the model
	dims := domain.EmbeddingDimensions()
	if d, ok := dims[settings.Embedding.Model]; ok {
		settings.VectorStore.Dimensions = d
	}

	return s.Save(settings)
}

// SetVectorBackend selects the vector store backend used at startup.
func (s *SettingsService) SetVectorBackend(backend domain.VectorBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid vector backend: %s", backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.VectorStore.Backend = backend

	// Milvus needs an endpoint; seed the conventional local one
	if backend == domain.VectorBackendMilvus && settings.VectorStore.Address == "" {
		settings.VectorStore.Address = "localhost:19530"
	}

	return s.Save(settings)
}

// Validate checks if current settings are internally consistent.
//
//nolint:gocyclo // Flat field-by-field checks.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.Provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", settings.Embedding.Provider)
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %s requires an API key", settings.Embedding.Provider)
	}

	if !settings.VectorStore.Backend.IsValid() {
		return fmt.Errorf("invalid vector backend: %s", settings.VectorStore.Backend)
	}
	if settings.VectorStore.Dimensions <= 0 {
		return fmt.Errorf("vector dimensions must be positive, got %d", settings.VectorStore.Dimensions)
	}
	switch settings.VectorStore.Backend {
	case domain.VectorBackendMilvus:
		if settings.VectorStore.Address == "" {
			return fmt.Errorf("milvus backend requires vector.address")
		}
	case domain.VectorBackendPgvector:
		if settings.VectorStore.DSN == "" {
			return fmt.Errorf("pgvector backend requires vector.dsn")
		}
	case domain.VectorBackendMemory:
		// No connection settings needed
	}

	if settings.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval top_k must be at least 1, got %d", settings.Retrieval.TopK)
	}
	if settings.Retrieval.MinSimilarity < 0 || settings.Retrieval.MinSimilarity > 1 {
		return fmt.Errorf("retrieval min_similarity must be in [0,1], got %g", settings.Retrieval.MinSimilarity)
	}

	if !settings.Routing.DefaultCategory.IsValid() {
		return fmt.Errorf("invalid routing default_category: %s", settings.Routing.DefaultCategory)
	}
	if settings.Routing.DefaultBudget < 0 {
		return fmt.Errorf("routing default_budget must not be negative, got %d", settings.Routing.DefaultBudget)
	}
	if settings.Routing.NeutralConfidence < 0 || settings.Routing.NeutralConfidence > 1 {
		return fmt.Errorf("routing neutral_confidence must be in [0,1], got %g", settings.Routing.NeutralConfidence)
	}

	if settings.Generation.Temperature < 0 {
		return fmt.Errorf("generation temperature must not be negative, got %g", settings.Generation.Temperature)
	}
	if settings.Generation.TimeoutSeconds < 0 {
		return fmt.Errorf("generation timeout_seconds must not be negative, got %d", settings.Generation.TimeoutSeconds)
	}

	for provider, ps := range settings.Providers {
		if !provider.IsValid() {
			return fmt.Errorf("unknown generation provider: %s", provider)
		}
		if !ps.IsConfigured(provider) {
			return fmt.Errorf("provider %s requires an API key", provider)
		}
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateGenerationConfig validates a generation provider's connection
// settings by pinging it.
func (s *SettingsService) ValidateGenerationConfig(provider domain.AIProvider) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid provider: %s", provider)
	}
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	ps, ok := settings.Providers[provider]
	if !ok {
		return fmt.Errorf("provider %s is not configured", provider)
	}
	return s.aiValidator.ValidateGeneration(provider, ps)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt treats an absent key as unset so an explicit zero survives.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

// getFloat treats an absent key as unset so an explicit zero survives.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(key string, defaultVal domain.VectorBackend) domain.VectorBackend {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	backend := domain.VectorBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getCategory(key string, defaultVal domain.ModelCategory) domain.ModelCategory {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	category := domain.ModelCategory(val)
	if !category.IsValid() {
		return defaultVal
	}
	return category
}

func (s *SettingsService) getProviders(defaults map[domain.AIProvider]domain.ProviderSettings) map[domain.AIProvider]domain.ProviderSettings {
	providers := make(map[domain.AIProvider]domain.ProviderSettings, len(defaults))
	for provider, ps := range defaults {
		providers[provider] = ps
	}
	for _, provider := range domain.AllAIProviders() {
		baseURL := s.configStore.GetString(providerKey(provider, "base_url"))
		apiKey := s.configStore.GetString(providerKey(provider, "api_key"))
		if baseURL == "" && apiKey == "" {
			continue
		}
		providers[provider] = domain.ProviderSettings{BaseURL: baseURL, APIKey: apiKey}
	}
	return providers
}

func providerKey(provider domain.AIProvider, field string) string {
	return "providers." + provider.String() + "." + field
}

// GetPipelineConfig returns the post-processor pipeline configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	defaults := domain.DefaultPipelineConfig()

	// Try to load processors list from config
	if processors := s.configStore.GetStringSlice("pipeline.processors"); len(processors) > 0 {
		defaults.Processors = processors
	}

	// Load per-processor configs
	// For each known processor, check if config exists
	for _, name := range defaults.Processors {
		prefix := "pipeline." + name + "."
		cfg := s.loadProcessorConfig(prefix)
		if len(cfg) > 0 {
			if defaults.ProcessorConfigs == nil {
				defaults.ProcessorConfigs = make(map[string]map[string]any)
			}
			// Merge with existing defaults
			existing := defaults.ProcessorConfigs[name]
			if existing == nil {
				existing = make(map[string]any)
			}
			for k, v := range cfg {
				existing[k] = v
			}
			defaults.ProcessorConfigs[name] = existing
		}
	}

	return defaults
}

// loadProcessorConfig loads config keys with a given prefix into a map.
func (s *SettingsService) loadProcessorConfig(prefix string) map[string]any {
	cfg := make(map[string]any)

	// Check common processor config keys
	knownKeys := []string{"chunk_size", "overlap", "max_length", "model"}
	for _, key := range knownKeys {
		fullKey := prefix + key
		if val, exists := s.configStore.Get(fullKey); exists {
			cfg[key] = val
		}
	}

	return cfg
}
