package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend selects the vector store implementation. The choice is
// made once at startup; an unreachable backend fails loudly there instead
// of silently degrading at query time.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendMemory is the in-process brute-force store.
	// Contents are lost on restart; reindex rebuilds them.
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendMilvus is a Milvus collection with a cosine HNSW index.
	VectorBackendMilvus VectorBackend = "milvus"

	// VectorBackendPgvector is a Postgres table with the pgvector extension.
	VectorBackendPgvector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendMilvus, VectorBackendPgvector:
		return true
	default:
		return false
	}
}

// IsPersistent returns true if the backend survives restarts.
func (b VectorBackend) IsPersistent() bool {
	return b == VectorBackendMilvus || b == VectorBackendPgvector
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b VectorBackend) Description() string {
	switch b {
	case VectorBackendMemory:
		return "In-memory (brute force, volatile)"
	case VectorBackendMilvus:
		return "Milvus (persistent, HNSW)"
	case VectorBackendPgvector:
		return "Postgres/pgvector (persistent)"
	default:
		return unknownDescription
	}
}

// AllVectorBackends returns all available vector backends.
func AllVectorBackends() []VectorBackend {
	return []VectorBackend{
		VectorBackendMemory,
		VectorBackendMilvus,
		VectorBackendPgvector,
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// CacheSize is the LRU cache capacity in entries. Zero disables
	// the cache.
	CacheSize int

	// RateLimit is the maximum backend requests per second.
	// Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the rate limiter burst size (default 1 when
	// RateLimit is set).
	RateBurst int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ProviderSettings holds connection configuration for one generation
// backend. Model names come from the model catalogue, not from here.
type ProviderSettings struct {
	// BaseURL is the API endpoint (for Ollama, or API-compatible hosts).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured reports whether the provider can be constructed.
func (p ProviderSettings) IsConfigured(provider AIProvider) bool {
	if provider.RequiresAPIKey() && p.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings holds vector store configuration.
type VectorStoreSettings struct {
	// Backend selects the implementation at startup.
	Backend VectorBackend

	// Dimensions is the embedding vector size. Must match the
	// embedding model.
	Dimensions int

	// Address is the Milvus endpoint (host:port).
	Address string

	// DSN is the Postgres connection string for pgvector.
	DSN string

	// Collection is the Milvus collection / Postgres table name.
	Collection string
}

// RetrievalSettings holds retrieval behaviour configuration.
type RetrievalSettings struct {
	// TopK is the default maximum number of retrieved chunks.
	TopK int

	// MinSimilarity is the default similarity floor in [0,1].
	MinSimilarity float64

	// ContextBudget is the maximum characters of retrieved context
	// injected into a prompt.
	ContextBudget int
}

// RoutingSettings holds model routing configuration.
type RoutingSettings struct {
	// DefaultCategory is used when a request names no category.
	DefaultCategory ModelCategory

	// DefaultBudget caps model cost when a request names no budget.
	// Zero means unconstrained.
	DefaultBudget int

	// NeutralConfidence is reported for answers generated without
	// retrieval.
	NeutralConfidence float64
}

// GenerationSettings holds generation call defaults.
type GenerationSettings struct {
	// MaxTokens bounds the generated answer length. Zero lets the
	// backend decide.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64

	// TimeoutSeconds bounds each generation call.
	TimeoutSeconds int
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// Providers holds per-provider generation backend connections.
	Providers map[AIProvider]ProviderSettings

	// VectorStore holds vector store settings.
	VectorStore VectorStoreSettings

	// Retrieval holds retrieval behaviour settings.
	Retrieval RetrievalSettings

	// Routing holds model routing settings.
	Routing RoutingSettings

	// Generation holds generation call defaults.
	Generation GenerationSettings

	// Pipeline holds post-processor pipeline settings.
	Pipeline PipelineConfig
}

// DefaultAppSettings returns settings with sensible defaults: a local
// Ollama for embeddings and generation, the in-memory vector store, and
// the documented retrieval thresholds.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOllama,
			Model:     "nomic-embed-text",
			CacheSize: 2048,
		},
		Providers: map[AIProvider]ProviderSettings{
			AIProviderOllama: {},
		},
		VectorStore: VectorStoreSettings{
			Backend:    VectorBackendMemory,
			Dimensions: 768, // nomic-embed-text default
			Collection: "grimoire_chunks",
		},
		Retrieval: RetrievalSettings{
			TopK:          5,
			MinSimilarity: 0.3,
			ContextBudget: 4000,
		},
		Routing: RoutingSettings{
			DefaultCategory:   CategoryGeneralChat,
			DefaultBudget:     0,
			NeutralConfidence: 0.5,
		},
		Generation: GenerationSettings{
			Temperature:    0.2,
			TimeoutSeconds: 120,
		},
		Pipeline: DefaultPipelineConfig(),
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// AllAIProviders returns all recognised AI providers.
func AllAIProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}
}

// AllEmbeddingProviders returns the providers that expose an embedding
// API. Anthropic is generation-only.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be
// added without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the default pipeline configuration.
// Works out-of-the-box with chunker using sensible defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": 1000,
				"overlap":    200,
			},
		},
	}
}
