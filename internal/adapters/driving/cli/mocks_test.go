package cli

import (
	"context"
	"time"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driving"
)

// setupTestServices installs happy-path mocks into the package-level
// service slots and returns a cleanup that restores the previous ones.
func setupTestServices() func() {
	oldIngest := ingestService
	oldQuery := queryService
	oldModels := modelsService
	oldRouter := modelRouter
	oldDocument := documentService
	oldSettings := settingsService
	oldConfig := configStore

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	ingestService = &mockIngestService{
		receipt:   &domain.IngestReceipt{DocumentID: "doc-1", ChunkCount: 3},
		reindexed: 42,
	}
	queryService = &mockQueryService{
		answer: &domain.Answer{
			Text:       "Grimoire keeps your documents local.",
			ModelUsed:  "llama3.2",
			RAGUsed:    true,
			Confidence: 0.82,
			Sources: []domain.Citation{
				{DocumentID: "doc-1", Title: "README.md", Excerpt: "Documents never leave the machine.", Score: 0.91},
			},
		},
	}
	modelsService = &mockModelsService{
		snapshots: []domain.ModelSnapshot{
			{
				Descriptor: domain.ModelDescriptor{
					Name: "llama3.2", Provider: domain.AIProviderOllama,
					Category: domain.CategoryGeneralChat, Cost: 35, Active: true,
				},
				Stats: domain.ModelStats{SuccessCount: 9, FailureCount: 1, LatencyEWMAMs: 120},
			},
			{
				Descriptor: domain.ModelDescriptor{
					Name: "codellama", Provider: domain.AIProviderOllama,
					Category: domain.CategoryCodeAssistance, Cost: 40, Active: false,
				},
			},
		},
	}
	modelRouter = &mockModelRouter{
		descriptor: &domain.ModelDescriptor{
			Name: "llama3.2:1b", Provider: domain.AIProviderOllama,
			Category: domain.CategoryLightweight, Cost: 10, Active: true,
		},
	}
	documentService = &mockDocumentService{
		documents: []domain.Document{
			{ID: "doc-1", Title: "Test Document 1", Format: "text/markdown", UpdatedAt: now},
			{ID: "doc-2", Title: "Test Document 2", Format: "text/plain", UpdatedAt: now},
		},
		details: &driving.DocumentDetails{
			ID: "doc-1", Title: "Test Document 1", Format: "text/markdown",
			URI: "/docs/readme.md", ChunkCount: 3, CreatedAt: now, UpdatedAt: now,
			Metadata: map[string]string{"language": "en"},
		},
		content: "Full document content.",
	}
	settingsService = &mockSettingsService{settings: testSettings()}
	configStore = &mockConfigStore{values: map[string]any{
		"embedding.provider": "ollama",
		"embedding.api_key":  "sk-test-1234567890abcdef",
		"retrieval.top_k":    int64(5),
	}}

	return func() {
		ingestService = oldIngest
		queryService = oldQuery
		modelsService = oldModels
		modelRouter = oldRouter
		documentService = oldDocument
		settingsService = oldSettings
		configStore = oldConfig
	}
}

func testSettings() *domain.AppSettings {
	settings := domain.DefaultAppSettings()
	settings.Embedding.APIKey = "sk-test-1234567890abcdef"
	return &settings
}

type mockIngestService struct {
	receipt   *domain.IngestReceipt
	reindexed int
	err       error
	requests  []domain.IngestRequest
}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestReceipt, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.requests = append(m.requests, req)
	return m.receipt, nil
}

func (m *mockIngestService) Reindex(context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.reindexed, nil
}

type mockQueryService struct {
	answer  *domain.Answer
	err     error
	lastReq domain.QueryRequest
}

func (m *mockQueryService) Answer(_ context.Context, req domain.QueryRequest) (*domain.Answer, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

type setActiveCall struct {
	name   string
	active bool
}

type mockModelsService struct {
	snapshots []domain.ModelSnapshot
	err       error
	setCalls  []setActiveCall
}

func (m *mockModelsService) List(context.Context) ([]domain.ModelSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshots, nil
}

func (m *mockModelsService) Get(_ context.Context, name string) (*domain.ModelSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.snapshots {
		if m.snapshots[i].Descriptor.Name == name {
			return &m.snapshots[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockModelsService) SetActive(_ context.Context, name string, active bool) error {
	if m.err != nil {
		return m.err
	}
	m.setCalls = append(m.setCalls, setActiveCall{name: name, active: active})
	return nil
}

type mockModelRouter struct {
	descriptor   *domain.ModelDescriptor
	err          error
	lastCategory domain.ModelCategory
	lastBudget   int
}

func (m *mockModelRouter) Recommend(_ context.Context, category domain.ModelCategory, budget int) (*domain.ModelDescriptor, error) {
	m.lastCategory = category
	m.lastBudget = budget
	if m.err != nil {
		return nil, m.err
	}
	return m.descriptor, nil
}

type mockDocumentService struct {
	documents []domain.Document
	details   *driving.DocumentDetails
	content   string
	err       error
	deleted   []string
}

func (m *mockDocumentService) List(context.Context) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.documents, nil
}

func (m *mockDocumentService) Get(_ context.Context, documentID string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.documents {
		if m.documents[i].ID == documentID {
			return &m.documents[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) GetContent(context.Context, string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.content, nil
}

func (m *mockDocumentService) GetDetails(context.Context, string) (*driving.DocumentDetails, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.details, nil
}

func (m *mockDocumentService) Delete(_ context.Context, documentID string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, documentID)
	return nil
}

type mockSettingsService struct {
	settings    *domain.AppSettings
	saved       *domain.AppSettings
	err         error
	validateErr error
	embedErr    error
	genErr      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.settings, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	if m.err != nil {
		return m.err
	}
	m.saved = settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if m.err != nil {
		return m.err
	}
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetVectorBackend(backend domain.VectorBackend) error {
	if m.err != nil {
		return m.err
	}
	m.settings.VectorStore.Backend = backend
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.embedErr
}

func (m *mockSettingsService) ValidateGenerationConfig(domain.AIProvider) error {
	return m.genErr
}

type mockConfigStore struct {
	values map[string]any
	err    error
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	if v, ok := m.values[key].(string); ok {
		return v
	}
	return ""
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	switch v := m.values[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetBool(key string) bool {
	if v, ok := m.values[key].(bool); ok {
		return v
	}
	return false
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	if v, ok := m.values[key].([]string); ok {
		return v
	}
	return nil
}

func (m *mockConfigStore) Set(key string, value any) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error { return m.err }

func (m *mockConfigStore) Load() error { return m.err }

func (m *mockConfigStore) Path() string { return "/tmp/grimoire/config.toml" }
