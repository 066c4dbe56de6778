package services

import (
	"context"
	"sync"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
)

// Shared test doubles for the driven ports consumed across this package.

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	mu         sync.Mutex
	embedding  []float32
	byText     map[string][]float32
	embedErr   error
	batchErr   error
	dims       int
	embedCalls int
	batchCalls int
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vectorFor(text)
	}
	return result, nil
}

// vectorFor resolves a per-text vector, falling back to the shared one.
// Caller holds the lock.
func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	if v, ok := m.byText[text]; ok {
		return v
	}
	if m.embedding != nil {
		return m.embedding
	}
	return make([]float32, m.Dimensions())
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 384
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockVectorStore implements driven.VectorStore for testing. Search
// honours the floor and topK the way real backends do.
type mockVectorStore struct {
	mu          sync.Mutex
	added       []driven.VectorEntry
	deletedDocs []string
	hits        []driven.VectorHit
	addErr      error
	deleteErr   error
	searchErr   error
}

func (m *mockVectorStore) Add(_ context.Context, entries []driven.VectorEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, entries...)
	return nil
}

func (m *mockVectorStore) DeleteByDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedDocs = append(m.deletedDocs, documentID)
	return nil
}

func (m *mockVectorStore) Search(_ context.Context, _ []float32, topK int, minSimilarity float64) ([]driven.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	result := make([]driven.VectorHit, 0, len(m.hits))
	for _, hit := range m.hits {
		if hit.Similarity < minSimilarity {
			continue
		}
		result = append(result, hit)
		if len(result) == topK {
			break
		}
	}
	return result, nil
}

func (m *mockVectorStore) Ping(_ context.Context) error {
	return nil
}

func (m *mockVectorStore) Close() error {
	return nil
}

func (m *mockVectorStore) addedEntries() []driven.VectorEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]driven.VectorEntry, len(m.added))
	copy(out, m.added)
	return out
}

func (m *mockVectorStore) deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.deletedDocs))
	copy(out, m.deletedDocs)
	return out
}

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	mu           sync.Mutex
	model        string
	chatResult   string
	chatErr      error
	genResult    string
	genErr       error
	chatCalls    int
	lastMessages []driven.ChatMessage
	lastOpts     driven.ChatOptions
}

func (m *mockLLMService) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	if m.genErr != nil {
		return "", m.genErr
	}
	return m.genResult, nil
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatCalls++
	m.lastMessages = messages
	m.lastOpts = opts
	if m.chatErr != nil {
		return "", m.chatErr
	}
	if m.chatResult != "" {
		return m.chatResult, nil
	}
	return "mock answer", nil
}

func (m *mockLLMService) ModelName() string {
	if m.model != "" {
		return m.model
	}
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

func (m *mockLLMService) messages() []driven.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]driven.ChatMessage, len(m.lastMessages))
	copy(out, m.lastMessages)
	return out
}

// mockLLMPool implements driven.LLMPool for testing.
type mockLLMPool struct {
	mu       sync.Mutex
	backends map[string]driven.LLMService
	acquired []string
}

func newMockLLMPool(backends map[string]driven.LLMService) *mockLLMPool {
	return &mockLLMPool{backends: backends}
}

func (m *mockLLMPool) Acquire(name string) (driven.LLMService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquired = append(m.acquired, name)
	svc, ok := m.backends[name]
	if !ok {
		return nil, domain.Errorf(domain.CodeNotFound, "no backend configured for model %q", name)
	}
	return svc, nil
}

func (m *mockLLMPool) Close() error {
	return nil
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
	loadErr error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.loadErr != nil {
		return "", m.loadErr
	}
	prompt, ok := m.prompts[name]
	if !ok {
		return "", domain.Errorf(domain.CodeNotFound, "prompt %q not found", name)
	}
	return prompt, nil
}

func (m *mockPromptStore) Reload() {}

// Ensure mocks implement interfaces
var (
	_ driven.EmbeddingService = (*mockEmbeddingService)(nil)
	_ driven.VectorStore      = (*mockVectorStore)(nil)
	_ driven.LLMService       = (*mockLLMService)(nil)
	_ driven.LLMPool          = (*mockLLMPool)(nil)
	_ driven.PromptStore      = (*mockPromptStore)(nil)
)
