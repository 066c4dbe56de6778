package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driving"
	"github.com/arcanum-labs/grimoire/internal/logger"
)

// excerptLength bounds citation excerpts in runes.
const excerptLength = 160

// Built-in prompts, used when no prompt store is wired or a template is
// missing. The RAG template receives the assembled context through its
// %s placeholder.
const (
	defaultRAGSystemPrompt = `You are a careful assistant answering from a private knowledge base.

Use only the context below to answer. If the context does not contain the answer, say you do not know rather than guessing. Be concise.

Context:
%s`

	defaultChatSystemPrompt = `You are a helpful assistant. Answer clearly and concisely.`
)

// Ensure QueryPipeline implements the interfaces.
var (
	_ driving.QueryService    = (*QueryPipeline)(nil)
	_ driven.PromptStoreAware = (*QueryPipeline)(nil)
)

// QueryPipeline is the answer orchestrator. Each request moves through
// RECEIVED, RETRIEVING, CONTEXT_BUILT, GENERATING and RESPONDED; disabling
// retrieval skips straight to GENERATING. Retrieval failures degrade the
// request to a non-grounded answer, generation failures always surface,
// and the pipeline never retries internally.
type QueryPipeline struct {
	retriever *Retriever
	registry  *ModelRegistry
	router    *Router
	pool      driven.LLMPool
	prompts   driven.PromptStore

	retrieval  domain.RetrievalSettings
	routing    domain.RoutingSettings
	generation domain.GenerationSettings
}

// NewQueryPipeline assembles the answer pipeline. The registry and router
// are in-process collaborators; generation backends resolve through the
// pool at request time so the router's choice always maps to a live
// service.
func NewQueryPipeline(
	retriever *Retriever,
	registry *ModelRegistry,
	router *Router,
	pool driven.LLMPool,
	settings domain.AppSettings,
) *QueryPipeline {
	base := domain.DefaultAppSettings()

	retrieval := settings.Retrieval
	if retrieval.ContextBudget <= 0 {
		retrieval.ContextBudget = base.Retrieval.ContextBudget
	}

	routing := settings.Routing
	if routing.DefaultCategory == "" {
		routing.DefaultCategory = base.Routing.DefaultCategory
	}
	if routing.NeutralConfidence <= 0 {
		routing.NeutralConfidence = base.Routing.NeutralConfidence
	}

	generation := settings.Generation
	if generation.TimeoutSeconds <= 0 {
		generation.TimeoutSeconds = base.Generation.TimeoutSeconds
	}

	return &QueryPipeline{
		retriever:  retriever,
		registry:   registry,
		router:     router,
		pool:       pool,
		retrieval:  retrieval,
		routing:    routing,
		generation: generation,
	}
}

// SetPromptStore wires user-editable prompt templates. Without it the
// built-in prompts are used.
func (s *QueryPipeline) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Answer runs one request through the pipeline.
//
//nolint:gocyclo // Pipeline orchestration with sequential stages
func (s *QueryPipeline) Answer(ctx context.Context, req domain.QueryRequest) (*domain.Answer, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.Errorf(domain.CodeInvalidInput, "query must not be empty")
	}

	logger.Debug("Query received (rag=%v, category=%q, override=%q)", req.UseRAG, req.Category, req.ModelOverride)

	// RETRIEVING. A retrieval failure degrades the request to a
	// non-grounded answer; only caller cancellation aborts here.
	var retrieved []domain.RetrievedChunk
	if req.UseRAG {
		var err error
		retrieved, err = s.retriever.Retrieve(ctx, query, domain.RetrieveOptions{
			TopK:          req.TopK,
			MinSimilarity: -1,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, &domain.StageError{Stage: domain.StateRetrieving, Err: fmt.Errorf("retrieve: %w", err)}
			}
			logger.Warn("Retrieval failed, answering without grounding: %v", err)
			retrieved = nil
		}
	}

	// CONTEXT_BUILT. Chunks enter the window in similarity order until
	// the character budget runs out; only included chunks are cited.
	ragContext, included := s.buildContext(retrieved)
	logger.Debug("Query stage %s: %d of %d chunks in context", domain.StateContextBuilt, len(included), len(retrieved))

	model, err := s.selectModel(ctx, req)
	if err != nil {
		return nil, err
	}

	backend, err := s.pool.Acquire(model)
	if err != nil {
		return nil, fmt.Errorf("acquire backend for %q: %w", model, err)
	}

	// GENERATING
	logger.Debug("Query stage %s with model %s", domain.StateGenerating, model)
	messages := s.buildMessages(query, req.History, ragContext)

	genCtx := ctx
	if s.generation.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, time.Duration(s.generation.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	start := time.Now()
	text, genErr := backend.Chat(genCtx, messages, driven.ChatOptions{
		MaxTokens:   s.generation.MaxTokens,
		Temperature: s.generation.Temperature,
	})
	elapsed := time.Since(start)

	// Telemetry covers failures too so the router learns from both, but
	// a caller cancellation is not the model's fault.
	if genErr == nil || ctx.Err() == nil {
		s.registry.RecordInvocation(model, genErr == nil, elapsed)
	}

	if genErr != nil {
		if errors.Is(genErr, context.DeadlineExceeded) {
			genErr = domain.WrapError(domain.ErrTimeout, genErr)
		}
		return nil, &domain.StageError{Stage: domain.StateGenerating, Err: fmt.Errorf("generate answer: %w", genErr)}
	}

	// RESPONDED
	answer := &domain.Answer{
		Text:       text,
		ModelUsed:  model,
		RAGUsed:    len(included) > 0,
		Sources:    buildCitations(included),
		Confidence: s.confidence(req.UseRAG, included),
	}

	logger.Debug("Query stage %s: model=%s rag=%v sources=%d confidence=%.2f in %s",
		domain.StateResponded, model, answer.RAGUsed, len(answer.Sources), answer.Confidence,
		elapsed.Round(time.Millisecond))

	return answer, nil
}

// selectModel resolves the generation model: an explicit override is
// validated against the registry, anything else goes through the router
// with the configured category and budget defaults applied.
func (s *QueryPipeline) selectModel(ctx context.Context, req domain.QueryRequest) (string, error) {
	if req.ModelOverride != "" {
		if _, err := s.registry.Get(ctx, req.ModelOverride); err != nil {
			return "", fmt.Errorf("model override: %w", err)
		}
		return req.ModelOverride, nil
	}

	category := req.Category
	if category == "" {
		category = s.routing.DefaultCategory
	}
	budget := req.ResourceBudget
	if budget <= 0 {
		budget = s.routing.DefaultBudget
	}

	desc, err := s.router.Recommend(ctx, category, budget)
	if err != nil {
		return "", fmt.Errorf("route model: %w", err)
	}
	return desc.Name, nil
}

// buildContext assembles the prompt context from retrieved chunks in
// similarity order, stopping at the character budget. Returns the
// assembled text and the chunks that made it in.
func (s *QueryPipeline) buildContext(retrieved []domain.RetrievedChunk) (string, []domain.RetrievedChunk) {
	if len(retrieved) == 0 {
		return "", nil
	}

	budget := s.retrieval.ContextBudget
	var b strings.Builder
	var included []domain.RetrievedChunk
	used := 0

	for _, rc := range retrieved {
		section := contextSection(rc)
		length := utf8.RuneCountInString(section)
		if used > 0 {
			length += 2 // separator
		}

		if used+length > budget {
			if len(included) == 0 {
				// The best chunk alone overflows the budget; a
				// trimmed version beats an empty context.
				b.WriteString(string([]rune(section)[:budget]))
				included = append(included, rc)
			}
			break
		}

		if used > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(section)
		used += length
		included = append(included, rc)
	}

	return b.String(), included
}

// contextSection renders one retrieved chunk with a source header the
// model can attribute facts to.
func contextSection(rc domain.RetrievedChunk) string {
	title := rc.Document.Title
	if title == "" {
		title = rc.Document.ID
	}
	return fmt.Sprintf("[Source: %s]\n%s", title, rc.Chunk.Content)
}

// buildMessages composes the chat transcript: system prompt, caller
// history oldest first, then the current question.
func (s *QueryPipeline) buildMessages(query string, history []domain.Message, ragContext string) []driven.ChatMessage {
	messages := make([]driven.ChatMessage, 0, len(history)+2)
	messages = append(messages, driven.ChatMessage{Role: domain.RoleSystem, Content: s.systemPrompt(ragContext)})
	for _, turn := range history {
		messages = append(messages, driven.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, driven.ChatMessage{Role: domain.RoleUser, Content: query})
	return messages
}

// systemPrompt resolves the system prompt, preferring the prompt store
// over the built-in defaults. An empty ragContext selects the plain chat
// prompt.
func (s *QueryPipeline) systemPrompt(ragContext string) string {
	if ragContext == "" {
		return s.loadPrompt(driven.PromptChatSystem, defaultChatSystemPrompt)
	}

	template := s.loadPrompt(driven.PromptRAGSystem, defaultRAGSystemPrompt)
	if !strings.Contains(template, "%s") {
		// A custom template without the placeholder still gets the context.
		return template + "\n\nContext:\n" + ragContext
	}
	return fmt.Sprintf(template, ragContext)
}

// loadPrompt fetches a named prompt, falling back to the built-in text.
func (s *QueryPipeline) loadPrompt(name, fallback string) string {
	if s.prompts == nil {
		return fallback
	}
	prompt, err := s.prompts.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		if err != nil {
			logger.Debug("Using built-in %s prompt: %v", name, err)
		}
		return fallback
	}
	return prompt
}

// confidence scores grounding quality: the top retrieved similarity when
// sources grounded the answer, zero when retrieval was attempted and came
// up empty or degraded, the neutral constant when RAG was off.
func (s *QueryPipeline) confidence(useRAG bool, included []domain.RetrievedChunk) float64 {
	if !useRAG {
		return s.routing.NeutralConfidence
	}
	if len(included) == 0 {
		return 0
	}
	return clamp01(topSimilarity(included))
}

// buildCitations converts context chunks into ordered citations. Always
// returns a non-nil slice so JSON renders [] rather than null.
func buildCitations(included []domain.RetrievedChunk) []domain.Citation {
	citations := make([]domain.Citation, 0, len(included))
	for _, rc := range included {
		citations = append(citations, domain.Citation{
			DocumentID: rc.Document.ID,
			Title:      rc.Document.Title,
			Excerpt:    rc.Chunk.Excerpt(excerptLength),
			Score:      rc.Similarity,
		})
	}
	return citations
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
