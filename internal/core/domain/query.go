package domain

import "time"

// QueryState identifies a stage of the answer pipeline. Each request moves
// RECEIVED → RETRIEVING → CONTEXT_BUILT → GENERATING → RESPONDED; disabling
// retrieval skips straight from RECEIVED to GENERATING.
type QueryState string

// Pipeline states.
const (
	StateReceived     QueryState = "RECEIVED"
	StateRetrieving   QueryState = "RETRIEVING"
	StateContextBuilt QueryState = "CONTEXT_BUILT"
	StateGenerating   QueryState = "GENERATING"
	StateResponded    QueryState = "RESPONDED"
)

// String returns the string representation.
func (s QueryState) String() string {
	return string(s)
}

// Message roles for conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of conversation history supplied by the caller.
// Session ownership and persistence live outside this core.
type Message struct {
	// Role is one of RoleSystem, RoleUser, RoleAssistant.
	Role string

	// Content is the message text.
	Content string
}

// QueryRequest carries one answer request through the pipeline.
type QueryRequest struct {
	// Query is the user's question.
	Query string

	// History is prior conversation turns, oldest first.
	History []Message

	// UseRAG enables retrieval grounding. When false the answer is
	// generated without knowledge-base context.
	UseRAG bool

	// ModelOverride forces a specific registry model, bypassing the
	// router. Empty means route by category.
	ModelOverride string

	// Category selects the routing category. Zero value routes as
	// general chat.
	Category ModelCategory

	// ResourceBudget caps the declared cost of the routed model.
	// Zero or negative falls back to the configured default budget.
	ResourceBudget int

	// TopK overrides the configured retrieval limit when positive.
	TopK int
}

// RetrieveOptions configures a retrieval call.
type RetrieveOptions struct {
	// TopK is the maximum number of chunks to return.
	// Non-positive falls back to the configured default.
	TopK int

	// MinSimilarity is the similarity floor in [0,1]. Negative falls
	// back to the configured default; zero disables the floor.
	MinSimilarity float64
}

// RetrievedChunk is a single retrieval hit with its provenance.
type RetrievedChunk struct {
	// Document is the parent document.
	Document Document

	// Chunk is the matched chunk.
	Chunk Chunk

	// Similarity is the cosine similarity in [0,1].
	Similarity float64

	// IngestedAt is the parent document's ingestion timestamp,
	// used for deterministic ordering of equal similarities.
	IngestedAt time.Time
}

// Citation references a source document that grounded an answer.
type Citation struct {
	// DocumentID identifies the cited document.
	DocumentID string `json:"document_id"`

	// Title is the document title for display.
	Title string `json:"title,omitempty"`

	// Excerpt is a short span of the cited chunk.
	Excerpt string `json:"excerpt"`

	// Score is the chunk's similarity to the query.
	Score float64 `json:"score"`
}

// Answer is the result of one query. Ephemeral: created per request and
// never persisted.
type Answer struct {
	// Text is the generated answer.
	Text string `json:"answer"`

	// ModelUsed is the registry name of the model that generated Text.
	ModelUsed string `json:"model_used"`

	// RAGUsed reports whether retrieved context grounded the answer.
	// False when retrieval was disabled, found nothing, or degraded.
	RAGUsed bool `json:"rag_used"`

	// Sources cites the grounding chunks in similarity order.
	// Empty when RAGUsed is false.
	Sources []Citation `json:"sources"`

	// Confidence estimates grounding quality in [0,1]: the top
	// retrieved similarity when grounded, 0 when retrieval found
	// nothing, a neutral constant when retrieval was disabled.
	Confidence float64 `json:"confidence"`
}

// IngestRequest carries one document into the ingestion pipeline.
type IngestRequest struct {
	// DocumentID is the caller-assigned identifier. Empty means the
	// pipeline assigns one. Re-using an ID replaces the prior version.
	DocumentID string

	// Format is the MIME type of Content. Empty means sniff from URI.
	Format string

	// URI is the original location, when known.
	URI string

	// Title overrides the extracted title when set.
	Title string

	// Content is the raw document bytes.
	Content []byte

	// Metadata is attached to the stored document.
	Metadata map[string]any
}

// IngestReceipt reports a completed ingestion.
type IngestReceipt struct {
	// DocumentID is the stored document's identifier.
	DocumentID string `json:"document_id"`

	// ChunkCount is the number of chunks written.
	ChunkCount int `json:"chunk_count"`

	// Replaced reports whether a prior version was replaced.
	Replaced bool `json:"replaced"`
}
