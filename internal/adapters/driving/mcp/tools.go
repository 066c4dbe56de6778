package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer"`
	NoRAG    bool   `json:"no_rag,omitempty" jsonschema:"answer without retrieving knowledge-base context"`
	Model    string `json:"model,omitempty" jsonschema:"force a specific registry model instead of routing"`
	Category string `json:"category,omitempty" jsonschema:"routing category: general_chat, code_assistance, creative_writing or lightweight"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"maximum number of context chunks to retrieve"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer     string         `json:"answer"`
	ModelUsed  string         `json:"model_used"`
	RAGUsed    bool           `json:"rag_used"`
	Sources    []SourceOutput `json:"sources"`
	Confidence float64        `json:"confidence"`
}

// SourceOutput cites one grounding document.
type SourceOutput struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	Excerpt    string  `json:"excerpt"`
	Score      float64 `json:"score"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Content    string `json:"content" jsonschema:"the raw document text to ingest"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"identifier for the document; re-using one replaces the prior version"`
	Title      string `json:"title,omitempty" jsonschema:"document title"`
	Format     string `json:"format,omitempty" jsonschema:"MIME type of the content (default text/plain)"`
	URI        string `json:"uri,omitempty" jsonschema:"original location of the document"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
	Replaced   bool   `json:"replaced"`
}

// ListModelsInput is the input schema for the list_models tool.
type ListModelsInput struct{}

// ListModelsOutput is the output schema for the list_models tool.
type ListModelsOutput struct {
	Models []ModelOutput `json:"models"`
	Count  int           `json:"count"`
}

// ModelOutput describes one registered model with its live statistics.
type ModelOutput struct {
	Name        string  `json:"name"`
	Provider    string  `json:"provider"`
	Category    string  `json:"category"`
	Cost        int     `json:"cost"`
	Active      bool    `json:"active"`
	Invocations int64   `json:"invocations"`
	SuccessRate float64 `json:"success_rate"`
	LatencyMs   float64 `json:"latency_ms"`
}

// DeleteDocumentInput is the input schema for the delete_document tool.
type DeleteDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"identifier of the document to delete"`
}

// DeleteDocumentOutput is the output schema for the delete_document tool.
type DeleteDocumentOutput struct {
	DocumentID string `json:"document_id"`
	Deleted    bool   `json:"deleted"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question, grounded in the ingested knowledge base unless no_rag is set",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Ingest a text document into the knowledge base",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_models",
		Description: "List registered generation models with their statistics",
	}, s.handleListModels)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Remove a document, its chunks and its vectors from the knowledge base",
	}, s.handleDeleteDocument)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	req := domain.QueryRequest{
		Query:         input.Question,
		UseRAG:        !input.NoRAG,
		ModelOverride: input.Model,
		TopK:          input.TopK,
	}

	if input.Category != "" {
		category := domain.ModelCategory(input.Category)
		if !category.IsValid() {
			return nil, AskOutput{}, domain.Errorf(domain.CodeInvalidInput, "unknown category %q", input.Category)
		}
		req.Category = category
	}

	answer, err := s.ports.Query.Answer(ctx, req)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:     answer.Text,
		ModelUsed:  answer.ModelUsed,
		RAGUsed:    answer.RAGUsed,
		Sources:    make([]SourceOutput, len(answer.Sources)),
		Confidence: answer.Confidence,
	}

	for i, src := range answer.Sources {
		output.Sources[i] = SourceOutput{
			DocumentID: src.DocumentID,
			Title:      src.Title,
			Excerpt:    src.Excerpt,
			Score:      src.Score,
		}
	}

	return nil, output, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if s.ports.Ingest == nil {
		return nil, IngestOutput{}, errors.New("ingest service not configured")
	}

	format := input.Format
	if format == "" {
		format = "text/plain"
	}

	receipt, err := s.ports.Ingest.Ingest(ctx, domain.IngestRequest{
		DocumentID: input.DocumentID,
		Format:     format,
		URI:        input.URI,
		Title:      input.Title,
		Content:    []byte(input.Content),
	})
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		DocumentID: receipt.DocumentID,
		ChunkCount: receipt.ChunkCount,
		Replaced:   receipt.Replaced,
	}, nil
}

// handleListModels handles the list_models tool invocation.
func (s *Server) handleListModels(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListModelsInput,
) (*mcp.CallToolResult, ListModelsOutput, error) {
	if s.ports.Models == nil {
		return nil, ListModelsOutput{}, errors.New("models service not configured")
	}

	snapshots, err := s.ports.Models.List(ctx)
	if err != nil {
		return nil, ListModelsOutput{}, err
	}

	output := ListModelsOutput{
		Models: make([]ModelOutput, len(snapshots)),
		Count:  len(snapshots),
	}

	for i, snap := range snapshots {
		output.Models[i] = ModelOutput{
			Name:        snap.Descriptor.Name,
			Provider:    snap.Descriptor.Provider.String(),
			Category:    snap.Descriptor.Category.String(),
			Cost:        snap.Descriptor.Cost,
			Active:      snap.Descriptor.Active,
			Invocations: snap.Stats.Invocations(),
			SuccessRate: snap.Stats.SuccessRate(),
			LatencyMs:   snap.Stats.LatencyEWMAMs,
		}
	}

	return nil, output, nil
}

// handleDeleteDocument handles the delete_document tool invocation.
func (s *Server) handleDeleteDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteDocumentInput,
) (*mcp.CallToolResult, DeleteDocumentOutput, error) {
	if s.ports.Document == nil {
		return nil, DeleteDocumentOutput{}, errors.New("document service not configured")
	}

	if err := s.ports.Document.Delete(ctx, input.DocumentID); err != nil {
		return nil, DeleteDocumentOutput{}, err
	}

	return nil, DeleteDocumentOutput{
		DocumentID: input.DocumentID,
		Deleted:    true,
	}, nil
}
