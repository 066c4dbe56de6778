package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns grounded answer with sources", func(t *testing.T) {
		mockQuery := &mockQueryService{
			answer: &domain.Answer{
				Text:      "Photosynthesis converts light into chemical energy.",
				ModelUsed: "llama3.2",
				RAGUsed:   true,
				Sources: []domain.Citation{
					{DocumentID: "doc-1", Title: "Biology Notes", Excerpt: "light into chemical", Score: 0.91},
				},
				Confidence: 0.91,
			},
		}

		ports := &Ports{Query: mockQuery}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := AskInput{Question: "What is photosynthesis?"}
		_, output, err := server.handleAsk(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "Photosynthesis converts light into chemical energy.", output.Answer)
		assert.Equal(t, "llama3.2", output.ModelUsed)
		assert.True(t, output.RAGUsed)
		require.Len(t, output.Sources, 1)
		assert.Equal(t, "doc-1", output.Sources[0].DocumentID)
		assert.Equal(t, 0.91, output.Sources[0].Score)
		assert.Equal(t, 0.91, output.Confidence)
	})

	t.Run("no_rag disables retrieval", func(t *testing.T) {
		mockQuery := &mockQueryService{
			answer: &domain.Answer{Text: "ok", ModelUsed: "codellama"},
		}

		ports := &Ports{Query: mockQuery}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := AskInput{Question: "hello", NoRAG: true, Model: "codellama"}
		_, _, err = server.handleAsk(ctx, nil, input)

		require.NoError(t, err)
		assert.False(t, mockQuery.lastReq.UseRAG)
		assert.Equal(t, "codellama", mockQuery.lastReq.ModelOverride)
	})

	t.Run("rag enabled by default", func(t *testing.T) {
		mockQuery := &mockQueryService{
			answer: &domain.Answer{Text: "ok"},
		}

		ports := &Ports{Query: mockQuery}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := AskInput{Question: "hello"}
		_, _, err = server.handleAsk(ctx, nil, input)

		require.NoError(t, err)
		assert.True(t, mockQuery.lastReq.UseRAG)
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		ports := &Ports{Query: &mockQueryService{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := AskInput{Question: "hello", Category: "fortune_telling"}
		_, _, err = server.handleAsk(ctx, nil, input)

		require.Error(t, err)
		assert.Equal(t, domain.CodeInvalidInput, domain.CodeOf(err))
	})

	t.Run("returns error on pipeline failure", func(t *testing.T) {
		mockQuery := &mockQueryService{
			err: errors.New("generation failed"),
		}

		ports := &Ports{Query: mockQuery}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := AskInput{Question: "hello"}
		_, _, err = server.handleAsk(ctx, nil, input)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "generation failed")
	})
}

func TestServer_handleIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("ingests text content", func(t *testing.T) {
		mockIngest := &mockIngestService{
			receipt: &domain.IngestReceipt{DocumentID: "doc-1", ChunkCount: 3},
		}

		ports := &Ports{Query: &mockQueryService{}, Ingest: mockIngest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := IngestInput{Content: "Some document text", Title: "Notes"}
		_, output, err := server.handleIngest(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "doc-1", output.DocumentID)
		assert.Equal(t, 3, output.ChunkCount)
		assert.False(t, output.Replaced)
		assert.Equal(t, "text/plain", mockIngest.lastReq.Format)
		assert.Equal(t, []byte("Some document text"), mockIngest.lastReq.Content)
	})

	t.Run("reports replacement", func(t *testing.T) {
		mockIngest := &mockIngestService{
			receipt: &domain.IngestReceipt{DocumentID: "doc-1", ChunkCount: 2, Replaced: true},
		}

		ports := &Ports{Query: &mockQueryService{}, Ingest: mockIngest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := IngestInput{Content: "Updated text", DocumentID: "doc-1"}
		_, output, err := server.handleIngest(ctx, nil, input)

		require.NoError(t, err)
		assert.True(t, output.Replaced)
	})

	t.Run("nil ingest service returns error", func(t *testing.T) {
		ports := &Ports{Query: &mockQueryService{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := IngestInput{Content: "text"}
		_, _, err = server.handleIngest(ctx, nil, input)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not configured")
	})
}

func TestServer_handleListModels(t *testing.T) {
	ctx := context.Background()

	t.Run("returns registered models", func(t *testing.T) {
		mockModels := &mockModelsService{
			snapshots: []domain.ModelSnapshot{
				{
					Descriptor: domain.ModelDescriptor{
						Name:     "llama3.2",
						Provider: domain.AIProviderOllama,
						Category: domain.CategoryGeneralChat,
						Cost:     35,
						Active:   true,
					},
					Stats: domain.ModelStats{SuccessCount: 9, FailureCount: 1, LatencyEWMAMs: 120},
				},
			},
		}

		ports := &Ports{Query: &mockQueryService{}, Models: mockModels}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleListModels(ctx, nil, ListModelsInput{})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Models, 1)
		assert.Equal(t, "llama3.2", output.Models[0].Name)
		assert.Equal(t, "ollama", output.Models[0].Provider)
		assert.Equal(t, "general_chat", output.Models[0].Category)
		assert.True(t, output.Models[0].Active)
		assert.Equal(t, int64(10), output.Models[0].Invocations)
		assert.InDelta(t, 0.9, output.Models[0].SuccessRate, 1e-9)
		assert.Equal(t, float64(120), output.Models[0].LatencyMs)
	})

	t.Run("nil models service returns error", func(t *testing.T) {
		ports := &Ports{Query: &mockQueryService{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleListModels(ctx, nil, ListModelsInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not configured")
	})
}

func TestServer_handleDeleteDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes document", func(t *testing.T) {
		mockDoc := &mockDocumentService{}
		ports := &Ports{Query: &mockQueryService{}, Document: mockDoc}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := DeleteDocumentInput{DocumentID: "doc-1"}
		_, output, err := server.handleDeleteDocument(ctx, nil, input)

		require.NoError(t, err)
		assert.True(t, output.Deleted)
		assert.Equal(t, "doc-1", output.DocumentID)
		assert.Equal(t, []string{"doc-1"}, mockDoc.deleted)
	})

	t.Run("propagates not found", func(t *testing.T) {
		mockDoc := &mockDocumentService{err: domain.ErrNotFound}
		ports := &Ports{Query: &mockQueryService{}, Document: mockDoc}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := DeleteDocumentInput{DocumentID: "missing"}
		_, _, err = server.handleDeleteDocument(ctx, nil, input)

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
