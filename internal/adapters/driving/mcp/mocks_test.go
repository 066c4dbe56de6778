package mcp

import (
	"context"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driving"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	answer  *domain.Answer
	err     error
	lastReq domain.QueryRequest
}

func (m *mockQueryService) Answer(_ context.Context, req domain.QueryRequest) (*domain.Answer, error) {
	m.lastReq = req
	return m.answer, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	receipt   *domain.IngestReceipt
	reindexed int
	err       error
	lastReq   domain.IngestRequest
}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestReceipt, error) {
	m.lastReq = req
	return m.receipt, m.err
}

func (m *mockIngestService) Reindex(_ context.Context) (int, error) {
	return m.reindexed, m.err
}

// mockModelsService is a mock implementation of driving.ModelsService.
type mockModelsService struct {
	snapshots []domain.ModelSnapshot
	snapshot  *domain.ModelSnapshot
	err       error
}

func (m *mockModelsService) List(_ context.Context) ([]domain.ModelSnapshot, error) {
	return m.snapshots, m.err
}

func (m *mockModelsService) Get(_ context.Context, _ string) (*domain.ModelSnapshot, error) {
	return m.snapshot, m.err
}

func (m *mockModelsService) SetActive(_ context.Context, _ string, _ bool) error {
	return m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	content   string
	details   *driving.DocumentDetails
	err       error
	deleted   []string
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) GetContent(_ context.Context, _ string) (string, error) {
	return m.content, m.err
}

func (m *mockDocumentService) GetDetails(_ context.Context, _ string) (*driving.DocumentDetails, error) {
	return m.details, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, documentID string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, documentID)
	return nil
}
