package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driving"
	"github.com/arcanum-labs/grimoire/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService exposes stored documents to the outer surfaces and owns
// deletion, which cascades from the document store to the vector index.
type DocumentService struct {
	docs    driven.DocumentStore
	vectors driven.VectorStore
}

// NewDocumentService creates a document service.
func NewDocumentService(docs driven.DocumentStore, vectors driven.VectorStore) *DocumentService {
	return &DocumentService{docs: docs, vectors: vectors}
}

// List returns all stored documents, most recently ingested first.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docs.ListDocuments(ctx)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docs.GetDocument(ctx, documentID)
}

// GetContent returns the document's full normalised content. Documents
// stored without content fall back to joining their chunks; window
// overlap makes that a display approximation, not an exact reconstruction.
func (s *DocumentService) GetContent(ctx context.Context, documentID string) (string, error) {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	if doc.Content != "" {
		return doc.Content, nil
	}

	chunks, err := s.docs.GetChunks(ctx, documentID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(chunk.Content)
	}
	return b.String(), nil
}

// GetDetails returns document metadata for display.
func (s *DocumentService) GetDetails(ctx context.Context, documentID string) (*driving.DocumentDetails, error) {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	chunkCount, err := s.docs.CountChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	metadata := make(map[string]string, len(doc.Metadata))
	for key, value := range doc.Metadata {
		metadata[key] = fmt.Sprintf("%v", value)
	}

	return &driving.DocumentDetails{
		ID:         doc.ID,
		Title:      doc.Title,
		Format:     doc.Format,
		URI:        doc.URI,
		ChunkCount: chunkCount,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
		Metadata:   metadata,
	}, nil
}

// Delete removes a document, its chunks and its vector entries. The index
// is cleared first so a half-failed delete can be retried; once Delete
// returns nil nothing of the document remains.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	if _, err := s.docs.GetDocument(ctx, documentID); err != nil {
		return err
	}

	if err := s.vectors.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("remove vectors: %w", err)
	}

	if err := s.docs.DeleteDocument(ctx, documentID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("remove document: %w", err)
	}

	logger.Info("Deleted document %s", documentID)
	return nil
}
