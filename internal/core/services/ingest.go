package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driving"
	"github.com/arcanum-labs/grimoire/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.IngestService = (*Ingestor)(nil)

// Ingestor runs the ingestion pipeline: normalise, chunk, embed, store,
// index. A document becomes visible to retrieval only once every step has
// succeeded; any failure removes what was written so far.
type Ingestor struct {
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	embedder driven.EmbeddingService
	docs     driven.DocumentStore
	vectors  driven.VectorStore
}

// NewIngestor creates an ingestion service.
func NewIngestor(
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	docs driven.DocumentStore,
	vectors driven.VectorStore,
) *Ingestor {
	return &Ingestor{
		registry: registry,
		pipeline: pipeline,
		embedder: embedder,
		docs:     docs,
		vectors:  vectors,
	}
}

// Ingest brings one document into the knowledge base. Re-using a document
// ID replaces the prior version: its chunks and vectors are removed only
// after the new embedding batch has succeeded, and the ingestion timestamp
// is refreshed so the replacement wins recency tie-breaks.
//
//nolint:gocyclo // Pipeline orchestration with sequential steps
func (s *Ingestor) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestReceipt, error) {
	if len(req.Content) == 0 {
		return nil, domain.Errorf(domain.CodeInvalidInput, "document content is empty")
	}

	format := strings.TrimSpace(req.Format)
	if format == "" {
		format = sniffMIMEType(req.URI)
	}

	docID := req.DocumentID
	if docID == "" {
		docID = uuid.New().String()
	}

	logger.Debug("Ingesting document %s (%s, %d bytes)", docID, format, len(req.Content))

	// 1. NORMALISE (produces Document with Content)
	raw := &domain.RawDocument{
		URI:      req.URI,
		MIMEType: format,
		Content:  req.Content,
		Metadata: req.Metadata,
	}
	result, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise: %w", err)
	}

	now := time.Now()
	doc := result.Document
	doc.ID = docID
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if req.Title != "" {
		doc.Title = req.Title
	}

	// 2. RUN POST-PROCESSOR PIPELINE (produces Chunks)
	chunks, err := s.pipeline.Process(ctx, &doc)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}

	// 3. EMBED. Runs before any write so a backend failure leaves the
	// store untouched.
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i := range chunks {
			texts[i] = chunks[i].Content
		}
		embeddings, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		if len(embeddings) != len(chunks) {
			return nil, domain.Errorf(domain.CodeEmbeddingBackend,
				"embedding batch returned %d vectors for %d chunks", len(embeddings), len(chunks))
		}
		for i := range chunks {
			chunks[i].Embedding = embeddings[i]
		}
	}

	// 4. REMOVE PRIOR VERSION (replacement only). The new batch is fully
	// embedded at this point, so the old version is never lost to a
	// transient backend failure.
	replaced, err := s.removePriorVersion(ctx, docID)
	if err != nil {
		return nil, err
	}

	// 5. SAVE TO DOCUMENT STORE
	if err := s.docs.SaveDocument(ctx, &doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := s.docs.SaveChunks(ctx, chunks); err != nil {
		s.rollback(ctx, docID)
		return nil, fmt.Errorf("save chunks: %w", err)
	}

	// 6. INDEX FOR VECTOR SEARCH
	if len(chunks) > 0 {
		entries := make([]driven.VectorEntry, len(chunks))
		for i, chunk := range chunks {
			entries[i] = driven.VectorEntry{
				ChunkID:    chunk.ID,
				DocumentID: docID,
				Embedding:  chunk.Embedding,
				IngestedAt: doc.CreatedAt,
			}
		}
		if err := s.vectors.Add(ctx, entries); err != nil {
			s.rollback(ctx, docID)
			return nil, fmt.Errorf("index vectors: %w", err)
		}
	}

	logger.Info("Ingested document %s: %d chunks", docID, len(chunks))

	return &domain.IngestReceipt{
		DocumentID: docID,
		ChunkCount: len(chunks),
		Replaced:   replaced,
	}, nil
}

// Reindex rebuilds the vector index from persisted chunk embeddings.
func (s *Ingestor) Reindex(ctx context.Context) (int, error) {
	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}

	total := 0
	for _, doc := range docs {
		chunks, err := s.docs.GetChunks(ctx, doc.ID)
		if err != nil {
			return total, fmt.Errorf("load chunks for %s: %w", doc.ID, err)
		}

		entries := make([]driven.VectorEntry, 0, len(chunks))
		for _, chunk := range chunks {
			if len(chunk.Embedding) == 0 {
				logger.Debug("Skipping chunk %s: no stored embedding", chunk.ID)
				continue
			}
			entries = append(entries, driven.VectorEntry{
				ChunkID:    chunk.ID,
				DocumentID: doc.ID,
				Embedding:  chunk.Embedding,
				IngestedAt: doc.CreatedAt,
			})
		}
		if len(entries) == 0 {
			continue
		}

		if err := s.vectors.Add(ctx, entries); err != nil {
			return total, fmt.Errorf("index document %s: %w", doc.ID, err)
		}
		total += len(entries)
	}

	logger.Info("Reindexed %d chunks from %d documents", total, len(docs))
	return total, nil
}

// removePriorVersion clears an existing document's chunks and vectors
// ahead of a replacement write. Reports whether a prior version existed.
func (s *Ingestor) removePriorVersion(ctx context.Context, docID string) (bool, error) {
	_, err := s.docs.GetDocument(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check existing document: %w", err)
	}

	logger.Debug("Replacing prior version of document %s", docID)

	if err := s.vectors.DeleteByDocument(ctx, docID); err != nil {
		return false, fmt.Errorf("remove prior vectors: %w", err)
	}
	if err := s.docs.DeleteDocument(ctx, docID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("remove prior document: %w", err)
	}
	return true, nil
}

// rollback removes every trace of a partially written document. Failures
// are only logged: the original error is already on its way to the caller.
func (s *Ingestor) rollback(ctx context.Context, docID string) {
	if err := s.vectors.DeleteByDocument(ctx, docID); err != nil {
		logger.Warn("Rollback failed to remove vectors for %s: %v", docID, err)
	}
	if err := s.docs.DeleteDocument(ctx, docID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("Rollback failed to remove document %s: %v", docID, err)
	}
}

// fallbackMIMETypes maps extensions the platform MIME database commonly
// misses or registers inconsistently, mostly source and config formats.
var fallbackMIMETypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".rs":       "text/x-rust",
	".ts":       "text/typescript",
	".tsx":      "text/typescript-jsx",
	".jsx":      "text/javascript-jsx",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".sh":       "text/x-shellscript",
	".bash":     "text/x-shellscript",
	".sql":      "text/x-sql",
	".eml":      "message/rfc822",
	".ics":      "text/calendar",
}

// sniffMIMEType guesses a MIME type from a URI's extension. Extensionless
// paths are treated as plain text. Unknown extensions map to
// application/octet-stream so the resulting unsupported-format error
// names the real problem instead of mis-parsing binary content.
func sniffMIMEType(uri string) string {
	ext := strings.ToLower(filepath.Ext(uri))
	if ext == "" {
		return "text/plain"
	}
	if mimeType, ok := fallbackMIMETypes[ext]; ok {
		return mimeType
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		// Strip any charset parameter
		if base, _, err := mime.ParseMediaType(mimeType); err == nil {
			return base
		}
		return mimeType
	}
	return "application/octet-stream"
}
