package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	// Create a temporary directory for the test database
	tempDir, err := os.MkdirTemp("", "grimoire-test-*")
	require.NoError(t, err)

	// Create store in temp directory
	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	// Return cleanup function
	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

// createTestDocument creates a test document to satisfy foreign key constraints.
func createTestDocument(t *testing.T, store *Store, docID string) {
	t.Helper()
	ctx := context.Background()
	docStore := store.DocumentStore()
	now := time.Now().UTC().Truncate(time.Second)
	doc := &domain.Document{
		ID:        docID,
		Format:    "text/plain",
		URI:       "file:///test/" + docID,
		Title:     "Test Document " + docID,
		Metadata:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := docStore.SaveDocument(ctx, doc)
	require.NoError(t, err)
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_ErrorHandling(t *testing.T) {
	// Test with invalid path (should fail to create directory)
	_, err := NewStore("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_Success(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "grimoire-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	// Verify database file was created
	dbPath := filepath.Join(tempDir, "metadata.db")
	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)

	// Verify database connection is working
	err = store.db.Ping()
	assert.NoError(t, err)
}

func TestNewStore_DefaultDirectory(t *testing.T) {
	// Point the home directory at a temp dir so the default location
	// does not touch the real ~/.grimoire.
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	store, err := NewStore("")
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	assert.Contains(t, store.Path(), ".grimoire")
	assert.Contains(t, store.Path(), "data")
	assert.Contains(t, store.Path(), "metadata.db")
	assert.FileExists(t, filepath.Join(tempHome, ".grimoire", "data", "metadata.db"))
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "grimoire-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	// Create store in a nested directory that doesn't exist yet
	nestedDir := filepath.Join(tempDir, "nested", "path", "to", "db")
	store, err := NewStore(nestedDir)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	// Verify all directories were created
	assert.DirExists(t, nestedDir)
}

func TestNewStore_Migrations(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	// Verify schema_migrations table exists
	var count int
	err := store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Greater(t, count, 0, "should have at least one migration")

	// Verify all expected tables exist
	tables := []string{
		"documents",
		"chunks",
		"model_stats",
	}

	for _, table := range tables {
		var tableExists int
		err := store.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&tableExists)
		require.NoError(t, err)
		assert.Equal(t, 1, tableExists, "table %s should exist", table)
	}
}

func TestNewStore_ForeignKeysEnabled(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	// Verify foreign keys are enabled
	var fkEnabled int
	err := store.db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled)
	require.NoError(t, err)
	assert.Equal(t, 1, fkEnabled, "foreign keys should be enabled")
}

func TestStore_Close(t *testing.T) {
	store, _ := setupTestStore(t)

	err := store.Close()
	assert.NoError(t, err)

	// Verify connection is closed
	err = store.db.Ping()
	assert.Error(t, err)
}

func TestStore_Path(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	path := store.Path()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, "metadata.db")
	assert.FileExists(t, path)
}

func TestStore_InterfaceGetters(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.NotNil(t, store.DocumentStore())
	assert.NotNil(t, store.ModelStatsStore())
}

// ==================== DocumentStore Tests ====================

func TestDocumentStore_SaveAndGetDocument(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	now := time.Now().UTC().Truncate(time.Second)
	doc := &domain.Document{
		ID:      "doc-1",
		Format:  "text/markdown",
		URI:     "file:///tmp/test.md",
		Title:   "Test Document",
		Content: "Full normalised document text.",
		Metadata: map[string]any{
			"author": "Test Author",
			"size":   float64(1024),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Save document
	err := docStore.SaveDocument(ctx, doc)
	require.NoError(t, err)

	// Get document
	retrieved, err := docStore.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, doc.ID, retrieved.ID)
	assert.Equal(t, doc.Format, retrieved.Format)
	assert.Equal(t, doc.URI, retrieved.URI)
	assert.Equal(t, doc.Title, retrieved.Title)
	assert.Equal(t, doc.Content, retrieved.Content)
	assert.Equal(t, "Test Author", retrieved.Metadata["author"])
	assert.Equal(t, float64(1024), retrieved.Metadata["size"])
	assert.True(t, doc.CreatedAt.Equal(retrieved.CreatedAt))
	assert.True(t, doc.UpdatedAt.Equal(retrieved.UpdatedAt))
}

func TestDocumentStore_SaveDocument_Update(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	now := time.Now().UTC().Truncate(time.Second)
	doc := &domain.Document{
		ID:        "doc-1",
		Format:    "text/plain",
		URI:       "file:///tmp/test.txt",
		Title:     "Original Title",
		Content:   "Original content",
		Metadata:  map[string]any{"version": float64(1)},
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Save original
	err := docStore.SaveDocument(ctx, doc)
	require.NoError(t, err)

	// Update and save again
	later := now.Add(time.Hour)
	doc.Title = "Updated Title"
	doc.Content = "Updated content"
	doc.Metadata = map[string]any{"version": float64(2)}
	doc.CreatedAt = later
	doc.UpdatedAt = later
	err = docStore.SaveDocument(ctx, doc)
	require.NoError(t, err)

	// Verify update, including the refreshed ingestion timestamp
	retrieved, err := docStore.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated Title", retrieved.Title)
	assert.Equal(t, "Updated content", retrieved.Content)
	assert.Equal(t, float64(2), retrieved.Metadata["version"])
	assert.True(t, later.Equal(retrieved.CreatedAt))
	assert.True(t, later.Equal(retrieved.UpdatedAt))
}

func TestDocumentStore_GetDocument_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	retrieved, err := docStore.GetDocument(ctx, "non-existent-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, retrieved)
}

func TestDocumentStore_DeleteDocument(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()
	createTestDocument(t, store, "doc-1")

	// Delete document
	err := docStore.DeleteDocument(ctx, "doc-1")
	require.NoError(t, err)

	// Verify deletion
	retrieved, err := docStore.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, retrieved)
}

func TestDocumentStore_DeleteDocument_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	err := docStore.DeleteDocument(ctx, "non-existent-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListDocuments(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	now := time.Now().UTC().Truncate(time.Second)

	// doc-old was ingested first; doc-a and doc-b share a timestamp
	docs := []*domain.Document{
		{
			ID:        "doc-old",
			Format:    "text/plain",
			URI:       "file:///tmp/old.txt",
			Title:     "Old Document",
			Metadata:  map[string]any{},
			CreatedAt: now.Add(-time.Hour),
			UpdatedAt: now.Add(-time.Hour),
		},
		{
			ID:        "doc-b",
			Format:    "text/plain",
			URI:       "file:///tmp/b.txt",
			Title:     "Document B",
			Metadata:  map[string]any{},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        "doc-a",
			Format:    "text/plain",
			URI:       "file:///tmp/a.txt",
			Title:     "Document A",
			Metadata:  map[string]any{},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	for _, doc := range docs {
		err := docStore.SaveDocument(ctx, doc)
		require.NoError(t, err)
	}

	// Most recent first, ties broken by ID
	retrieved, err := docStore.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, retrieved, 3)
	assert.Equal(t, "doc-a", retrieved[0].ID)
	assert.Equal(t, "doc-b", retrieved[1].ID)
	assert.Equal(t, "doc-old", retrieved[2].ID)
}

func TestDocumentStore_ListDocuments_Empty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	retrieved, err := docStore.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, retrieved)
}

// ==================== Chunk Tests ====================

func TestDocumentStore_SaveAndGetChunks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()
	createTestDocument(t, store, "doc-1")

	// Saved out of order to prove retrieval sorts by position
	chunks := []domain.Chunk{
		{
			ID:         "chunk-3",
			DocumentID: "doc-1",
			Content:    "Third chunk content",
			Position:   2,
			Embedding:  []float32{0.7, 0.8, 0.9},
			Metadata:   map[string]any{"page": float64(3)},
		},
		{
			ID:         "chunk-1",
			DocumentID: "doc-1",
			Content:    "First chunk content",
			Position:   0,
			Embedding:  []float32{0.1, 0.2, 0.3},
			Metadata:   map[string]any{"page": float64(1)},
		},
		{
			ID:         "chunk-2",
			DocumentID: "doc-1",
			Content:    "Second chunk content",
			Position:   1,
			Embedding:  []float32{0.4, 0.5, 0.6},
			Metadata:   map[string]any{"page": float64(2)},
		},
	}

	// Save chunks
	err := docStore.SaveChunks(ctx, chunks)
	require.NoError(t, err)

	// Get chunks
	retrieved, err := docStore.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, retrieved, 3)

	// Verify chunks are ordered by position
	for i, chunk := range retrieved {
		assert.Equal(t, i, chunk.Position)
	}
	assert.Equal(t, "First chunk content", retrieved[0].Content)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, retrieved[0].Embedding)
	assert.Equal(t, float64(1), retrieved[0].Metadata["page"])
}

func TestDocumentStore_GetChunk(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()
	createTestDocument(t, store, "doc-1")

	chunk := domain.Chunk{
		ID:         "chunk-1",
		DocumentID: "doc-1",
		Content:    "Test chunk content",
		Position:   0,
		Embedding:  []float32{0.1, 0.2, 0.3},
		Metadata:   map[string]any{"test": "value"},
	}

	// Save chunk
	err := docStore.SaveChunks(ctx, []domain.Chunk{chunk})
	require.NoError(t, err)

	// Get specific chunk
	retrieved, err := docStore.GetChunk(ctx, chunk.ID)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, chunk.ID, retrieved.ID)
	assert.Equal(t, chunk.DocumentID, retrieved.DocumentID)
	assert.Equal(t, chunk.Content, retrieved.Content)
	assert.Equal(t, chunk.Position, retrieved.Position)
	assert.Equal(t, chunk.Embedding, retrieved.Embedding)
	assert.Equal(t, chunk.Metadata["test"], retrieved.Metadata["test"])
}

func TestDocumentStore_GetChunk_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	retrieved, err := docStore.GetChunk(ctx, "non-existent-chunk")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, retrieved)
}

func TestDocumentStore_SaveChunks_ReplacesPriorSet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()
	createTestDocument(t, store, "doc-1")

	// Save three chunks
	first := []domain.Chunk{
		{ID: "chunk-1", DocumentID: "doc-1", Content: "One", Position: 0, Metadata: map[string]any{}},
		{ID: "chunk-2", DocumentID: "doc-1", Content: "Two", Position: 1, Metadata: map[string]any{}},
		{ID: "chunk-3", DocumentID: "doc-1", Content: "Three", Position: 2, Metadata: map[string]any{}},
	}
	err := docStore.SaveChunks(ctx, first)
	require.NoError(t, err)

	// Re-chunk into two; the old set must not linger
	second := []domain.Chunk{
		{ID: "chunk-a", DocumentID: "doc-1", Content: "Alpha", Position: 0, Metadata: map[string]any{}},
		{ID: "chunk-b", DocumentID: "doc-1", Content: "Beta", Position: 1, Metadata: map[string]any{}},
	}
	err = docStore.SaveChunks(ctx, second)
	require.NoError(t, err)

	retrieved, err := docStore.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, retrieved, 2)
	assert.Equal(t, "chunk-a", retrieved[0].ID)
	assert.Equal(t, "chunk-b", retrieved[1].ID)

	// The replaced chunks are gone entirely
	_, err = docStore.GetChunk(ctx, "chunk-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveChunks_Update(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()
	createTestDocument(t, store, "doc-1")

	// Save original chunk
	chunk := domain.Chunk{
		ID:         "chunk-1",
		DocumentID: "doc-1",
		Content:    "Original content",
		Position:   0,
		Embedding:  []float32{0.1, 0.2, 0.3},
		Metadata:   map[string]any{"version": float64(1)},
	}
	err := docStore.SaveChunks(ctx, []domain.Chunk{chunk})
	require.NoError(t, err)

	// Update and save again
	chunk.Content = "Updated content"
	chunk.Embedding = []float32{0.9, 0.8, 0.7}
	chunk.Metadata = map[string]any{"version": float64(2)}
	err = docStore.SaveChunks(ctx, []domain.Chunk{chunk})
	require.NoError(t, err)

	// Verify update
	retrieved, err := docStore.GetChunk(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated content", retrieved.Content)
	assert.Equal(t, []float32{0.9, 0.8, 0.7}, retrieved.Embedding)
	assert.Equal(t, float64(2), retrieved.Metadata["version"])
}

func TestDocumentStore_SaveChunks_Empty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	err := docStore.SaveChunks(ctx, nil)
	assert.NoError(t, err)
}

func TestDocumentStore_SaveChunks_EmptyEmbedding(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()
	createTestDocument(t, store, "doc-1")

	chunk := domain.Chunk{
		ID:         "chunk-1",
		DocumentID: "doc-1",
		Content:    "Content without embedding",
		Position:   0,
		Embedding:  nil,
		Metadata:   map[string]any{},
	}

	err := docStore.SaveChunks(ctx, []domain.Chunk{chunk})
	require.NoError(t, err)

	retrieved, err := docStore.GetChunk(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Nil(t, retrieved.Embedding)
}

func TestDocumentStore_CountChunks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()
	createTestDocument(t, store, "doc-1")

	// No chunks yet
	count, err := docStore.CountChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	chunks := []domain.Chunk{
		{ID: "chunk-1", DocumentID: "doc-1", Content: "One", Position: 0, Metadata: map[string]any{}},
		{ID: "chunk-2", DocumentID: "doc-1", Content: "Two", Position: 1, Metadata: map[string]any{}},
	}
	err = docStore.SaveChunks(ctx, chunks)
	require.NoError(t, err)

	count, err = docStore.CountChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDocumentStore_DeleteDocument_CascadesChunks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()
	createTestDocument(t, store, "doc-1")

	// Create chunks
	chunks := []domain.Chunk{
		{
			ID:         "chunk-1",
			DocumentID: "doc-1",
			Content:    "Chunk 1",
			Position:   0,
			Embedding:  []float32{0.1},
			Metadata:   map[string]any{},
		},
	}
	err := docStore.SaveChunks(ctx, chunks)
	require.NoError(t, err)

	// Delete document
	err = docStore.DeleteDocument(ctx, "doc-1")
	require.NoError(t, err)

	// Verify chunks are also deleted (cascade)
	retrieved, err := docStore.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, retrieved)

	count, err := docStore.CountChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStore_ForeignKeyConstraints(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	// Chunks for a document that does not exist must be rejected
	chunks := []domain.Chunk{
		{
			ID:         "chunk-orphan",
			DocumentID: "no-such-document",
			Content:    "Orphan",
			Position:   0,
			Metadata:   map[string]any{},
		},
	}

	err := docStore.SaveChunks(ctx, chunks)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "FOREIGN KEY constraint failed")
}

func TestDocumentStore_GetChunksEmptyResult(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()
	createTestDocument(t, store, "doc-1")

	// GetChunks for document with no chunks should return empty
	retrieved, err := docStore.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, retrieved)
}

// ==================== Helper Function Tests ====================

func TestFloat32SliceToBytes(t *testing.T) {
	tests := []struct {
		name   string
		input  []float32
		output []byte
	}{
		{
			name:   "empty slice",
			input:  []float32{},
			output: nil,
		},
		{
			name:   "nil slice",
			input:  nil,
			output: nil,
		},
		{
			name:   "single value",
			input:  []float32{1.0},
			output: []byte{0x00, 0x00, 0x80, 0x3f},
		},
		{
			name:  "multiple values",
			input: []float32{0.0, 1.0, -1.0},
			// 0.0 = 0x00000000, 1.0 = 0x3f800000, -1.0 = 0xbf800000 (little endian)
			output: []byte{
				0x00, 0x00, 0x00, 0x00, // 0.0
				0x00, 0x00, 0x80, 0x3f, // 1.0
				0x00, 0x00, 0x80, 0xbf, // -1.0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := float32SliceToBytes(tt.input)
			assert.Equal(t, tt.output, result)
		})
	}
}

func TestBytesToFloat32Slice(t *testing.T) {
	tests := []struct {
		name   string
		input  []byte
		output []float32
	}{
		{
			name:   "empty slice",
			input:  []byte{},
			output: nil,
		},
		{
			name:   "nil slice",
			input:  nil,
			output: nil,
		},
		{
			name:   "single value",
			input:  []byte{0x00, 0x00, 0x80, 0x3f},
			output: []float32{1.0},
		},
		{
			name: "multiple values",
			input: []byte{
				0x00, 0x00, 0x00, 0x00, // 0.0
				0x00, 0x00, 0x80, 0x3f, // 1.0
				0x00, 0x00, 0x80, 0xbf, // -1.0
			},
			output: []float32{0.0, 1.0, -1.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := bytesToFloat32Slice(tt.input)
			assert.Equal(t, tt.output, result)
		})
	}
}

func TestFloat32Roundtrip(t *testing.T) {
	original := []float32{0.1, 0.2, 0.3, -0.5, 100.5, -200.75}

	bytes := float32SliceToBytes(original)
	roundtrip := bytesToFloat32Slice(bytes)

	assert.Equal(t, original, roundtrip)
}

// ==================== Error Handling Tests ====================

func TestStore_ContextCancellation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	// Create a cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docStore := store.DocumentStore()
	now := time.Now().UTC().Truncate(time.Second)
	doc := &domain.Document{
		ID:        "doc-1",
		Format:    "text/plain",
		URI:       "file:///test",
		Title:     "Test",
		Metadata:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Operations with cancelled context should fail
	err := docStore.SaveDocument(ctx, doc)
	assert.Error(t, err)
}

func TestDocumentStore_InvalidDocumentJSON(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	// Manually insert document with invalid JSON metadata
	now := time.Now().UTC()
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO documents (id, format, uri, title, content, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, "doc-1", "text/plain", "file:///test", "Test", "", "invalid-json", now, now)
	require.NoError(t, err)

	docStore := store.DocumentStore()

	// Attempting to get the document should fail due to invalid JSON
	_, err = docStore.GetDocument(ctx, "doc-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling")
}

func TestChunkStore_InvalidChunkJSON(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	createTestDocument(t, store, "doc-1")

	// Manually insert chunk with invalid JSON metadata
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO chunks (id, document_id, content, position, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`, "chunk-1", "doc-1", "Test content", 0, nil, "invalid-json")
	require.NoError(t, err)

	docStore := store.DocumentStore()

	// Attempting to get the chunk should fail due to invalid JSON
	_, err = docStore.GetChunk(ctx, "chunk-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling")
}

func TestDocumentStore_SaveDocumentError_QueryFailure(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	now := time.Now().UTC().Truncate(time.Second)
	doc := &domain.Document{
		ID:        "doc-1",
		Format:    "text/plain",
		URI:       "file:///test",
		Title:     "Test",
		Metadata:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Close database to force error
	store.db.Close()

	err := docStore.SaveDocument(ctx, doc)
	assert.Error(t, err)
}

func TestDocumentStore_SaveChunksError_TransactionBeginFailure(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	chunks := []domain.Chunk{
		{
			ID:         "chunk-1",
			DocumentID: "doc-1",
			Content:    "Test",
			Position:   0,
			Embedding:  []float32{0.1},
			Metadata:   map[string]any{},
		},
	}

	// Close database to force transaction begin failure
	store.db.Close()

	err := docStore.SaveChunks(ctx, chunks)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "beginning transaction")
}

func TestDocumentStore_GetChunksError_QueryFailure(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	// Close database to force error
	store.db.Close()

	_, err := docStore.GetChunks(ctx, "doc-1")
	assert.Error(t, err)
}

func TestDocumentStore_DeleteDocumentError_QueryFailure(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	// Close database to force error
	store.db.Close()

	err := docStore.DeleteDocument(ctx, "doc-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListDocumentsError_QueryFailure(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	// Close database to force error
	store.db.Close()

	_, err := docStore.ListDocuments(ctx)
	assert.Error(t, err)
}

func TestDocumentStore_ListDocumentsError_ScanFailure(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	// Insert document with invalid JSON metadata
	now := time.Now().UTC()
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO documents (id, format, uri, title, content, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, "doc-1", "text/plain", "file:///test", "Test", "", "invalid{json", now, now)
	require.NoError(t, err)

	docStore := store.DocumentStore()

	// ListDocuments should fail when scanning invalid JSON
	_, err = docStore.ListDocuments(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling")
}

// ==================== Edge Cases ====================

func TestDocumentStore_EmptyMetadata(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	now := time.Now().UTC().Truncate(time.Second)
	doc := &domain.Document{
		ID:        "doc-1",
		Format:    "text/plain",
		URI:       "file:///test",
		Title:     "Test",
		Metadata:  nil,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := docStore.SaveDocument(ctx, doc)
	require.NoError(t, err)

	retrieved, err := docStore.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	// Nil metadata round-trips as nil
	assert.Nil(t, retrieved.Metadata)
}

func TestChunkStore_EmptyMetadata(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()
	createTestDocument(t, store, "doc-1")

	chunk := domain.Chunk{
		ID:         "chunk-1",
		DocumentID: "doc-1",
		Content:    "Test",
		Position:   0,
		Embedding:  []float32{0.1},
		Metadata:   nil,
	}

	err := docStore.SaveChunks(ctx, []domain.Chunk{chunk})
	require.NoError(t, err)

	retrieved, err := docStore.GetChunk(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Nil(t, retrieved.Metadata)
}

func TestScanDocumentRows_EmptyMetadata(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	now := time.Now().UTC()
	// Insert document with empty string metadata
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO documents (id, format, uri, title, content, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, "doc-1", "text/plain", "file:///test", "Test", "", "", now, now)
	require.NoError(t, err)

	docStore := store.DocumentStore()

	// Should handle empty metadata string
	doc, err := docStore.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.NotNil(t, doc)
	assert.Nil(t, doc.Metadata)
}

func TestScanChunkRow_EmptyMetadata(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	createTestDocument(t, store, "doc-1")

	// Insert chunk with empty string metadata
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO chunks (id, document_id, content, position, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`, "chunk-1", "doc-1", "Test", 0, nil, "")
	require.NoError(t, err)

	docStore := store.DocumentStore()

	// Should handle empty metadata string
	chunk, err := docStore.GetChunk(ctx, "chunk-1")
	require.NoError(t, err)
	assert.NotNil(t, chunk)
	assert.Nil(t, chunk.Metadata)
}

func TestStore_LargeEmbeddings(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()
	createTestDocument(t, store, "doc-1")

	// Create a large embedding (e.g., 1536 dimensions for OpenAI)
	largeEmbedding := make([]float32, 1536)
	for i := range largeEmbedding {
		largeEmbedding[i] = float32(i) * 0.001
	}

	chunk := domain.Chunk{
		ID:         "chunk-1",
		DocumentID: "doc-1",
		Content:    "Test with large embedding",
		Position:   0,
		Embedding:  largeEmbedding,
		Metadata:   map[string]any{},
	}

	err := docStore.SaveChunks(ctx, []domain.Chunk{chunk})
	require.NoError(t, err)

	retrieved, err := docStore.GetChunk(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Len(t, retrieved.Embedding, 1536)
	assert.Equal(t, largeEmbedding, retrieved.Embedding)
}

// ==================== Migration Tests ====================

func TestStore_MigrationIdempotency(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "grimoire-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	// Create store (runs migrations)
	store1, err := NewStore(tempDir)
	require.NoError(t, err)

	// Check migration version
	var version1 int
	err = store1.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version1)
	require.NoError(t, err)

	// Check migration count
	var count1 int
	err = store1.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count1)
	require.NoError(t, err)

	// Close and reopen (should not run migrations again)
	err = store1.Close()
	require.NoError(t, err)

	store2, err := NewStore(tempDir)
	require.NoError(t, err)
	defer store2.Close()

	// Check migration version is the same
	var version2 int
	err = store2.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version2)
	require.NoError(t, err)

	assert.Equal(t, version1, version2)

	// Check migration count is the same
	var count2 int
	err = store2.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count2)
	require.NoError(t, err)

	assert.Equal(t, count1, count2)
}

func TestStore_MigrateRecordsMigrationVersion(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "grimoire-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	// Verify schema_migrations table records migrations
	rows, err := store.db.Query("SELECT version FROM schema_migrations ORDER BY version")
	require.NoError(t, err)
	defer rows.Close()

	versions := []int{}
	for rows.Next() {
		var version int
		err := rows.Scan(&version)
		require.NoError(t, err)
		versions = append(versions, version)
	}
	require.NoError(t, rows.Err())

	// Should have at least one migration recorded
	assert.NotEmpty(t, versions)
	// Versions should be sequential starting from 1
	if len(versions) > 0 {
		assert.Equal(t, 1, versions[0])
	}
}

func TestStore_WALMode(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	// Verify WAL mode is enabled
	var journalMode string
	err := store.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	require.NoError(t, err)
	assert.Equal(t, "wal", journalMode)
}

// ==================== Concurrent Access Tests ====================

func TestStore_ConcurrentWrites(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()
	now := time.Now().UTC().Truncate(time.Second)

	// Launch multiple goroutines writing to the store
	const numGoroutines = 10
	done := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			doc := &domain.Document{
				ID:        fmt.Sprintf("doc-%d", id),
				Format:    "text/plain",
				URI:       fmt.Sprintf("file:///test/%d", id),
				Title:     "Test",
				Metadata:  map[string]any{},
				CreatedAt: now,
				UpdatedAt: now,
			}
			done <- docStore.SaveDocument(ctx, doc)
		}(i)
	}

	// Wait for all goroutines to complete
	for i := 0; i < numGoroutines; i++ {
		err := <-done
		assert.NoError(t, err)
	}

	// Verify all documents were saved
	docs, err := docStore.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, numGoroutines)
}

// ==================== Performance / Stress Tests ====================

func TestStore_BulkInsert(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping bulk insert test in short mode")
	}

	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docStore := store.DocumentStore()

	now := time.Now().UTC().Truncate(time.Second)

	// Insert 1000 documents
	const numDocs = 1000
	for i := 0; i < numDocs; i++ {
		doc := &domain.Document{
			ID:        fmt.Sprintf("doc-%04d", i),
			Format:    "text/plain",
			URI:       fmt.Sprintf("file:///test/%04d", i),
			Title:     fmt.Sprintf("Document %04d", i),
			Metadata:  map[string]any{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		err := docStore.SaveDocument(ctx, doc)
		require.NoError(t, err)
	}

	// Verify count
	docs, err := docStore.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, numDocs)
}

// ==================== End-to-End Workflow ====================

func TestStore_EndToEndWorkflow(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	// 1. Ingest a document
	docStore := store.DocumentStore()
	doc := &domain.Document{
		ID:        "doc-1",
		Format:    "text/markdown",
		URI:       "file:///tmp/notes.md",
		Title:     "Notes",
		Content:   "Full text of the notes.",
		Metadata:  map[string]any{"author": "Test"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := docStore.SaveDocument(ctx, doc)
	require.NoError(t, err)

	// 2. Store its chunks
	chunks := []domain.Chunk{
		{
			ID:         "chunk-1",
			DocumentID: doc.ID,
			Content:    "First chunk",
			Position:   0,
			Embedding:  []float32{0.1, 0.2, 0.3},
			Metadata:   map[string]any{"page": float64(1)},
		},
	}
	err = docStore.SaveChunks(ctx, chunks)
	require.NoError(t, err)

	// 3. Record model stats after answering a query over it
	statsStore := store.ModelStatsStore()
	err = statsStore.SaveStats(ctx, map[string]domain.ModelStats{
		"llama3.2": {SuccessCount: 1, LatencyEWMAMs: 840, LastInvokedAt: now},
	})
	require.NoError(t, err)

	// Verify everything was created correctly
	retrievedDoc, err := docStore.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, retrievedDoc.Title)

	retrievedChunks, err := docStore.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, retrievedChunks, 1)

	stats, err := statsStore.LoadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["llama3.2"].SuccessCount)
}
