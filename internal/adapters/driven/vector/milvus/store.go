// Package milvus provides a VectorStore backed by a Milvus collection
// with an HNSW cosine index. The collection is created, indexed, and
// loaded on startup when it does not already exist.
package milvus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Collection field names.
const (
	fieldChunkID    = "chunk_id"
	fieldDocumentID = "document_id"
	fieldIngestedAt = "ingested_at"
	fieldEmbedding  = "embedding"
)

// idMaxLength bounds the VarChar primary key and document reference.
const idMaxLength = "255"

// DefaultCollection is used when the configuration names none.
const DefaultCollection = "grimoire_chunks"

// Config holds Milvus connection and collection settings.
type Config struct {
	// Address is the Milvus endpoint (host:port).
	Address string

	// Username and Password are optional credentials.
	Username string
	Password string

	// Collection is the collection name (default: grimoire_chunks).
	Collection string

	// Dimensions is the embedding vector size. Must match the
	// embedding model.
	Dimensions int
}

// Store is a VectorStore over a single Milvus collection. Chunk IDs are
// the primary key, so re-adding a chunk overwrites its prior entry.
type Store struct {
	client     *milvusclient.Client
	collection string
	dims       int
}

// NewStore connects to Milvus and ensures the chunk collection exists,
// is indexed, and is loaded into memory for searching.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, domain.Errorf(domain.CodeInvalidInput, "milvus address is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, domain.Errorf(domain.CodeInvalidInput,
			"embedding dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to milvus at %s: %w", cfg.Address, err)
	}

	s := &Store{
		client:     client,
		collection: cfg.Collection,
		dims:       cfg.Dimensions,
	}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	return s, nil
}

// ensureCollection creates the collection and its index when missing,
// then loads it. Loading an already-loaded collection is harmless.
func (s *Store) ensureCollection(ctx context.Context) error {
	hasOpt := milvusclient.NewHasCollectionOption(s.collection)
	exists, err := s.client.HasCollection(ctx, hasOpt)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.collection, err)
	}

	if !exists {
		schema := &entity.Schema{
			CollectionName: s.collection,
			Description:    "Chunk embeddings for retrieval",
			Fields: []*entity.Field{
				{
					Name:       fieldChunkID,
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					AutoID:     false,
					TypeParams: map[string]string{
						"max_length": idMaxLength,
					},
				},
				{
					Name:     fieldDocumentID,
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": idMaxLength,
					},
				},
				{
					Name:     fieldIngestedAt,
					DataType: entity.FieldTypeInt64,
				},
				{
					Name:     fieldEmbedding,
					DataType: entity.FieldTypeFloatVector,
					TypeParams: map[string]string{
						"dim": fmt.Sprintf("%d", s.dims),
					},
				},
			},
		}

		createOpt := milvusclient.NewCreateCollectionOption(s.collection, schema)
		createOpt.WithShardNum(1)
		if err := s.client.CreateCollection(ctx, createOpt); err != nil {
			return fmt.Errorf("creating collection %s: %w", s.collection, err)
		}

		// The COSINE metric keeps scores on the same 0-1 scale the
		// other backends produce.
		idx := index.NewHNSWIndex(entity.COSINE, 16, 200)
		indexOpt := milvusclient.NewCreateIndexOption(s.collection, fieldEmbedding, idx)
		if _, err := s.client.CreateIndex(ctx, indexOpt); err != nil {
			return fmt.Errorf("creating index on %s: %w", fieldEmbedding, err)
		}
	}

	loadOpt := milvusclient.NewLoadCollectionOption(s.collection)
	if _, err := s.client.LoadCollection(ctx, loadOpt); err != nil {
		return fmt.Errorf("loading collection %s: %w", s.collection, err)
	}
	return nil
}

// Add upserts entries, overwriting any prior entry for the same chunk ID.
func (s *Store) Add(ctx context.Context, entries []driven.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	docIDs := make([]string, len(entries))
	ingested := make([]int64, len(entries))
	vectors := make([][]float32, len(entries))
	for i, entry := range entries {
		if entry.ChunkID == "" {
			return domain.Errorf(domain.CodeInvalidInput, "vector entry has no chunk ID")
		}
		if len(entry.Embedding) != s.dims {
			return domain.Errorf(domain.CodeInvalidInput,
				"embedding for chunk %s has %d dimensions, collection expects %d",
				entry.ChunkID, len(entry.Embedding), s.dims)
		}
		ids[i] = entry.ChunkID
		docIDs[i] = entry.DocumentID
		ingested[i] = entry.IngestedAt.UnixMilli()
		vectors[i] = entry.Embedding
	}

	upsertOpt := milvusclient.NewColumnBasedInsertOption(s.collection,
		column.NewColumnVarChar(fieldChunkID, ids),
		column.NewColumnVarChar(fieldDocumentID, docIDs),
		column.NewColumnInt64(fieldIngestedAt, ingested),
		column.NewColumnFloatVector(fieldEmbedding, s.dims, vectors),
	)
	if _, err := s.client.Upsert(ctx, upsertOpt); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.WrapError(domain.ErrTimeout, err)
		}
		return fmt.Errorf("upserting %d vectors: %w", len(entries), err)
	}
	return nil
}

// DeleteByDocument removes every entry belonging to a document.
// Deleting an unknown document is not an error.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	expr := fmt.Sprintf("%s == %s", fieldDocumentID, quoteExpr(documentID))
	deleteOpt := milvusclient.NewDeleteOption(s.collection).WithExpr(expr)
	if _, err := s.client.Delete(ctx, deleteOpt); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.WrapError(domain.ErrTimeout, err)
		}
		return fmt.Errorf("deleting vectors for document %s: %w", documentID, err)
	}
	return nil
}

// Search runs an ANN search and returns up to topK hits with similarity
// of at least minSimilarity, ordered by similarity descending. The
// index reports cosine scores directly; they are clamped to [0,1]
// before the threshold applies.
func (s *Store) Search(ctx context.Context, query []float32, topK int, minSimilarity float64) ([]driven.VectorHit, error) {
	if topK <= 0 {
		return []driven.VectorHit{}, nil
	}
	if len(query) != s.dims {
		return nil, domain.Errorf(domain.CodeInvalidInput,
			"query has %d dimensions, collection expects %d", len(query), s.dims)
	}

	searchOpt := milvusclient.NewSearchOption(s.collection, topK, []entity.Vector{entity.FloatVector(query)}).
		WithANNSField(fieldEmbedding).
		WithOutputFields(fieldDocumentID, fieldIngestedAt)

	results, err := s.client.Search(ctx, searchOpt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.WrapError(domain.ErrTimeout, err)
		}
		return nil, fmt.Errorf("searching collection %s: %w", s.collection, err)
	}

	hits := make([]driven.VectorHit, 0, topK)
	for _, rs := range results {
		docCol := rs.GetColumn(fieldDocumentID)
		timeCol := rs.GetColumn(fieldIngestedAt)
		if docCol == nil || timeCol == nil {
			return nil, fmt.Errorf("search result for %s is missing output fields", s.collection)
		}

		for i := 0; i < rs.ResultCount; i++ {
			similarity := clampScore(rs.Scores[i])
			if similarity < minSimilarity {
				continue
			}
			chunkID, err := rs.IDs.GetAsString(i)
			if err != nil {
				return nil, fmt.Errorf("reading chunk ID at %d: %w", i, err)
			}
			docID, err := docCol.GetAsString(i)
			if err != nil {
				return nil, fmt.Errorf("reading document ID at %d: %w", i, err)
			}
			ingestedMs, err := timeCol.GetAsInt64(i)
			if err != nil {
				return nil, fmt.Errorf("reading ingestion time at %d: %w", i, err)
			}
			hits = append(hits, driven.VectorHit{
				ChunkID:    chunkID,
				DocumentID: docID,
				Similarity: similarity,
				IngestedAt: time.UnixMilli(ingestedMs).UTC(),
			})
		}
	}

	// The server orders by score; re-sorting applies a stable order to
	// equal-similarity hits as well.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		if !hits[i].IngestedAt.Equal(hits[j].IngestedAt) {
			return hits[i].IngestedAt.After(hits[j].IngestedAt)
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Ping verifies Milvus is reachable and the collection still exists.
func (s *Store) Ping(ctx context.Context) error {
	hasOpt := milvusclient.NewHasCollectionOption(s.collection)
	exists, err := s.client.HasCollection(ctx, hasOpt)
	if err != nil {
		return fmt.Errorf("milvus unreachable: %w", err)
	}
	if !exists {
		return fmt.Errorf("collection %s does not exist", s.collection)
	}
	return nil
}

// Close closes the client connection.
func (s *Store) Close() error {
	return s.client.Close(context.Background())
}

// quoteExpr renders a string literal for a Milvus filter expression.
func quoteExpr(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return `"` + value + `"`
}

// clampScore maps a raw cosine score onto [0,1]. Opposed vectors score
// 0 so they never pass the similarity floor.
func clampScore(score float32) float64 {
	s := float64(score)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
