// Package pgvector provides a VectorStore backed by Postgres with the
// pgvector extension. Similarity is computed in SQL as 1 minus the
// cosine distance operator, so thresholding and ordering happen on the
// database side.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// DefaultTable is used when the configuration names none.
const DefaultTable = "grimoire_chunks"

// validTable guards the table name, which is interpolated into DDL and
// queries as an identifier and cannot be bound as a parameter.
var validTable = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config holds Postgres connection and table settings.
type Config struct {
	// DSN is the Postgres connection string.
	DSN string

	// Table is the vector table name (default: grimoire_chunks).
	Table string

	// Dimensions is the embedding vector size. Must match the
	// embedding model.
	Dimensions int
}

// Store is a VectorStore over a single pgvector table. Chunk IDs are
// the primary key, so re-adding a chunk overwrites its prior entry.
type Store struct {
	pool  *pgxpool.Pool
	table string
	dims  int
}

// NewStore connects to Postgres, verifies the pgvector extension is
// installed, and ensures the vector table and its indexes exist.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, domain.Errorf(domain.CodeInvalidInput, "postgres DSN is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, domain.Errorf(domain.CodeInvalidInput,
			"embedding dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !validTable.MatchString(cfg.Table) {
		return nil, domain.Errorf(domain.CodeInvalidInput, "invalid table name %q", cfg.Table)
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	s := &Store{
		pool:  pool,
		table: cfg.Table,
		dims:  cfg.Dimensions,
	}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// ensureSchema verifies the extension and creates the table and indexes
// when missing. Extension creation needs superuser rights, so a missing
// extension is reported instead of attempted.
func (s *Store) ensureSchema(ctx context.Context) error {
	var extExists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')`,
	).Scan(&extExists)
	if err != nil {
		return fmt.Errorf("checking pgvector extension: %w", err)
	}
	if !extExists {
		return fmt.Errorf("pgvector extension is not installed; run CREATE EXTENSION vector as a superuser")
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			chunk_id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			ingested_at TIMESTAMPTZ NOT NULL,
			embedding vector(%[2]d) NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_document_id ON %[1]s (document_id);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_embedding
		ON %[1]s USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100);
	`, s.table, s.dims)

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating vector table %s: %w", s.table, err)
	}
	return nil
}

// Add upserts entries, overwriting any prior entry for the same chunk ID.
func (s *Store) Add(ctx context.Context, entries []driven.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	for _, entry := range entries {
		if entry.ChunkID == "" {
			return domain.Errorf(domain.CodeInvalidInput, "vector entry has no chunk ID")
		}
		if len(entry.Embedding) != s.dims {
			return domain.Errorf(domain.CodeInvalidInput,
				"embedding for chunk %s has %d dimensions, table expects %d",
				entry.ChunkID, len(entry.Embedding), s.dims)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	upsert := fmt.Sprintf(`
		INSERT INTO %s (chunk_id, document_id, ingested_at, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			ingested_at = EXCLUDED.ingested_at,
			embedding = EXCLUDED.embedding`, s.table)

	for _, entry := range entries {
		_, err := tx.Exec(ctx, upsert,
			entry.ChunkID,
			entry.DocumentID,
			entry.IngestedAt,
			pgvector.NewVector(entry.Embedding),
		)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return domain.WrapError(domain.ErrTimeout, err)
			}
			return fmt.Errorf("upserting vector for chunk %s: %w", entry.ChunkID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing vector upsert: %w", err)
	}
	return nil
}

// DeleteByDocument removes every entry belonging to a document.
// Deleting an unknown document is not an error.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, s.table)
	if _, err := s.pool.Exec(ctx, query, documentID); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.WrapError(domain.ErrTimeout, err)
		}
		return fmt.Errorf("deleting vectors for document %s: %w", documentID, err)
	}
	return nil
}

// Search returns up to topK hits with similarity of at least
// minSimilarity, ordered by similarity descending. Opposed vectors are
// floored at similarity 0 in SQL so they compare against the threshold
// on the same 0-1 scale the other backends use.
func (s *Store) Search(ctx context.Context, query []float32, topK int, minSimilarity float64) ([]driven.VectorHit, error) {
	if topK <= 0 {
		return []driven.VectorHit{}, nil
	}
	if len(query) != s.dims {
		return nil, domain.Errorf(domain.CodeInvalidInput,
			"query has %d dimensions, table expects %d", len(query), s.dims)
	}

	// ORDER BY keeps the raw distance operator so the ivfflat index
	// drives the scan; the trailing keys order equal-distance hits.
	sql := fmt.Sprintf(`
		SELECT chunk_id, document_id, ingested_at,
		       GREATEST(1 - (embedding <=> $1), 0) AS similarity
		FROM %s
		WHERE GREATEST(1 - (embedding <=> $1), 0) >= $2
		ORDER BY embedding <=> $1, ingested_at DESC, chunk_id ASC
		LIMIT $3`, s.table)

	rows, err := s.pool.Query(ctx, sql, pgvector.NewVector(query), minSimilarity, topK)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.WrapError(domain.ErrTimeout, err)
		}
		return nil, fmt.Errorf("searching table %s: %w", s.table, err)
	}
	defer rows.Close()

	hits := make([]driven.VectorHit, 0, topK)
	for rows.Next() {
		var hit driven.VectorHit
		var ingestedAt time.Time
		if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &ingestedAt, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("scanning vector hit: %w", err)
		}
		hit.IngestedAt = ingestedAt.UTC()
		if hit.Similarity > 1 {
			// Floating point can push a perfect match a hair over 1
			hit.Similarity = 1
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector hits: %w", err)
	}
	return hits, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres unreachable: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
