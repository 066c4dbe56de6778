// Package vector selects and constructs the configured vector store
// backend.
package vector

import (
	"context"
	"fmt"
	"time"

	memoryvec "github.com/arcanum-labs/grimoire/internal/adapters/driven/vector/memory"
	milvusvec "github.com/arcanum-labs/grimoire/internal/adapters/driven/vector/milvus"
	pgvectorvec "github.com/arcanum-labs/grimoire/internal/adapters/driven/vector/pgvector"
	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
)

// connectTimeout bounds backend connection and schema setup at startup.
const connectTimeout = 10 * time.Second

// CreateVectorStore builds the configured backend. Persistent backends
// are dialled and their schema ensured here, so an unreachable backend
// fails at startup rather than at query time.
func CreateVectorStore(ctx context.Context, settings domain.VectorStoreSettings) (driven.VectorStore, error) {
	switch settings.Backend {
	case domain.VectorBackendMemory:
		return memoryvec.NewStore(settings.Dimensions), nil

	case domain.VectorBackendMilvus:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		store, err := milvusvec.NewStore(connectCtx, milvusvec.Config{
			Address:    settings.Address,
			Collection: settings.Collection,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("milvus vector store: %w. Run 'grimoire config validate' to diagnose", err)
		}
		return store, nil

	case domain.VectorBackendPgvector:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		store, err := pgvectorvec.NewStore(connectCtx, pgvectorvec.Config{
			DSN:        settings.DSN,
			Table:      settings.Collection,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("pgvector vector store: %w. Run 'grimoire config validate' to diagnose", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", settings.Backend)
	}
}

// ValidateVectorStoreConfig connects to the configured backend, pings
// it, and closes it again. Intended for configuration validation.
func ValidateVectorStoreConfig(settings domain.VectorStoreSettings) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	store, err := CreateVectorStore(ctx, settings)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Ping(ctx)
}
