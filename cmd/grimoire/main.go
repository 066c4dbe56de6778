// Command grimoire is a local-first document Q&A assistant. It wires the
// configured adapters into the core services and hands control to the CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/arcanum-labs/grimoire/internal/adapters/driven/ai"
	configfile "github.com/arcanum-labs/grimoire/internal/adapters/driven/config/file"
	"github.com/arcanum-labs/grimoire/internal/adapters/driven/storage/sqlite"
	"github.com/arcanum-labs/grimoire/internal/adapters/driven/vector"
	vectormemory "github.com/arcanum-labs/grimoire/internal/adapters/driven/vector/memory"
	"github.com/arcanum-labs/grimoire/internal/adapters/driving/cli"
	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
	"github.com/arcanum-labs/grimoire/internal/core/services"
	"github.com/arcanum-labs/grimoire/internal/logger"
	"github.com/arcanum-labs/grimoire/internal/normalisers"
	"github.com/arcanum-labs/grimoire/internal/postprocessors"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Optional .env for API keys.
	_ = godotenv.Load()

	configStore, err := configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	defer store.Close()
	docs := store.DocumentStore()

	ctx := context.Background()

	vectors, err := vector.CreateVectorStore(ctx, settings.VectorStore)
	if err != nil {
		// Explicit startup fallback: config commands stay usable when
		// the configured backend is unreachable, and nothing degrades
		// silently at query time.
		logger.Error("%v", err)
		logger.Warn("Falling back to the in-memory vector store for this session")
		vectors = vectormemory.NewStore(settings.VectorStore.Dimensions)
	}
	defer vectors.Close()

	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return fmt.Errorf("create embedding service: %w", err)
	}
	if embedder != nil {
		defer embedder.Close()
	}

	catalog, err := configfile.LoadModelCatalog("")
	if err != nil {
		return fmt.Errorf("load model catalogue: %w", err)
	}

	registry, err := services.NewModelRegistry(catalog,
		services.WithStatsStore(store.ModelStatsStore()))
	if err != nil {
		return fmt.Errorf("create model registry: %w", err)
	}
	if err := registry.Start(ctx); err != nil {
		return fmt.Errorf("start model registry: %w", err)
	}
	defer func() {
		if err := registry.Stop(); err != nil {
			logger.Warn("Stopping model registry: %v", err)
		}
	}()

	router := services.NewRouter(registry)

	pool := ai.NewLLMPool(catalog, ai.PoolConfig{
		Providers: settings.Providers,
		Timeout:   time.Duration(settings.Generation.TimeoutSeconds) * time.Second,
	})
	defer pool.Close()

	wired := cli.Services{
		Models:   registry,
		Router:   router,
		Document: services.NewDocumentService(docs, vectors),
		Settings: settingsService,
		Config:   configStore,
	}

	// Ingestion and retrieval need a working embedding service. Without
	// one the commands report themselves unconfigured instead of wiring
	// a service that cannot run.
	if embedder == nil {
		logger.Warn("Embedding provider is not configured. Run 'grimoire config validate' to diagnose")
	} else {
		chunkPipeline, err := buildProcessorPipeline(settings.Pipeline)
		if err != nil {
			return fmt.Errorf("build processing pipeline: %w", err)
		}

		retriever := services.NewRetriever(embedder, vectors, docs, settings.Retrieval)
		queryPipeline := services.NewQueryPipeline(retriever, registry, router, pool, *settings)
		if prompts, err := configfile.NewPromptStore(""); err == nil {
			queryPipeline.SetPromptStore(prompts)
		} else {
			logger.Warn("Prompt store unavailable: %v", err)
		}

		wired.Ingest = services.NewIngestor(normalisers.NewDefaultRegistry(),
			chunkPipeline, embedder, docs, vectors)
		wired.Query = queryPipeline
	}

	cli.SetVersion(version)
	cli.SetServices(wired)

	return cli.Execute()
}

// buildProcessorPipeline assembles the chunking pipeline named by the
// configuration.
func buildProcessorPipeline(cfg domain.PipelineConfig) (*postprocessors.Pipeline, error) {
	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)

	processors := make([]driven.PostProcessor, 0, len(cfg.Processors))
	for _, name := range cfg.Processors {
		processor, err := registry.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, err
		}
		processors = append(processors, processor)
	}
	return postprocessors.NewPipeline(processors...), nil
}
