// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - NormaliserRegistry: Selects a Normaliser for each document format
//   - Normaliser: Transforms raw documents into indexed form
//   - DocumentStore: Document and chunk persistence
//   - VectorStore: Embedding storage and similarity search. The backend
//     (in-memory, Milvus, pgvector) is chosen once at startup.
//   - EmbeddingService: Generates vector embeddings
//   - LLMPool: Resolves registry model names to generation backends
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ModelStatsStore: Persists model statistics across restarts.
//     Without it, statistics reset on every start.
//   - PromptStore: Customisable prompt templates. Without it, services
//     fall back to built-in defaults.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
