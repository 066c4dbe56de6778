package mcp

import (
	"github.com/arcanum-labs/grimoire/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query answers questions against the knowledge base.
	Query driving.QueryService

	// Ingest brings documents into the knowledge base.
	Ingest driving.IngestService

	// Models exposes the model registry.
	Models driving.ModelsService

	// Document manages stored documents.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	// Ingest, Models and Document are optional; their tools report
	// the missing service when invoked.
	return nil
}
