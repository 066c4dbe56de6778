// Package mcp provides an MCP (Model Context Protocol) server adapter for
// Grimoire. It lets AI assistants ask grounded questions, ingest documents
// and inspect the model registry over stdio or HTTP.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
