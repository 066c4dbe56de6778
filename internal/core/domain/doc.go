// Package domain defines the core business entities for Grimoire.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: an ingested document with metadata
//   - Chunk: a retrievable unit within a document
//   - ModelDescriptor: a catalogued generation model with rolling stats
//   - Answer: a generated response with citations and confidence
//   - Error: the coded error taxonomy shared by all boundaries
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
