// Package normalisers converts raw document bytes into plain text ready
// for chunking and indexing. Each supported format (plain text, Markdown,
// HTML, DOCX, PDF, email, calendar) has its own Normaliser; the Registry
// dispatches by MIME type and priority.
package normalisers
