package normalisers

import (
	"context"
	"sort"
	"strings"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
	"github.com/arcanum-labs/grimoire/internal/normalisers/docx"
	"github.com/arcanum-labs/grimoire/internal/normalisers/eml"
	"github.com/arcanum-labs/grimoire/internal/normalisers/html"
	"github.com/arcanum-labs/grimoire/internal/normalisers/ics"
	"github.com/arcanum-labs/grimoire/internal/normalisers/markdown"
	"github.com/arcanum-labs/grimoire/internal/normalisers/pdf"
	"github.com/arcanum-labs/grimoire/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches raw documents to the highest-priority normaliser
// registered for their MIME type.
type Registry struct {
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates an empty normaliser registry.
func NewRegistry() *Registry {
	return &Registry{
		byMIME: make(map[string][]driven.Normaliser),
	}
}

// NewDefaultRegistry creates a registry with all built-in normalisers.
// The PDF normaliser is registered even when pdftotext is missing; the
// failure surfaces at ingest time with installation hints.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(pdf.New())
	r.Register(eml.New())
	r.Register(ics.New())
	return r
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(normaliser driven.Normaliser) {
	for _, mime := range normaliser.SupportedMIMETypes() {
		mime = canonicalMIME(mime)
		r.byMIME[mime] = append(r.byMIME[mime], normaliser)
		// Highest priority first.
		sort.SliceStable(r.byMIME[mime], func(i, j int) bool {
			return r.byMIME[mime][i].Priority() > r.byMIME[mime][j].Priority()
		})
	}
}

// Normalise transforms a raw document using the best matching normaliser.
// Returns domain.ErrUnsupportedFormat when no registered normaliser
// handles the document's MIME type.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	candidates := r.byMIME[canonicalMIME(raw.MIMEType)]
	if len(candidates) == 0 {
		return nil, domain.Errorf(domain.CodeUnsupportedFormat, "unsupported document format %q", raw.MIMEType)
	}

	return candidates[0].Normalise(ctx, raw)
}

// SupportedMIMETypes returns all MIME types that can be normalised.
func (r *Registry) SupportedMIMETypes() []string {
	types := make([]string, 0, len(r.byMIME))
	for mime := range r.byMIME {
		types = append(types, mime)
	}
	sort.Strings(types)
	return types
}

// canonicalMIME lowercases a MIME type and strips parameters like charset.
func canonicalMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}
