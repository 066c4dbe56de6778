package driven

import (
	"context"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for a document.
// It maintains a priority-ordered list of normalisers and dispatches
// by MIME type.
type NormaliserRegistry interface {
	// Normalise transforms a raw document using the best matching
	// normaliser. Returns domain.ErrUnsupportedFormat when no
	// registered normaliser handles the document's MIME type.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
