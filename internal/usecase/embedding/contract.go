package embedding

import (
	"context"

	"github.com/quietpage/inkdex/internal/domain"
)

// Catalog is the document store contract the pipeline needs.
type Catalog interface {
	DocumentsMissingEmbedding(ctx context.Context, kind domain.Kind, limit int) ([]domain.Document, error)
	DocumentBySlug(ctx context.Context, kind domain.Kind, slug string) (domain.Document, error)
	PatchEmbedding(ctx context.Context, kind domain.Kind, id string, vec []float32) error
}

// BodyFetcher resolves a content address into the raw markdown body.
type BodyFetcher interface {
	FetchBody(ctx context.Context, address string) ([]byte, error)
}
