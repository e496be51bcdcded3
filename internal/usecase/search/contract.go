package search

import (
	"context"

	"github.com/quietpage/inkdex/internal/domain"
)

// Catalog is the document store contract for search operations.
type Catalog interface {
	DocumentsByTitlePrefix(ctx context.Context, kind domain.Kind, text string) ([]domain.Document, error)
	PublishedDocuments(ctx context.Context, kind domain.Kind) ([]domain.Document, error)
	DocumentsByIDs(ctx context.Context, kind domain.Kind, ids []string) ([]domain.Document, error)
	VectorSearch(ctx context.Context, kind domain.Kind, vector []float32, k int) ([]domain.VectorMatch, error)
}

// BodyFetcher resolves a content address into the raw markdown body.
type BodyFetcher interface {
	FetchBody(ctx context.Context, address string) ([]byte, error)
}
