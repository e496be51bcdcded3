// Package embedding maintains document vectors lazily: a document missing its
// embedding IS the unit of work, there is no job queue. Backfill runs in small
// bounded batches so a scheduled caller converges over repeated invocations
// without ever holding a long provider session.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/quietpage/inkdex/internal/domain"
	"github.com/quietpage/inkdex/internal/markdown"
	"github.com/quietpage/inkdex/internal/metrics"
)

// Outcome is the per-document result of a backfill pass.
type Outcome struct {
	ID  string
	Err error
}

// Report aggregates one EnsureEmbeddings invocation. Skipped means the
// provider credential is absent: not an error, embedding is an optional
// enhancement layer.
type Report struct {
	Skipped  bool
	Outcomes []Outcome
}

// Embedded counts successfully embedded documents.
func (r Report) Embedded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts documents whose embedding attempt failed.
func (r Report) Failed() int { return len(r.Outcomes) - r.Embedded() }

// Service is the embedding pipeline.
type Service struct {
	catalog  Catalog
	fetcher  BodyFetcher
	embed    domain.Embedder // nil when no credential is configured
	dims     int
	maxInput int
	logger   *zap.Logger
}

// New creates the pipeline. embed may be nil; the pipeline then reports
// every operation as skipped.
func New(
	catalog Catalog, fetcher BodyFetcher, embed domain.Embedder,
	dims, maxInput int, logger *zap.Logger,
) *Service {
	return &Service{
		catalog:  catalog,
		fetcher:  fetcher,
		embed:    embed,
		dims:     dims,
		maxInput: maxInput,
		logger:   logger,
	}
}

// Available reports whether an embedding provider is configured.
func (s *Service) Available() bool { return s.embed != nil }

// EnsureEmbeddings backfills up to limit documents of the given kind that
// lack a vector. Every document is isolated: a failure is recorded, logged,
// and the batch moves on — the document stays unembedded and is picked up by
// the next scheduled run.
func (s *Service) EnsureEmbeddings(ctx context.Context, kind domain.Kind, limit int) (Report, error) {
	if !s.Available() {
		s.logger.Info("embedding backfill skipped: no provider credential",
			zap.String("kind", string(kind)))
		return Report{Skipped: true}, nil
	}

	docs, err := s.catalog.DocumentsMissingEmbedding(ctx, kind, limit)
	if err != nil {
		return Report{}, fmt.Errorf("select documents missing embedding: %w", err)
	}

	report := Report{Outcomes: make([]Outcome, 0, len(docs))}
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		doc := &docs[i]
		embedErr := s.embedDocument(ctx, doc)
		report.Outcomes = append(report.Outcomes, Outcome{ID: doc.ID, Err: embedErr})

		if embedErr != nil {
			metrics.EmbeddingBackfillTotal.WithLabelValues(string(kind), "failed").Inc()
			s.logger.Warn("failed to embed document",
				zap.String("kind", string(kind)),
				zap.String("slug", doc.Slug),
				zap.Error(embedErr),
			)
			continue
		}
		metrics.EmbeddingBackfillTotal.WithLabelValues(string(kind), "embedded").Inc()
	}

	s.logger.Info("embedding backfill pass complete",
		zap.String("kind", string(kind)),
		zap.Int("embedded", report.Embedded()),
		zap.Int("failed", report.Failed()),
	)
	return report, nil
}

// RegenerateEmbedding recomputes the vector for a single document by slug,
// resolving posts before pages.
func (s *Service) RegenerateEmbedding(ctx context.Context, slug string) error {
	if !s.Available() {
		return domain.ErrProviderCredentialMissing
	}

	var doc domain.Document
	found := false
	for _, kind := range domain.Kinds() {
		d, err := s.catalog.DocumentBySlug(ctx, kind, slug)
		if err == nil {
			doc = d
			found = true
			break
		}
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			return fmt.Errorf("resolve %s: %w", slug, err)
		}
	}
	if !found {
		return fmt.Errorf("%s: %w", slug, domain.ErrDocumentNotFound)
	}

	return s.embedDocument(ctx, &doc)
}

// embedDocument runs the full per-document sequence: fetch body (title-only
// fallback on failure), build input, embed, validate, persist.
func (s *Service) embedDocument(ctx context.Context, doc *domain.Document) error {
	input := s.buildInput(ctx, doc)

	res, err := s.embed.Embed(ctx, input)
	if err != nil {
		return fmt.Errorf("embed %s: %w", doc.Slug, err)
	}
	if err := domain.ValidateEmbedding(res.Embedding, s.dims); err != nil {
		return fmt.Errorf("embed %s: %w", doc.Slug, err)
	}

	if err := s.catalog.PatchEmbedding(ctx, doc.Kind, doc.ID, res.Embedding); err != nil {
		return fmt.Errorf("persist embedding %s: %w", doc.Slug, err)
	}
	return nil
}

// buildInput assembles the embedding text: title plus the cleaned body. A
// body fetch failure degrades to embedding the title alone — a weaker vector
// today beats no vector at all, and a later regenerate can fix it.
func (s *Service) buildInput(ctx context.Context, doc *domain.Document) string {
	input := doc.Title

	body, err := s.fetcher.FetchBody(ctx, doc.ContentAddress)
	if err != nil {
		s.logger.Warn("body fetch failed, embedding title only",
			zap.String("slug", doc.Slug),
			zap.Error(err),
		)
	} else {
		input = doc.Title + "\n\n" + markdown.CleanForEmbedding(string(body))
	}

	if s.maxInput > 0 && len(input) > s.maxInput {
		input = input[:s.maxInput]
	}
	return input
}
