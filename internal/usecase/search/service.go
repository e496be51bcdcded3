// Package search merges title, full-content, and vector retrieval into one
// ranked result list. Title retrieval is the guaranteed-available baseline:
// whatever fails behind it, a search returns a (possibly empty) list, never
// an error to the user.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quietpage/inkdex/internal/domain"
	"github.com/quietpage/inkdex/internal/gateway"
	"github.com/quietpage/inkdex/internal/markdown"
)

// Config holds retrieval caps and snippet sizing.
type Config struct {
	TitleLimit       int // per-kind cap for title retrieval
	KNNTopK          int // per-kind cap for vector retrieval
	ResultLimit      int // final list cap
	SnippetLength    int
	FetchConcurrency int // bounded gateway fan-out
}

// itemError records one skipped document during content retrieval, so callers
// and tests can see what failed instead of a silent catch-and-log.
type itemError struct {
	ID  string
	Err error
}

// Service is the hybrid search engine.
type Service struct {
	catalog Catalog
	fetcher BodyFetcher
	embed   domain.Embedder // nil when no credential is configured
	cfg     Config
	logger  *zap.Logger
}

// New creates a search service. embed may be nil; semantic search then
// degrades to an empty result list.
func New(catalog Catalog, fetcher BodyFetcher, embed domain.Embedder, cfg Config, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, fetcher: fetcher, embed: embed, cfg: cfg, logger: logger}
}

// SemanticAvailable reports whether meaning-based search is configured.
func (s *Service) SemanticAvailable() bool { return s.embed != nil }

// Search runs keyword-mode retrieval: title matches first, then full-content
// matches, deduplicated, capped. Per-document backend failures are skipped;
// the method never fails a whole search because one body would not load.
func (s *Service) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}

	results := make([]domain.SearchResult, 0, s.cfg.ResultLimit)
	seen := make(map[string]struct{})

	// Title retrieval: no body fetches, description-only snippets.
	for _, kind := range domain.Kinds() {
		docs, err := s.catalog.DocumentsByTitlePrefix(ctx, kind, q)
		if err != nil {
			s.logger.Warn("title retrieval failed",
				zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		if len(docs) > s.cfg.TitleLimit {
			docs = docs[:s.cfg.TitleLimit]
		}
		for i := range docs {
			doc := &docs[i]
			seen[resultKey(doc.Kind, doc.ID)] = struct{}{}
			results = append(results, domain.SearchResult{
				ID:          doc.ID,
				Kind:        doc.Kind,
				Slug:        doc.Slug,
				Title:       doc.Title,
				Description: doc.Description,
				Snippet:     doc.Description,
			})
		}
	}

	matches, failures := s.contentMatches(ctx, q, seen)
	results = append(results, matches...)

	// Transient gateway failures resolve themselves on a later search; a
	// document that can never be fetched is a data bug worth a louder line.
	for _, f := range failures {
		if gateway.IsRetryableFetch(f.Err) {
			continue
		}
		s.logger.Warn("document body unfetchable",
			zap.String("id", f.ID), zap.Error(f.Err))
	}
	if len(failures) > 0 {
		s.logger.Info("content retrieval skipped documents",
			zap.Int("skipped", len(failures)),
			zap.String("first_id", failures[0].ID),
		)
	}

	return truncate(results, s.cfg.ResultLimit), nil
}

// contentMatches fetches every remaining published document's body through
// the gateway with a bounded worker pool and tests it against the query.
// Results keep document order; failures are collected, not fatal.
func (s *Service) contentMatches(
	ctx context.Context, query string, seen map[string]struct{},
) ([]domain.SearchResult, []itemError) {
	var pending []domain.Document
	for _, kind := range domain.Kinds() {
		docs, err := s.catalog.PublishedDocuments(ctx, kind)
		if err != nil {
			s.logger.Warn("document listing failed",
				zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		for _, doc := range docs {
			if _, ok := seen[resultKey(doc.Kind, doc.ID)]; ok {
				continue
			}
			pending = append(pending, doc)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	type slot struct {
		res *domain.SearchResult
		err error
	}
	slots := make([]slot, len(pending))

	// A worker limit keeps the fan-out from tripping the gateway's rate
	// limiter; the 401/403/429 fallback hop is the correctness backstop.
	pool, err := ants.NewPool(s.cfg.FetchConcurrency)
	if err != nil {
		// Invalid pool size only happens on misconfiguration; degrade to serial.
		for i := range pending {
			res, merr := s.matchDocument(ctx, query, &pending[i])
			slots[i] = slot{res: res, err: merr}
		}
	} else {
		defer pool.Release()
		var wg sync.WaitGroup
		for i := range pending {
			wg.Add(1)
			task := func() {
				defer wg.Done()
				res, merr := s.matchDocument(ctx, query, &pending[i])
				slots[i] = slot{res: res, err: merr}
			}
			if serr := pool.Submit(task); serr != nil {
				wg.Done()
				slots[i] = slot{err: serr}
			}
		}
		wg.Wait()
	}

	var out []domain.SearchResult
	var failures []itemError
	for i := range slots {
		switch {
		case slots[i].err != nil:
			failures = append(failures, itemError{ID: pending[i].ID, Err: slots[i].err})
		case slots[i].res != nil:
			out = append(out, *slots[i].res)
		}
	}
	return out, failures
}

// matchDocument fetches one body and tests it. A nil result with nil error
// means the document simply does not match.
func (s *Service) matchDocument(ctx context.Context, query string, doc *domain.Document) (*domain.SearchResult, error) {
	body, err := s.fetcher.FetchBody(ctx, doc.ContentAddress)
	if err != nil {
		return nil, err
	}

	raw := string(body)
	term, ok := matchTerm(strings.ToLower(raw), strings.ToLower(query))
	if !ok {
		return nil, nil
	}

	snippet, anchor := markdown.Snippet(raw, term, s.cfg.SnippetLength)
	return &domain.SearchResult{
		ID:          doc.ID,
		Kind:        doc.Kind,
		Slug:        doc.Slug,
		Title:       doc.Title,
		Description: doc.Description,
		Snippet:     snippet,
		Anchor:      anchor,
	}, nil
}

// matchTerm reports whether the body matches: the whole query verbatim, or
// any individual token longer than two characters. Returns the term that
// matched so the snippet can center on it.
func matchTerm(lowerBody, lowerQuery string) (string, bool) {
	if strings.Contains(lowerBody, lowerQuery) {
		return lowerQuery, true
	}
	for _, tok := range strings.Fields(lowerQuery) {
		if len(tok) > 2 && strings.Contains(lowerBody, tok) {
			return tok, true
		}
	}
	return "", false
}

// SearchSemantic runs meaning-based retrieval over the vector indexes.
// With no provider configured it returns an empty list: callers fall back to
// keyword search.
func (s *Service) SearchSemantic(ctx context.Context, query string) ([]domain.SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}
	if !s.SemanticAvailable() {
		return []domain.SearchResult{}, nil
	}

	embRes, err := s.embed.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	kinds := domain.Kinds()
	perKind := make([][]scoredDoc, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			docs, err := s.retrieveKind(gctx, kind, embRes.Embedding)
			if err != nil {
				// Per-kind isolation: a failed index query degrades that
				// kind's results, it does not fail the search.
				s.logger.Warn("semantic retrieval failed",
					zap.String("kind", string(kind)), zap.Error(err))
				return nil
			}
			perKind[i] = docs
			return nil
		})
	}
	_ = g.Wait()

	var scored []scoredDoc
	for _, docs := range perKind {
		scored = append(scored, docs...)
	}
	if len(scored) == 0 {
		return []domain.SearchResult{}, nil
	}

	results := s.buildSemanticResults(ctx, scored)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return truncate(results, s.cfg.ResultLimit), nil
}

type scoredDoc struct {
	doc   domain.Document
	score float64
}

// retrieveKind runs the ANN query for one kind and resolves ids to documents,
// dropping anything not listed (unpublished, or unlisted posts).
func (s *Service) retrieveKind(ctx context.Context, kind domain.Kind, vec []float32) ([]scoredDoc, error) {
	matches, err := s.catalog.VectorSearch(ctx, kind, vec, s.cfg.KNNTopK)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	scores := make(map[string]float64, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
		scores[m.ID] = m.Score
	}

	docs, err := s.catalog.DocumentsByIDs(ctx, kind, ids)
	if err != nil {
		return nil, err
	}

	out := make([]scoredDoc, 0, len(docs))
	for _, doc := range docs {
		if !doc.Listed() {
			continue
		}
		out = append(out, scoredDoc{doc: doc, score: scores[doc.ID]})
	}
	return out, nil
}

// buildSemanticResults attaches a lead snippet to every scored document,
// fetching bodies with the same bounded pool as content retrieval. A failed
// fetch falls back to the description, then the title.
func (s *Service) buildSemanticResults(ctx context.Context, scored []scoredDoc) []domain.SearchResult {
	results := make([]domain.SearchResult, len(scored))

	build := func(i int) {
		doc := &scored[i].doc
		results[i] = domain.SearchResult{
			ID:          doc.ID,
			Kind:        doc.Kind,
			Slug:        doc.Slug,
			Title:       doc.Title,
			Description: doc.Description,
			Snippet:     s.semanticSnippet(ctx, doc),
			Score:       scored[i].score,
		}
	}

	pool, err := ants.NewPool(s.cfg.FetchConcurrency)
	if err != nil {
		for i := range scored {
			build(i)
		}
		return results
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range scored {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			build(i)
		}
		if serr := pool.Submit(task); serr != nil {
			wg.Done()
			build(i)
		}
	}
	wg.Wait()
	return results
}

func (s *Service) semanticSnippet(ctx context.Context, doc *domain.Document) string {
	body, err := s.fetcher.FetchBody(ctx, doc.ContentAddress)
	if err != nil {
		s.logger.Debug("snippet body fetch failed, using description",
			zap.String("slug", doc.Slug), zap.Error(err))
		if doc.Description != "" {
			return doc.Description
		}
		return doc.Title
	}
	return markdown.Lead(string(body), s.cfg.SnippetLength)
}

func resultKey(kind domain.Kind, id string) string {
	return string(kind) + "/" + id
}

func truncate(results []domain.SearchResult, limit int) []domain.SearchResult {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
