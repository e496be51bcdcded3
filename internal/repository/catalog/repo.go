// Package catalog is the document repository: hash-per-document storage with
// a per-kind id set and an HNSW vector index per kind. Title and
// missing-embedding reads are client-side filters over the kind set — the
// catalog is personal-site sized, a round-trip per query is cheaper to own
// than an extra text index.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/quietpage/inkdex/internal/db"
	"github.com/quietpage/inkdex/internal/domain"
)

// store is the consumer interface over the database facade (ISP).
type store interface {
	db.HashStore
	db.SetStore
	db.IndexManager
	db.Searcher
}

// HNSWConfig holds vector index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo reads and writes documents.
type Repo struct {
	store     store
	keyPrefix string
	vectorDim int
	hnsw      HNSWConfig
}

// New creates a document repository.
func New(s store, keyPrefix string, vectorDim int) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, vectorDim: vectorDim}
}

// WithHNSW configures vector index build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

func (r *Repo) docKey(kind domain.Kind, id string) string {
	return r.keyPrefix + "doc:" + string(kind) + ":" + id
}

func (r *Repo) setKey(kind domain.Kind) string {
	return r.keyPrefix + "docs:" + string(kind)
}

func (r *Repo) indexName(kind domain.Kind) string {
	return r.keyPrefix + "idx:" + string(kind)
}

// EnsureIndexes creates the per-kind vector indexes if absent.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	for _, kind := range domain.Kinds() {
		name := r.indexName(kind)
		exists, err := r.store.IndexExists(ctx, name)
		if err != nil {
			return fmt.Errorf("probe index %s: %w", name, err)
		}
		if exists {
			continue
		}

		def := &db.IndexDefinition{
			Name:     name,
			Prefixes: []string{r.keyPrefix + "doc:" + string(kind) + ":"},
			Fields: []db.IndexField{
				{Name: fieldPublished, Type: db.IndexFieldTag},
				{Name: fieldUnlisted, Type: db.IndexFieldTag},
				{Name: "vector", Type: db.IndexFieldVector, Vector: &db.VectorParams{
					Dimensions:  r.vectorDim,
					M:           r.hnsw.M,
					EFConstruct: r.hnsw.EFConstruct,
				}},
			},
		}
		if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}
	return nil
}

// UpsertDocument stores a document and registers it in the kind set.
// An existing embedding is preserved unless the document carries one.
func (r *Repo) UpsertDocument(ctx context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	fields := documentToFields(doc)
	if doc.HasEmbedding() {
		// Index field name must match the FT schema.
		fields["vector"] = fields[fieldEmbedding]
	}
	if err := r.store.HSet(ctx, r.docKey(doc.Kind, doc.ID), fields); err != nil {
		return fmt.Errorf("store document %s: %w", doc.ID, err)
	}
	if err := r.store.SAdd(ctx, r.setKey(doc.Kind), doc.ID); err != nil {
		return fmt.Errorf("register document %s: %w", doc.ID, err)
	}
	return nil
}

// PatchEmbedding persists the vector onto the document. The write is a field
// patch: repeating it is safe, concurrent writers converge on last-write-wins.
func (r *Repo) PatchEmbedding(ctx context.Context, kind domain.Kind, id string, vec []float32) error {
	raw := string(embeddingToBytes(vec))
	err := r.store.HSet(ctx, r.docKey(kind, id), map[string]string{
		fieldEmbedding: raw,
		"vector":       raw,
	})
	if err != nil {
		return fmt.Errorf("patch embedding %s/%s: %w", kind, id, err)
	}
	return nil
}

// loadAll fetches every document of a kind, id-ordered for deterministic
// iteration (backfill batches must be stable across runs).
func (r *Repo) loadAll(ctx context.Context, kind domain.Kind) ([]domain.Document, error) {
	ids, err := r.store.SMembers(ctx, r.setKey(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s ids: %w", kind, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(kind, id)
	}

	raw, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load %s documents: %w", kind, err)
	}

	docs := make([]domain.Document, 0, len(raw))
	for _, fields := range raw {
		if len(fields) == 0 {
			continue // id in the set but hash gone; tolerate
		}
		doc, err := documentFromFields(kind, fields)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// DocumentsByTitlePrefix returns listed documents whose title contains text,
// case-insensitive.
func (r *Repo) DocumentsByTitlePrefix(ctx context.Context, kind domain.Kind, text string) ([]domain.Document, error) {
	docs, err := r.loadAll(ctx, kind)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(text)
	var out []domain.Document
	for _, doc := range docs {
		if doc.Listed() && strings.Contains(strings.ToLower(doc.Title), needle) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// PublishedDocuments returns all listed documents of a kind.
func (r *Repo) PublishedDocuments(ctx context.Context, kind domain.Kind) ([]domain.Document, error) {
	docs, err := r.loadAll(ctx, kind)
	if err != nil {
		return nil, err
	}
	var out []domain.Document
	for _, doc := range docs {
		if doc.Listed() {
			out = append(out, doc)
		}
	}
	return out, nil
}

// DocumentsMissingEmbedding returns up to limit listed documents of a kind
// with no persisted vector. Absence of the embedding field is the whole job
// state: a failed document simply shows up again on the next run.
func (r *Repo) DocumentsMissingEmbedding(ctx context.Context, kind domain.Kind, limit int) ([]domain.Document, error) {
	docs, err := r.loadAll(ctx, kind)
	if err != nil {
		return nil, err
	}
	var out []domain.Document
	for _, doc := range docs {
		if !doc.Listed() || doc.HasEmbedding() {
			continue
		}
		out = append(out, doc)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// DocumentBySlug resolves a slug regardless of listing state (unlisted posts
// are directly addressable).
func (r *Repo) DocumentBySlug(ctx context.Context, kind domain.Kind, slug string) (domain.Document, error) {
	docs, err := r.loadAll(ctx, kind)
	if err != nil {
		return domain.Document{}, err
	}
	for _, doc := range docs {
		if doc.Slug == slug {
			return doc, nil
		}
	}
	return domain.Document{}, fmt.Errorf("%s/%s: %w", kind, slug, domain.ErrDocumentNotFound)
}

// DocumentsByIDs resolves vector matches back to documents; unknown ids are
// skipped (the index may briefly lag behind a deletion).
func (r *Repo) DocumentsByIDs(ctx context.Context, kind domain.Kind, ids []string) ([]domain.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(kind, id)
	}
	raw, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("resolve %s documents: %w", kind, err)
	}
	docs := make([]domain.Document, 0, len(raw))
	for _, fields := range raw {
		if len(fields) == 0 {
			continue
		}
		doc, err := documentFromFields(kind, fields)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// VectorSearch runs KNN over the kind's index, pre-filtered to published
// documents. Unlisted filtering happens in the caller: pages have no unlisted
// flag and post results also need it applied after id resolution.
func (r *Repo) VectorSearch(ctx context.Context, kind domain.Kind, vector []float32, k int) ([]domain.VectorMatch, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(kind),
		Vector:       vector,
		K:            k,
		Filter:       "@" + fieldPublished + ":{1}",
		ReturnFields: []string{fieldID, "__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("vector search %s: %w", kind, err)
	}

	matches := make([]domain.VectorMatch, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := e.Fields[fieldID]
		if id == "" {
			// Fall back to the key suffix when the id field was not returned.
			id = strings.TrimPrefix(e.Key, r.keyPrefix+"doc:"+string(kind)+":")
		}
		matches = append(matches, domain.VectorMatch{ID: id, Score: e.Score})
	}
	return matches, nil
}
