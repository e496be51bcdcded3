package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/quietpage/inkdex/internal/db"
	"github.com/quietpage/inkdex/internal/domain"
)

// --- Mock store ---

type mockStore struct {
	hashes  map[string]map[string]string
	sets    map[string]map[string]struct{}
	indexes map[string]*db.IndexDefinition

	knnResult *db.SearchResult
	knnErr    error
	lastKNN   *db.KNNQuery
}

func newMockStore() *mockStore {
	return &mockStore{
		hashes:  make(map[string]map[string]string),
		sets:    make(map[string]map[string]struct{}),
		indexes: make(map[string]*db.IndexDefinition),
	}
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return m.hashes[key], nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, key := range keys {
		out[i] = m.hashes[key]
	}
	return out, nil
}

func (m *mockStore) HDel(_ context.Context, key string, fields ...string) error {
	for _, f := range fields {
		delete(m.hashes[key], f)
	}
	return nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	delete(m.hashes, key)
	return nil
}

func (m *mockStore) SAdd(_ context.Context, key string, members ...string) error {
	s, ok := m.sets[key]
	if !ok {
		s = make(map[string]struct{})
		m.sets[key] = s
	}
	for _, member := range members {
		s[member] = struct{}{}
	}
	return nil
}

func (m *mockStore) SMembers(_ context.Context, key string) ([]string, error) {
	var out []string
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return out, nil
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if _, ok := m.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	m.indexes[def.Name] = def
	return nil
}

func (m *mockStore) IndexExists(_ context.Context, name string) (bool, error) {
	_, ok := m.indexes[name]
	return ok, nil
}

func (m *mockStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.lastKNN = q
	if m.knnErr != nil {
		return nil, m.knnErr
	}
	if m.knnResult != nil {
		return m.knnResult, nil
	}
	return &db.SearchResult{}, nil
}

// --- Helpers ---

const testPrefix = "inkdex:"

func testRepo() (*Repo, *mockStore) {
	s := newMockStore()
	return New(s, testPrefix, 4), s
}

func testDoc(id, slug, title string) domain.Document {
	return domain.Document{
		ID: id, Kind: domain.KindPost, Slug: slug, Title: title,
		ContentAddress: "addr-" + id, Published: true,
		Tags: []string{"go", "redis"},
	}
}

// --- Tests ---

func TestUpsertDocument_RoundTrip(t *testing.T) {
	repo, _ := testRepo()
	ctx := context.Background()

	doc := testDoc("1", "first-post", "First Post")
	doc.Embedding = []float32{0.1, 0.2, 0.3, 0.4}

	if err := repo.UpsertDocument(ctx, &doc); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.DocumentBySlug(ctx, domain.KindPost, "first-post")
	if err != nil {
		t.Fatalf("resolve by slug: %v", err)
	}
	if got.ID != "1" || got.Title != "First Post" || !got.Published {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" {
		t.Errorf("tags lost: %v", got.Tags)
	}
	if len(got.Embedding) != 4 || got.Embedding[1] != 0.2 {
		t.Errorf("embedding lost: %v", got.Embedding)
	}
}

func TestUpsertDocument_InvalidDocumentRejected(t *testing.T) {
	repo, store := testRepo()

	doc := testDoc("1", "s", "T")
	doc.ContentAddress = "" // published without a body address

	if err := repo.UpsertDocument(context.Background(), &doc); err == nil {
		t.Fatal("expected validation error")
	}
	if len(store.hashes) != 0 {
		t.Error("invalid document must not be stored")
	}
}

func TestPatchEmbedding_WritesIndexField(t *testing.T) {
	repo, store := testRepo()
	ctx := context.Background()

	doc := testDoc("1", "s", "T")
	if err := repo.UpsertDocument(ctx, &doc); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := repo.PatchEmbedding(ctx, domain.KindPost, "1", []float32{1, 2, 3, 4}); err != nil {
		t.Fatalf("patch: %v", err)
	}

	fields := store.hashes[testPrefix+"doc:post:1"]
	if fields["embedding"] == "" {
		t.Error("embedding field not written")
	}
	if fields["vector"] != fields["embedding"] {
		t.Error("index vector field must mirror the embedding field")
	}

	got, err := repo.DocumentBySlug(ctx, domain.KindPost, "s")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !got.HasEmbedding() {
		t.Error("patched document should report an embedding")
	}
}

func TestDocumentsByTitlePrefix_CaseInsensitive_ListedOnly(t *testing.T) {
	repo, _ := testRepo()
	ctx := context.Background()

	visible := testDoc("1", "a", "Intro to Caching")
	draft := testDoc("2", "b", "Caching Drafts")
	draft.Published = false
	hidden := testDoc("3", "c", "Caching Secrets")
	hidden.Unlisted = true
	other := testDoc("4", "d", "Unrelated")

	for _, d := range []domain.Document{visible, draft, hidden, other} {
		doc := d
		// Unpublished documents may omit the content address.
		if !doc.Published {
			doc.ContentAddress = ""
		}
		if err := repo.UpsertDocument(ctx, &doc); err != nil {
			t.Fatalf("upsert %s: %v", doc.ID, err)
		}
	}

	docs, err := repo.DocumentsByTitlePrefix(ctx, domain.KindPost, "CACHING")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "1" {
		t.Errorf("expected only the listed match, got %+v", docs)
	}
}

func TestDocumentsMissingEmbedding_LimitAndOrder(t *testing.T) {
	repo, _ := testRepo()
	ctx := context.Background()

	withVec := testDoc("1", "a", "A")
	withVec.Embedding = []float32{1, 2, 3, 4}
	noVecB := testDoc("2", "b", "B")
	noVecC := testDoc("3", "c", "C")

	for _, d := range []domain.Document{withVec, noVecB, noVecC} {
		doc := d
		if err := repo.UpsertDocument(ctx, &doc); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	docs, err := repo.DocumentsMissingEmbedding(ctx, domain.KindPost, 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("limit ignored, got %d docs", len(docs))
	}
	// Ids are sorted, so the first missing one is deterministic.
	if docs[0].ID != "2" {
		t.Errorf("expected id 2 first, got %s", docs[0].ID)
	}

	docs, err = repo.DocumentsMissingEmbedding(ctx, domain.KindPost, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected both unembedded docs, got %d", len(docs))
	}
}

func TestDocumentBySlug_NotFound(t *testing.T) {
	repo, _ := testRepo()

	_, err := repo.DocumentBySlug(context.Background(), domain.KindPost, "nope")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestEnsureIndexes_CreatesPerKind_Idempotent(t *testing.T) {
	repo, store := testRepo()
	ctx := context.Background()

	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if len(store.indexes) != 2 {
		t.Fatalf("expected one index per kind, got %d", len(store.indexes))
	}
	def := store.indexes[testPrefix+"idx:post"]
	if def == nil {
		t.Fatal("posts index missing")
	}
	if def.Fields[2].Vector == nil || def.Fields[2].Vector.Dimensions != 4 {
		t.Errorf("vector field misconfigured: %+v", def.Fields[2])
	}

	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("second ensure must be a no-op: %v", err)
	}
}

func TestVectorSearch_FilterAndIDFallback(t *testing.T) {
	repo, store := testRepo()
	store.knnResult = &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			{Key: testPrefix + "doc:post:1", Score: 0.9, Fields: map[string]string{"id": "1"}},
			{Key: testPrefix + "doc:post:2", Score: 0.4, Fields: map[string]string{}},
		},
	}

	matches, err := repo.VectorSearch(context.Background(), domain.KindPost, []float32{1, 2, 3, 4}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if store.lastKNN.Filter != "@published:{1}" {
		t.Errorf("filter = %q, want published pre-filter", store.lastKNN.Filter)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "1" || matches[0].Score != 0.9 {
		t.Errorf("first match wrong: %+v", matches[0])
	}
	// Second entry has no id field; it must come from the key suffix.
	if matches[1].ID != "2" {
		t.Errorf("id fallback failed: %+v", matches[1])
	}
}
