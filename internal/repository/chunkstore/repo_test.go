package chunkstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lorekeep/novelrag/internal/db"
	"github.com/lorekeep/novelrag/internal/domain"
)

func TestEnsureSchema_CreatesIndex(t *testing.T) {
	repo, ms := newTestRepo(t)

	var captured *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		captured = def
		return nil
	}

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured == nil {
		t.Fatal("expected CreateIndex call")
	}
	if captured.Name != indexName {
		t.Errorf("index name = %q", captured.Name)
	}
	if len(captured.Prefixes) != 1 || captured.Prefixes[0] != keyPrefix {
		t.Errorf("prefixes = %v", captured.Prefixes)
	}

	var vec *db.IndexField
	for i := range captured.Fields {
		if captured.Fields[i].Type == db.IndexFieldVector {
			vec = &captured.Fields[i]
		}
	}
	if vec == nil {
		t.Fatal("expected a vector field in the schema")
	}
	if vec.VectorDim != 4 {
		t.Errorf("vector dim = %d, expected 4", vec.VectorDim)
	}
	if vec.VectorDistance != db.DistanceCosine {
		t.Errorf("distance = %s, expected COSINE", vec.VectorDistance)
	}
}

func TestEnsureSchema_AlreadyExists(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return db.ErrIndexExists
	}

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("expected existing index to be fine, got %v", err)
	}
}

func TestEnsureSchema_Error(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return errors.New("boom")
	}

	err := repo.EnsureSchema(context.Background())
	if !errors.Is(err, domain.ErrStoreOperation) {
		t.Fatalf("expected ErrStoreOperation, got %v", err)
	}
}

func TestInsertBatch_FieldLayout(t *testing.T) {
	repo, ms := newTestRepo(t)

	var captured []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		captured = items
		return nil
	}

	ec := testEmbeddedChunk(t)
	if err := repo.InsertBatch(context.Background(), []domain.EmbeddedChunk{ec}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("expected 1 item, got %d", len(captured))
	}

	item := captured[0]
	if item.Key != keyPrefix+"doc-1:0" {
		t.Errorf("key = %q", item.Key)
	}

	fields := item.Fields
	if fields[fieldContent] != ec.Text {
		t.Errorf("content = %q", fields[fieldContent])
	}
	if fields[fieldPage] != "1" || fields[fieldStartLine] != "1" || fields[fieldEndLine] != "3" {
		t.Errorf("span fields = %q/%q/%q", fields[fieldPage], fields[fieldStartLine], fields[fieldEndLine])
	}
	if fields[fieldDocumentID] != "doc-1" || fields[fieldFilename] != "moby.txt" {
		t.Errorf("identity fields = %q/%q", fields[fieldDocumentID], fields[fieldFilename])
	}
	if fields[fieldChunkIndex] != "0" {
		t.Errorf("chunk_index = %q", fields[fieldChunkIndex])
	}
	if len(fields[fieldVector]) != 16 {
		t.Errorf("vector field = %d bytes, expected 16", len(fields[fieldVector]))
	}

	// The embedding must never leak into a text property.
	for name, value := range fields {
		if name == fieldVector {
			continue
		}
		if value == fields[fieldVector] {
			t.Errorf("vector bytes duplicated into field %q", name)
		}
	}
}

func TestInsertBatch_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetMultiFn = func(_ context.Context, _ []db.HashSetItem) error {
		t.Fatal("unexpected HSetMulti call")
		return nil
	}

	if err := repo.InsertBatch(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInsertBatch_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetMultiFn = func(_ context.Context, _ []db.HashSetItem) error {
		return errors.New("connection reset")
	}

	err := repo.InsertBatch(context.Background(), []domain.EmbeddedChunk{testEmbeddedChunk(t)})
	if !errors.Is(err, domain.ErrStoreOperation) {
		t.Fatalf("expected ErrStoreOperation, got %v", err)
	}
}

func TestQueryNearest_MapsMatches(t *testing.T) {
	repo, ms := newTestRepo(t)

	d1, d2 := 0.12, 0.34
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != indexName {
			t.Errorf("index = %q", q.IndexName)
		}
		if q.K != 3 {
			t.Errorf("k = %d", q.K)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{
					Key:      keyPrefix + "doc-1:0",
					Distance: &d1,
					Fields: map[string]string{
						fieldContent:    "first",
						fieldPage:       "1",
						fieldStartLine:  "1",
						fieldEndLine:    "4",
						fieldDocumentID: "doc-1",
						fieldFilename:   "moby.txt",
						fieldChunkIndex: "0",
					},
				},
				{
					Key:      keyPrefix + "doc-1:7",
					Distance: &d2,
					Fields: map[string]string{
						fieldContent:    "second",
						fieldPage:       "2",
						fieldStartLine:  "30",
						fieldEndLine:    "33",
						fieldDocumentID: "doc-1",
						fieldFilename:   "moby.txt",
						fieldChunkIndex: "7",
					},
				},
			},
		}, nil
	}

	matches, err := repo.QueryNearest(context.Background(), []float32{0.1, 0.2, 0.3, 0.4}, 3, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}

	first := matches[0]
	if first.Text != "first" || first.Page != 1 || first.StartLine != 1 || first.EndLine != 4 {
		t.Errorf("unexpected first chunk: %+v", first.Chunk)
	}
	if first.Distance == nil || *first.Distance != d1 {
		t.Errorf("first distance = %v", first.Distance)
	}
	if matches[1].Index != 7 {
		t.Errorf("second chunk index = %d", matches[1].Index)
	}
}

func TestQueryNearest_PassesDocumentFilter(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotFilter string
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		gotFilter = q.DocumentID
		return &db.SearchResult{}, nil
	}

	if _, err := repo.QueryNearest(context.Background(), []float32{0.1}, 5, "doc-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFilter != "doc-9" {
		t.Errorf("document filter = %q", gotFilter)
	}
}

func TestQueryNearest_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, errors.New("timeout")
	}

	_, err := repo.QueryNearest(context.Background(), []float32{0.1}, 5, "")
	if !errors.Is(err, domain.ErrStoreOperation) {
		t.Fatalf("expected ErrStoreOperation, got %v", err)
	}
}

func TestListDocuments_GroupsAndCounts(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchListFn = func(
		_ context.Context, index, query string, _, _ int, _ []string,
	) (*db.SearchResult, error) {
		if index != indexName || query != "*" {
			t.Errorf("unexpected query: %s %s", index, query)
		}
		return &db.SearchResult{
			Total: 3,
			Entries: []db.SearchEntry{
				{Key: keyPrefix + "a:0", Fields: map[string]string{fieldDocumentID: "a", fieldFilename: "alpha.txt"}},
				{Key: keyPrefix + "b:0", Fields: map[string]string{fieldDocumentID: "b", fieldFilename: "beta.pdf"}},
				{Key: keyPrefix + "a:1", Fields: map[string]string{fieldDocumentID: "a", fieldFilename: "alpha.txt"}},
			},
		}, nil
	}

	docs, err := repo.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Filename != "alpha.txt" || docs[0].ChunkCount != 2 {
		t.Errorf("unexpected first doc: %+v", docs[0])
	}
	if docs[1].ID != "b" || docs[1].ChunkCount != 1 {
		t.Errorf("unexpected second doc: %+v", docs[1])
	}
}

func TestDeleteByDocument_RemovesKeys(t *testing.T) {
	repo, ms := newTestRepo(t)

	keys := []string{keyPrefix + "doc-1:0", keyPrefix + "doc-1:1"}
	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if !strings.HasPrefix(pattern, keyPrefix+"doc-1:") {
			t.Errorf("scan pattern = %q", pattern)
		}
		return keys, nil
	}

	var deleted []string
	ms.delMultiFn = func(_ context.Context, ks []string) error {
		deleted = ks
		return nil
	}

	n, err := repo.DeleteByDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || len(deleted) != 2 {
		t.Errorf("deleted %d keys (%v)", n, deleted)
	}
}

func TestDeleteByDocument_NoChunksIsNoop(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.delMultiFn = func(_ context.Context, _ []string) error {
		t.Fatal("unexpected DelMulti call")
		return nil
	}

	n, err := repo.DeleteByDocument(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 deletions, got %d", n)
	}
}

func TestDeleteAll_EmptyStoreIsNoop(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.delMultiFn = func(_ context.Context, _ []string) error {
		t.Fatal("unexpected DelMulti call")
		return nil
	}

	n, err := repo.DeleteAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 deletions, got %d", n)
	}
}
