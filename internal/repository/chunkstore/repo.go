package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/lorekeep/novelrag/internal/db"
	"github.com/lorekeep/novelrag/internal/domain"
)

// Collection is the logical name of the chunk collection.
const Collection = "NovelChunk"

const (
	keyPrefix = "novelrag:" + Collection + ":"
	indexName = "novelrag:" + Collection + ":idx"

	// DefaultVectorDim fits nomic-embed-text embeddings.
	DefaultVectorDim = 768

	hnswM           = 16
	hnswEFConstruct = 200

	listPageSize = 10000
)

// store is the consumer interface for chunk storage (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
}

// Repo stores embedded chunks as Redis hashes behind an FT vector index.
type Repo struct {
	store     store
	vectorDim int
}

// New creates a chunk repository. dim is the embedding dimensionality the
// index is created with; zero selects DefaultVectorDim.
func New(s store, dim int) *Repo {
	if dim <= 0 {
		dim = DefaultVectorDim
	}
	return &Repo{store: s, vectorDim: dim}
}

// EnsureSchema creates the chunk index if it does not exist yet. Safe to
// call on every startup.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	def := &db.IndexDefinition{
		Name:     indexName,
		Prefixes: []string{keyPrefix},
		Fields: []db.IndexField{
			{Name: fieldDocumentID, Type: db.IndexFieldTag},
			{Name: fieldFilename, Type: db.IndexFieldTag},
			{Name: fieldPage, Type: db.IndexFieldNumeric},
			{Name: fieldChunkIndex, Type: db.IndexFieldNumeric},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           hnswM,
				VectorEFConstruct: hnswEFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create chunk index: %w: %w", err, domain.ErrStoreOperation)
	}
	return nil
}

// InsertBatch persists a batch of embedded chunks in one round-trip.
func (r *Repo) InsertBatch(ctx context.Context, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(chunks))
	for i := range chunks {
		ec := &chunks[i]
		items[i] = db.HashSetItem{
			Key:    chunkKey(ec.DocumentID, ec.Index),
			Fields: buildHashFields(ec),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("insert chunk batch: %w: %w", err, domain.ErrStoreOperation)
	}
	return nil
}

// QueryNearest returns the k chunks closest to the query vector, in store
// order, with the raw cosine distance attached. documentID, when non-empty,
// restricts the search to a single document.
func (r *Repo) QueryNearest(ctx context.Context, vector []float32, k int, documentID string) ([]domain.Match, error) {
	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:  indexName,
		Vector:     vector,
		K:          k,
		DocumentID: documentID,
		ReturnFields: []string{
			fieldContent, fieldPage, fieldStartLine, fieldEndLine,
			fieldDocumentID, fieldFilename, fieldChunkIndex,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w: %w", err, domain.ErrStoreOperation)
	}

	matches := make([]domain.Match, 0, len(result.Entries))
	for _, entry := range result.Entries {
		matches = append(matches, domain.Match{
			Chunk:    parseChunkFields(entry.Fields),
			Distance: entry.Distance,
		})
	}
	return matches, nil
}

// ListDocuments groups stored chunks by document and reports per-document
// chunk counts, ordered by filename.
func (r *Repo) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	result, err := r.store.SearchList(ctx, indexName, "*", 0, listPageSize,
		[]string{fieldDocumentID, fieldFilename})
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w: %w", err, domain.ErrStoreOperation)
	}

	byID := make(map[string]*domain.DocumentInfo)
	for _, entry := range result.Entries {
		id := entry.Fields[fieldDocumentID]
		if id == "" {
			continue
		}
		info, ok := byID[id]
		if !ok {
			info = &domain.DocumentInfo{ID: id, Filename: entry.Fields[fieldFilename]}
			byID[id] = info
		}
		info.ChunkCount++
	}

	docs := make([]domain.DocumentInfo, 0, len(byID))
	for _, info := range byID {
		docs = append(docs, *info)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Filename != docs[j].Filename {
			return docs[i].Filename < docs[j].Filename
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// DeleteByDocument removes all chunks of one document. Deleting a document
// that has no chunks is a no-op.
func (r *Repo) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+documentID+":*")
	if err != nil {
		return 0, fmt.Errorf("scan document chunks: %w: %w", err, domain.ErrStoreOperation)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := r.store.DelMulti(ctx, keys); err != nil {
		return 0, fmt.Errorf("delete document chunks: %w: %w", err, domain.ErrStoreOperation)
	}
	return len(keys), nil
}

// DeleteAll removes every stored chunk. An empty store is a no-op.
func (r *Repo) DeleteAll(ctx context.Context) (int, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("scan chunks: %w: %w", err, domain.ErrStoreOperation)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := r.store.DelMulti(ctx, keys); err != nil {
		return 0, fmt.Errorf("delete chunks: %w: %w", err, domain.ErrStoreOperation)
	}
	return len(keys), nil
}

func chunkKey(documentID string, chunkIndex int) string {
	return keyPrefix + documentID + ":" + strconv.Itoa(chunkIndex)
}
