package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	DocumentID   string // optional TAG pre-filter on the document_id field
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search. Distance is the raw
// vector distance reported by the engine; nil when the engine returned none
// (non-KNN queries, or an unparsable score).
type SearchEntry struct {
	Key      string
	Distance *float64
	Fields   map[string]string
}
