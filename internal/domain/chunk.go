package domain

// Chunk is a bounded span of a document's text with page/line metadata.
// It is the unit of embedding and retrieval and is never mutated after the
// chunker produces it.
type Chunk struct {
	Text       string
	Page       int
	StartLine  int
	EndLine    int
	Index      int
	DocumentID string
	Filename   string
}

// EmbeddedChunk pairs a chunk with its vector for insertion. The vector is a
// separate insert parameter and must never appear in the stored property set.
type EmbeddedChunk struct {
	Chunk
	Vector []float32
}

// Match is a single nearest-neighbor result from the vector store.
// Distance is the store's native metric; nil when the store returned none.
type Match struct {
	Chunk
	Distance *float64
}

// ContextChunk is a retrieved chunk ranked for answer synthesis.
// Similarity is clamp01(1 - distance) rounded to 3 decimals; Relevance is the
// lexical overlap score attached by the context compressor.
type ContextChunk struct {
	Chunk
	Similarity float64
	Relevance  float64
}

// DocumentInfo summarizes one stored document.
type DocumentInfo struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}
