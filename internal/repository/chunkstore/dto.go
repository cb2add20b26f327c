package chunkstore

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/lorekeep/novelrag/internal/domain"
)

// Hash field names for a stored chunk. The vector lives in its own binary
// field and never appears among the text properties.
const (
	fieldContent    = "content"
	fieldPage       = "page"
	fieldStartLine  = "start_line"
	fieldEndLine    = "end_line"
	fieldDocumentID = "document_id"
	fieldFilename   = "filename"
	fieldChunkIndex = "chunk_index"
	fieldVector     = "vector"
)

// buildHashFields converts an embedded chunk into a flat map[string]string
// for HSET. Properties and the vector are assembled separately so the
// embedding can never leak into a text field.
func buildHashFields(ec *domain.EmbeddedChunk) map[string]string {
	m := buildPropertyFields(&ec.Chunk)
	m[fieldVector] = vectorToBytes(ec.Vector)
	return m
}

func buildPropertyFields(c *domain.Chunk) map[string]string {
	return map[string]string{
		fieldContent:    c.Text,
		fieldPage:       strconv.Itoa(c.Page),
		fieldStartLine:  strconv.Itoa(c.StartLine),
		fieldEndLine:    strconv.Itoa(c.EndLine),
		fieldDocumentID: c.DocumentID,
		fieldFilename:   c.Filename,
		fieldChunkIndex: strconv.Itoa(c.Index),
	}
}

// parseChunkFields converts a flat hash map back into a domain Chunk.
// Missing or malformed numeric fields parse as zero.
func parseChunkFields(m map[string]string) domain.Chunk {
	return domain.Chunk{
		Text:       m[fieldContent],
		Page:       parseInt(m[fieldPage]),
		StartLine:  parseInt(m[fieldStartLine]),
		EndLine:    parseInt(m[fieldEndLine]),
		DocumentID: m[fieldDocumentID],
		Filename:   m[fieldFilename],
		Index:      parseInt(m[fieldChunkIndex]),
	}
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
