package retrieve

import (
	"strings"
	"unicode"

	"github.com/lorekeep/novelrag/internal/domain"
)

const (
	// relevanceThreshold is the minimum query-word overlap ratio a chunk
	// must reach to survive compression.
	relevanceThreshold = 0.1
	// maxChunkChars caps a surviving chunk's content length in runes.
	maxChunkChars = 800
	// maxExtractSentences bounds sentence-level extraction for oversized chunks.
	maxExtractSentences = 3
)

// CompressContext discards retrieved chunks that share too few words with the
// question and trims the survivors to a generation-friendly length. An empty
// question word set discards everything.
func CompressContext(chunks []domain.ContextChunk, question string) []domain.ContextChunk {
	queryWords := wordSet(question)
	if len(queryWords) == 0 {
		return nil
	}

	kept := make([]domain.ContextChunk, 0, len(chunks))
	for _, c := range chunks {
		overlap := overlapRatio(queryWords, wordSet(c.Text))
		if overlap <= relevanceThreshold {
			continue
		}
		c.Relevance = overlap
		if len([]rune(c.Text)) > maxChunkChars {
			c.Text = extractRelevant(c.Text, queryWords)
		}
		kept = append(kept, c)
	}
	return kept
}

// extractRelevant keeps the first few sentences that mention a query word,
// falling back to a hard truncation when none do.
func extractRelevant(text string, queryWords map[string]struct{}) string {
	var picked []string
	for _, sentence := range splitSentences(text) {
		if overlapRatio(queryWords, wordSet(sentence)) > 0 {
			picked = append(picked, sentence)
			if len(picked) == maxExtractSentences {
				break
			}
		}
	}
	if len(picked) > 0 {
		return strings.Join(picked, " ")
	}

	runes := []rune(text)
	if len(runes) > maxChunkChars {
		runes = runes[:maxChunkChars]
	}
	return string(runes)
}

// splitSentences breaks text on sentence-ending punctuation, keeping the
// punctuation attached to its sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// overlapRatio is the share of query words also present in the chunk.
func overlapRatio(queryWords, chunkWords map[string]struct{}) float64 {
	if len(queryWords) == 0 {
		return 0
	}
	shared := 0
	for w := range queryWords {
		if _, ok := chunkWords[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(queryWords))
}

// wordSet lowercases text and collects its alphanumeric words.
func wordSet(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
