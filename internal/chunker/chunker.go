// Package chunker splits normalized document text into overlapping,
// metadata-tagged segments sized for embedding.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/lorekeep/novelrag/internal/domain"
)

const (
	// DefaultChunkSize is the target chunk size in measured units.
	DefaultChunkSize = 512
	// DefaultOverlap is the amount of trailing content seeded into the next chunk.
	DefaultOverlap = 50
	// DefaultChunksPerPage drives the approximate page number heuristic.
	DefaultChunksPerPage = 5
)

// LengthFunc measures a piece of text in the unit the chunk size is
// expressed in. The default counts runes.
type LengthFunc func(string) int

// Chunker accumulates text units into chunks of at most the target size,
// seeding each chunk with the trailing overlap of the previous one.
type Chunker struct {
	chunkSize     int
	overlap       int
	length        LengthFunc
	chunksPerPage int
}

// New creates a chunker. Non-positive size and negative overlap fall back to
// defaults; overlap is clamped below the chunk size.
func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	return &Chunker{
		chunkSize:     chunkSize,
		overlap:       overlap,
		length:        utf8.RuneCountInString,
		chunksPerPage: DefaultChunksPerPage,
	}
}

// WithLengthFunc overrides the unit of measure for size and overlap.
func (c *Chunker) WithLengthFunc(fn LengthFunc) *Chunker {
	if fn != nil {
		c.length = fn
	}
	return c
}

// WithChunksPerPage overrides the page number heuristic.
func (c *Chunker) WithChunksPerPage(n int) *Chunker {
	if n > 0 {
		c.chunksPerPage = n
	}
	return c
}

var (
	spaceRuns     = regexp.MustCompile(`[ \t]+`)
	spaceAroundNL = regexp.MustCompile(` *\n *`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapses whitespace runs, unifies line endings, and caps
// consecutive blank lines at one, preserving line structure for the
// start/end line metadata.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = spaceAroundNL.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// unit is a split piece of the normalized text with the 1-based line number
// of its first character. Separators stay attached to the preceding unit so
// concatenating units reproduces the normalized text exactly.
type unit struct {
	text string
	line int
}

// Split normalizes text and produces the ordered chunk sequence for one
// document. Empty input yields no chunks. A unit that cannot be subdivided
// below the target size becomes its own chunk rather than being truncated.
func (c *Chunker) Split(text string) []domain.Chunk {
	norm := Normalize(text)
	if norm == "" {
		return nil
	}

	raw := c.refine(norm, 0)
	units := make([]unit, len(raw))
	line := 1
	for i, u := range raw {
		units[i] = unit{text: u, line: line}
		line += strings.Count(u, "\n")
	}

	var chunks []domain.Chunk
	var cur []unit
	fresh := 0 // measured length of the non-seed content in cur
	for _, u := range units {
		l := c.length(u.text)
		if fresh > 0 && fresh+l > c.chunkSize {
			chunks = append(chunks, c.build(cur, len(chunks)))
			cur = c.overlapTail(cur)
			fresh = 0
		}
		cur = append(cur, u)
		fresh += l
	}
	if fresh > 0 {
		chunks = append(chunks, c.build(cur, len(chunks)))
	}
	return chunks
}

// refine splits text into units no larger than the chunk size, trying
// paragraph, sentence, punctuation, whitespace, and finally character
// boundaries.
func (c *Chunker) refine(s string, depth int) []string {
	if c.length(s) <= c.chunkSize {
		return []string{s}
	}

	var parts []string
	switch depth {
	case 0:
		parts = splitAfterSep(s, "\n\n")
	case 1:
		parts = splitAfterAny(s, ".!?")
	case 2:
		parts = splitAfterAny(s, ",;:")
	case 3:
		parts = splitAfterSpace(s)
	default:
		return splitRunes(s, c.chunkSize)
	}

	if len(parts) <= 1 {
		return c.refine(s, depth+1)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if c.length(p) <= c.chunkSize {
			out = append(out, p)
		} else {
			out = append(out, c.refine(p, depth+1)...)
		}
	}
	return out
}

// overlapTail returns the trailing whole units of a closed chunk whose total
// measured length does not exceed the overlap parameter.
func (c *Chunker) overlapTail(cur []unit) []unit {
	if c.overlap <= 0 {
		return nil
	}
	total := 0
	i := len(cur)
	for i > 0 {
		l := c.length(cur[i-1].text)
		if total+l > c.overlap {
			break
		}
		total += l
		i--
	}
	tail := make([]unit, len(cur)-i)
	copy(tail, cur[i:])
	return tail
}

func (c *Chunker) build(units []unit, index int) domain.Chunk {
	var b strings.Builder
	for _, u := range units {
		b.WriteString(u.text)
	}
	text := b.String()

	start := units[0].line
	end := start + strings.Count(strings.TrimRight(text, " \n"), "\n")
	if end < start {
		end = start
	}

	return domain.Chunk{
		Text:      text,
		Page:      index/c.chunksPerPage + 1,
		StartLine: start,
		EndLine:   end,
		Index:     index,
	}
}

// splitAfterSep breaks after every occurrence of sep, keeping it attached to
// the left piece.
func splitAfterSep(s, sep string) []string {
	var parts []string
	for s != "" {
		i := strings.Index(s, sep)
		if i < 0 {
			parts = append(parts, s)
			break
		}
		parts = append(parts, s[:i+len(sep)])
		s = s[i+len(sep):]
	}
	return parts
}

// splitAfterAny breaks after any terminator byte plus its trailing
// whitespace run. The terminators are ASCII so byte scanning is safe.
func splitAfterAny(s, terminators string) []string {
	var parts []string
	start := 0
	i := 0
	for i < len(s) {
		if strings.IndexByte(terminators, s[i]) >= 0 {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\n') {
				j++
			}
			if j < len(s) {
				parts = append(parts, s[start:j])
				start = j
				i = j
				continue
			}
		}
		i++
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

func splitAfterSpace(s string) []string {
	var parts []string
	start := 0
	i := 0
	for i < len(s) {
		if s[i] == ' ' || s[i] == '\n' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\n') {
				j++
			}
			if j < len(s) {
				parts = append(parts, s[start:j])
				start = j
				i = j
				continue
			}
		}
		i++
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

func splitRunes(s string, size int) []string {
	var parts []string
	for s != "" {
		i, n := 0, 0
		for i < len(s) && n < size {
			_, w := utf8.DecodeRuneInString(s[i:])
			i += w
			n++
		}
		parts = append(parts, s[:i])
		s = s[i:]
	}
	return parts
}
