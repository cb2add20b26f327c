package domain

// Reference cites the source span behind a generated answer. Built fresh per
// query, never persisted.
type Reference struct {
	Page            int     `json:"page"`
	StartLine       int     `json:"start_line"`
	EndLine         int     `json:"end_line"`
	Content         string  `json:"content"`
	SimilarityScore float64 `json:"similarity_score"`
}

// StreamEvent is one newline-delimited JSON unit of a streamed answer.
// Answer holds the accumulated text so far; References is empty on every
// event except the single terminal one.
type StreamEvent struct {
	Answer     string      `json:"answer"`
	References []Reference `json:"references"`
	Done       bool        `json:"done"`
}

// TerminalEvent builds a well-formed done event. References defaults to an
// empty list so the wire form is always a JSON array.
func TerminalEvent(answer string, refs []Reference) StreamEvent {
	if refs == nil {
		refs = []Reference{}
	}
	return StreamEvent{Answer: answer, References: refs, Done: true}
}
