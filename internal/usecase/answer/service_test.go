package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/lorekeep/novelrag/internal/domain"
)

func TestAsk_AccumulatesAndAttachesReferencesOnDone(t *testing.T) {
	refs := []domain.Reference{{Page: 1, StartLine: 1, EndLine: 5, Content: "the whale breached", SimilarityScore: 0.9}}
	retriever := retrieverWith([]domain.ContextChunk{contextChunk("the whale breached", 0.9)}, refs)
	generator := scriptedGenerator(
		domain.GenerationDelta{Content: "Hel"},
		domain.GenerationDelta{Content: "lo"},
		domain.GenerationDelta{Done: true},
	)
	svc := New(retriever, generator, zap.NewNop())

	events, err := svc.Ask(context.Background(), "what did the whale do", "")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	got := collectEvents(t, events)
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(got), got)
	}
	if got[0].Answer != "Hel" || got[1].Answer != "Hello" {
		t.Errorf("accumulated answers = %q, %q", got[0].Answer, got[1].Answer)
	}
	for i, ev := range got[:2] {
		if ev.Done {
			t.Errorf("event %d marked done", i)
		}
		if len(ev.References) != 0 || ev.References == nil {
			t.Errorf("event %d references = %v, want empty list", i, ev.References)
		}
	}
	final := got[2]
	if !final.Done || final.Answer != "Hello" {
		t.Errorf("terminal event = %+v", final)
	}
	if len(final.References) != 1 || final.References[0].Content != "the whale breached" {
		t.Errorf("terminal references = %+v", final.References)
	}
}

func TestAsk_NoMatchesYieldsSingleTerminalEvent(t *testing.T) {
	retriever := retrieverWith(nil, nil)
	generator := &mockGenerator{
		streamFn: func(context.Context, string) (<-chan domain.GenerationDelta, error) {
			t.Fatal("generator must not run without context")
			return nil, nil
		},
	}
	svc := New(retriever, generator, zap.NewNop())

	events, err := svc.Ask(context.Background(), "anything", "")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	got := collectEvents(t, events)
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].Answer != NoInformationMessage || !got[0].Done {
		t.Errorf("terminal event = %+v", got[0])
	}
	if got[0].References == nil || len(got[0].References) != 0 {
		t.Errorf("references = %v, want empty list", got[0].References)
	}
}

func TestAsk_BlankChunksTreatedAsNoMatches(t *testing.T) {
	retriever := retrieverWith(
		[]domain.ContextChunk{contextChunk("   ", 0.9), contextChunk("", 0.8)},
		[]domain.Reference{{Content: ""}},
	)
	svc := New(retriever, scriptedGenerator(), zap.NewNop())

	events, err := svc.Ask(context.Background(), "question words here", "")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	got := collectEvents(t, events)
	if len(got) != 1 || got[0].Answer != NoInformationMessage {
		t.Fatalf("events = %+v, want single no-information event", got)
	}
}

func TestAsk_FallsBackToRawChunksWhenCompressionDiscardsAll(t *testing.T) {
	retriever := retrieverWith([]domain.ContextChunk{contextChunk("the whale breached", 0.9)}, nil)
	generator := scriptedGenerator(domain.GenerationDelta{Done: true})
	svc := New(retriever, generator, zap.NewNop())

	events, err := svc.Ask(context.Background(), "zzz qqq", "")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	collectEvents(t, events)

	if !strings.Contains(generator.lastPrompt, "the whale breached") {
		t.Errorf("prompt lost the retrieved context: %q", generator.lastPrompt)
	}
	if !strings.Contains(generator.lastPrompt, "QUESTION: zzz qqq") {
		t.Errorf("prompt lost the question: %q", generator.lastPrompt)
	}
}

func TestAsk_RetrieveErrorIsSynchronous(t *testing.T) {
	retErr := errors.New("store down")
	retriever := &mockRetriever{
		retrieveFn: func(context.Context, string, string) ([]domain.ContextChunk, []domain.Reference, error) {
			return nil, nil, retErr
		},
	}
	svc := New(retriever, scriptedGenerator(), zap.NewNop())

	events, err := svc.Ask(context.Background(), "question", "")
	if !errors.Is(err, retErr) {
		t.Fatalf("Ask() error = %v, want wrapped %v", err, retErr)
	}
	if events != nil {
		t.Error("events channel must be nil on synchronous failure")
	}
}

func TestAsk_GeneratorStartErrorFoldsIntoStream(t *testing.T) {
	retriever := retrieverWith([]domain.ContextChunk{contextChunk("the whale breached", 0.9)}, nil)
	generator := &mockGenerator{
		streamFn: func(context.Context, string) (<-chan domain.GenerationDelta, error) {
			return nil, errors.New("ollama returned 500")
		},
	}
	svc := New(retriever, generator, zap.NewNop())

	events, err := svc.Ask(context.Background(), "whale question", "")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	got := collectEvents(t, events)
	if len(got) != 1 || !got[0].Done {
		t.Fatalf("events = %+v, want single terminal event", got)
	}
	if !strings.Contains(got[0].Answer, "Error generating response:") ||
		!strings.Contains(got[0].Answer, "ollama returned 500") {
		t.Errorf("terminal answer = %q", got[0].Answer)
	}
}

func TestAsk_MidStreamErrorFoldsIntoStream(t *testing.T) {
	retriever := retrieverWith([]domain.ContextChunk{contextChunk("the whale breached", 0.9)}, nil)
	generator := scriptedGenerator(
		domain.GenerationDelta{Content: "partial"},
		domain.GenerationDelta{Err: errors.New("connection reset")},
	)
	svc := New(retriever, generator, zap.NewNop())

	events, err := svc.Ask(context.Background(), "whale question", "")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	got := collectEvents(t, events)
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(got), got)
	}
	if got[0].Answer != "partial" || got[0].Done {
		t.Errorf("first event = %+v", got[0])
	}
	final := got[1]
	if !final.Done || !strings.Contains(final.Answer, "Error generating response:") ||
		!strings.Contains(final.Answer, "connection reset") {
		t.Errorf("terminal event = %+v", final)
	}
}
