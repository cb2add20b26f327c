package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lorekeep/novelrag/internal/domain"
	"github.com/lorekeep/novelrag/internal/metrics"
	"github.com/lorekeep/novelrag/internal/usecase/retrieve"
)

// NoInformationMessage is the terminal answer sent when retrieval finds no
// usable context for a question.
const NoInformationMessage = "No relevant information found in the uploaded documents."

// Service answers questions over the stored chunks as an event stream.
type Service struct {
	retriever Retriever
	generator Generator
	logger    *zap.Logger
}

// New creates an answer service.
func New(retriever Retriever, generator Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{retriever: retriever, generator: generator, logger: logger}
}

// Ask retrieves context for the question and streams the generated answer.
// Each event carries the text accumulated so far; the reference list is
// attached only to the terminal event. Retrieval failures are returned
// synchronously, generation failures are folded into the stream so the
// client always sees a well-formed terminal event.
func (s *Service) Ask(
	ctx context.Context, question, documentID string,
) (<-chan domain.StreamEvent, error) {
	chunks, refs, err := s.retriever.Retrieve(ctx, question, documentID)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	contexts := contextTexts(retrieve.CompressContext(chunks, question))
	if len(contexts) == 0 {
		// Compression can discard everything on a short or stop-word
		// question; raw retrieved chunks are still better than nothing.
		contexts = contextTexts(chunks)
	}
	if len(contexts) == 0 {
		return singleEvent(domain.TerminalEvent(NoInformationMessage, nil)), nil
	}

	events := make(chan domain.StreamEvent)
	go s.stream(ctx, buildPrompt(question, contexts), refs, events)
	return events, nil
}

func (s *Service) stream(
	ctx context.Context, prompt string, refs []domain.Reference, events chan<- domain.StreamEvent,
) {
	defer close(events)

	deltas, err := s.generator.Stream(ctx, prompt)
	if err != nil {
		s.logger.Error("start generation", zap.Error(err))
		metrics.GenerationStreamsTotal.WithLabelValues("error").Inc()
		emit(ctx, events, domain.TerminalEvent(fmt.Sprintf("Error generating response: %v", err), nil))
		return
	}

	var answer strings.Builder
	for delta := range deltas {
		if delta.Err != nil {
			s.logger.Error("generation stream", zap.Error(delta.Err))
			metrics.GenerationStreamsTotal.WithLabelValues("error").Inc()
			emit(ctx, events, domain.TerminalEvent(fmt.Sprintf("Error generating response: %v", delta.Err), nil))
			return
		}
		answer.WriteString(delta.Content)
		if delta.Done {
			metrics.GenerationStreamsTotal.WithLabelValues("ok").Inc()
			emit(ctx, events, domain.TerminalEvent(answer.String(), refs))
			return
		}
		if !emit(ctx, events, domain.StreamEvent{
			Answer:     answer.String(),
			References: []domain.Reference{},
			Done:       false,
		}) {
			return
		}
	}

	// Upstream closed without a done marker, usually a cancelled context.
	cause := ctx.Err()
	if cause == nil {
		cause = domain.ErrGenerationFailed
	}
	metrics.GenerationStreamsTotal.WithLabelValues("error").Inc()
	emit(ctx, events, domain.TerminalEvent(fmt.Sprintf("Error generating response: %v", cause), nil))
}

func emit(ctx context.Context, events chan<- domain.StreamEvent, ev domain.StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func singleEvent(ev domain.StreamEvent) <-chan domain.StreamEvent {
	events := make(chan domain.StreamEvent, 1)
	events <- ev
	close(events)
	return events
}

// contextTexts collects the non-empty chunk texts in ranking order.
func contextTexts(chunks []domain.ContextChunk) []string {
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if t := strings.TrimSpace(c.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}
