package ingest

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/lorekeep/novelrag/internal/domain"
	"github.com/lorekeep/novelrag/internal/metrics"
)

const (
	// DefaultBatchSize is how many chunks are embedded and inserted per round.
	DefaultBatchSize = 5
	// MinChunkLength is the shortest chunk (in runes) worth embedding.
	// Shorter chunks still count toward the job total but are skipped.
	MinChunkLength = 50
)

// Service runs the ingestion pipeline: split, embed in batches, persist.
type Service struct {
	store   ChunkStore
	embed   Embedder
	split   Splitter
	tracker *Tracker
	pool    *ants.Pool
	logger  *zap.Logger

	batchSize   int
	minChunkLen int
}

// New creates an ingestion service. The pool bounds concurrent embedding
// requests across all running jobs.
func New(store ChunkStore, embed Embedder, split Splitter, tracker *Tracker, pool *ants.Pool, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		embed:       embed,
		split:       split,
		tracker:     tracker,
		pool:        pool,
		logger:      logger,
		batchSize:   DefaultBatchSize,
		minChunkLen: MinChunkLength,
	}
}

// WithBatchSize overrides the embedding batch size.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Launch splits the document, registers its job, and starts ingestion in
// the background. The returned chunk count is the job total.
func (s *Service) Launch(ctx context.Context, documentID, filename, text string, chunkSize, overlap int) int {
	chunks := s.split.Split(text, chunkSize, overlap)
	for i := range chunks {
		chunks[i].DocumentID = documentID
		chunks[i].Filename = filename
	}

	s.tracker.Start(documentID, filename, len(chunks))

	bgCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.Ingest(bgCtx, documentID, chunks); err != nil {
			s.tracker.Fail(documentID, err.Error())
			metrics.IngestJobsTotal.WithLabelValues(string(domain.JobError)).Inc()
			s.logger.Error("ingestion failed",
				zap.String("document_id", documentID),
				zap.String("filename", filename),
				zap.Error(err))
			return
		}
		s.tracker.Complete(documentID)
		metrics.IngestJobsTotal.WithLabelValues(string(domain.JobCompleted)).Inc()
		s.logger.Info("ingestion completed",
			zap.String("document_id", documentID),
			zap.String("filename", filename),
			zap.Int("chunks", len(chunks)))
	}()

	return len(chunks)
}

// Ingest embeds and persists chunks batch by batch, in order. A failed
// batch aborts the job; batches already inserted stay in the store.
func (s *Service) Ingest(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		batch := chunks[start:end]

		valid := make([]domain.Chunk, 0, len(batch))
		for _, c := range batch {
			if utf8.RuneCountInString(c.Text) < s.minChunkLen {
				metrics.IngestChunksTotal.WithLabelValues("skipped").Inc()
				continue
			}
			valid = append(valid, c)
		}
		if len(valid) == 0 {
			continue
		}

		embedded, err := s.embedBatch(ctx, valid)
		if err != nil {
			return fmt.Errorf("batch at chunk %d: %w", start, err)
		}

		if err := s.store.InsertBatch(ctx, embedded); err != nil {
			return fmt.Errorf("batch at chunk %d: %w", start, err)
		}

		s.tracker.Advance(documentID, len(valid))
		metrics.IngestChunksTotal.WithLabelValues("processed").Add(float64(len(valid)))
	}

	return nil
}

// embedBatch vectorizes one batch concurrently on the shared pool,
// preserving chunk order. The first embedding failure fails the batch.
func (s *Service) embedBatch(ctx context.Context, batch []domain.Chunk) ([]domain.EmbeddedChunk, error) {
	embedded := make([]domain.EmbeddedChunk, len(batch))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i := range batch {
		wg.Add(1)
		task := func() {
			defer wg.Done()

			result, err := s.embed.Embed(ctx, batch[i].Text)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			embedded[i] = domain.EmbeddedChunk{Chunk: batch[i], Vector: result.Embedding}
		}

		if err := s.pool.Submit(task); err != nil {
			// Pool is released or overloaded; run inline rather than drop the chunk.
			task()
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return embedded, nil
}
