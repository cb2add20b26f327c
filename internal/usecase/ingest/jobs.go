package ingest

import (
	"sync"

	"github.com/lorekeep/novelrag/internal/domain"
)

// Tracker keeps per-document ingestion job state. Jobs are keyed by
// document id; the most recently started job is also reachable without a
// key for status polling.
type Tracker struct {
	mu     sync.RWMutex
	jobs   map[string]domain.JobStatus
	latest string
}

// NewTracker creates an empty job tracker.
func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]domain.JobStatus)}
}

// Start registers a new processing job for a document.
func (t *Tracker) Start(documentID, filename string, totalChunks int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.jobs[documentID] = domain.JobStatus{
		State:           domain.JobProcessing,
		TotalChunks:     totalChunks,
		CurrentDocument: filename,
	}
	t.latest = documentID
}

// Advance adds processed chunks to a job. Progress never moves backwards
// and never exceeds the total.
func (t *Tracker) Advance(documentID string, processed int) {
	if processed <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[documentID]
	if !ok || job.State != domain.JobProcessing {
		return
	}
	job.ProcessedChunks += processed
	if job.ProcessedChunks > job.TotalChunks {
		job.ProcessedChunks = job.TotalChunks
	}
	t.jobs[documentID] = job
}

// Complete marks a job as finished.
func (t *Tracker) Complete(documentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[documentID]
	if !ok {
		return
	}
	job.State = domain.JobCompleted
	t.jobs[documentID] = job
}

// Fail marks a job as failed with a message.
func (t *Tracker) Fail(documentID, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[documentID]
	if !ok {
		return
	}
	job.State = domain.JobError
	job.Error = msg
	t.jobs[documentID] = job
}

// Get returns the job for a document.
func (t *Tracker) Get(documentID string) (domain.JobStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[documentID]
	if !ok {
		return domain.JobStatus{}, domain.ErrJobNotFound
	}
	return job, nil
}

// Latest returns the most recently started job, or an idle status when
// nothing has been ingested yet.
func (t *Tracker) Latest() domain.JobStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.latest == "" {
		return domain.JobStatus{State: domain.JobIdle}
	}
	return t.jobs[t.latest]
}
