package domain

// JobState is the lifecycle state of an ingestion job.
type JobState string

const (
	JobIdle       JobState = "idle"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobError      JobState = "error"
)

// JobStatus is a point-in-time snapshot of an ingestion job.
// ProcessedChunks never exceeds TotalChunks and only grows while processing.
type JobStatus struct {
	State           JobState
	TotalChunks     int
	ProcessedChunks int
	CurrentDocument string

	// Error holds the failure message when State is JobError.
	Error string
}

// Progress returns completion as a percentage in [0, 100].
func (s JobStatus) Progress() float64 {
	if s.TotalChunks <= 0 {
		return 0
	}
	return float64(s.ProcessedChunks) / float64(s.TotalChunks) * 100
}
