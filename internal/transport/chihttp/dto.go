package chihttp

import "github.com/lorekeep/novelrag/internal/domain"

type uploadResponse struct {
	Message     string `json:"message"`
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	TotalChunks int    `json:"total_chunks"`
}

type statusResponse struct {
	Status          string  `json:"status"`
	Progress        float64 `json:"progress"`
	TotalChunks     int     `json:"total_chunks"`
	ProcessedChunks int     `json:"processed_chunks"`
	CurrentDocument string  `json:"current_document"`
	Error           string  `json:"error,omitempty"`
}

type queryRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"document_id"`
}

type deleteResponse struct {
	Message       string `json:"message"`
	DeletedChunks int    `json:"deleted_chunks"`
}

type healthResponse struct {
	Status      string `json:"status"`
	LLMStatus   bool   `json:"llm_status"`
	StoreStatus bool   `json:"store_status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func statusFromJob(job domain.JobStatus) statusResponse {
	return statusResponse{
		Status:          string(job.State),
		Progress:        job.Progress(),
		TotalChunks:     job.TotalChunks,
		ProcessedChunks: job.ProcessedChunks,
		CurrentDocument: job.CurrentDocument,
		Error:           job.Error,
	}
}
