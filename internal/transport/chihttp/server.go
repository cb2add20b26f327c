// Package chihttp exposes the ingestion and query pipeline over a chi HTTP API.
package chihttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lorekeep/novelrag/internal/domain"
	"github.com/lorekeep/novelrag/internal/extract"
	healthuc "github.com/lorekeep/novelrag/internal/usecase/health"
)

const (
	maxUploadBytes = 50 << 20

	defaultChunkSize    = 512
	defaultChunkOverlap = 50
)

// Ingestor starts background document ingestion.
type Ingestor interface {
	Launch(ctx context.Context, documentID, filename, text string, chunkSize, overlap int) int
}

// JobReader reads ingestion job progress.
type JobReader interface {
	Get(documentID string) (domain.JobStatus, error)
	Latest() domain.JobStatus
}

// Asker streams an answer for a question.
type Asker interface {
	Ask(ctx context.Context, question, documentID string) (<-chan domain.StreamEvent, error)
}

// DocumentStore lists and deletes stored documents.
type DocumentStore interface {
	ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error)
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
	DeleteAll(ctx context.Context) (int, error)
}

// HealthService aggregates component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for the document pipeline.
type Server struct {
	ingest        Ingestor
	jobs          JobReader
	answers       Asker
	documents     DocumentStore
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest Ingestor,
	jobs JobReader,
	answers Asker,
	documents DocumentStore,
	health HealthService,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ingest:    ingest,
		jobs:      jobs,
		answers:   answers,
		documents: documents,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnsupportedInput, http.StatusBadRequest, "unsupported_input"),
		sentinelHandler(domain.ErrJobNotFound, http.StatusNotFound, "job_not_found"),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, "embedding_unavailable"),
		sentinelHandler(domain.ErrEmbeddingFailed, http.StatusBadGateway, "embedding_failed"),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, "generation_failed"),
		sentinelHandler(domain.ErrStoreOperation, http.StatusInternalServerError, "store_operation_failed"),
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/", s.handleRoot)
	r.Post("/upload", s.handleUpload)
	r.Get("/status", s.handleStatus)
	r.Get("/status/{documentID}", s.handleStatusByDocument)
	r.Post("/query", s.handleQuery)
	r.Get("/documents", s.handleListDocuments)
	r.Delete("/documents", s.handleDeleteAll)
	r.Delete("/documents/{documentID}", s.handleDeleteDocument)
	r.Get("/health", s.handleHealth)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Novel RAG API is running",
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Missing file field: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Read upload: "+err.Error())
		return
	}

	chunkSize, err := intQueryParam(r, "chunk_size", defaultChunkSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	overlap, err := intQueryParam(r, "chunk_overlap", defaultChunkOverlap)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	text, err := extract.Text(header.Filename, data)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	documentID := uuid.NewString()
	total := s.ingest.Launch(r.Context(), documentID, header.Filename, text, chunkSize, overlap)

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:     "Document upload started. Use the /status endpoint to monitor progress.",
		DocumentID:  documentID,
		Filename:    header.Filename,
		TotalChunks: total,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusFromJob(s.jobs.Latest()))
}

func (s *Server) handleStatusByDocument(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "documentID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusFromJob(job))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Question is required")
		return
	}

	events, err := s.answers.Ask(r.Context(), req.Question, req.DocumentID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			s.logger.Warn("write stream event", zap.Error(err))
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.ListDocuments(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if docs == nil {
		docs = []domain.DocumentInfo{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	deleted, err := s.documents.DeleteByDocument(r.Context(), documentID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{
		Message:       "Successfully deleted document " + documentID,
		DeletedChunks: deleted,
	})
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.documents.DeleteAll(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{
		Message:       "Successfully deleted all documents",
		DeletedChunks: deleted,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{
		Status:      string(report.Status),
		LLMStatus:   report.LLMOK,
		StoreStatus: report.StoreOK,
	})
}

func intQueryParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, errors.New("Invalid " + name + ": must be a positive integer")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err, err.Error()) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
