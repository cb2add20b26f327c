package health

import (
	"context"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "healthy"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// Report aggregates component health check results.
type Report struct {
	Status  Status
	LLMOK   bool
	StoreOK bool
}

// Service coordinates health checks.
type Service struct {
	store  StorePinger
	llm    LLMChecker
	logger *zap.Logger
}

// New creates a Service. llm can be nil when no LLM backend is configured.
func New(store StorePinger, llm LLMChecker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, llm: llm, logger: logger}
}

// Check probes the vector store and the LLM backend.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{StoreOK: true, LLMOK: true}

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("store health check failed", zap.Error(err))
		r.StoreOK = false
	}
	if s.llm != nil {
		if err := s.llm.HealthCheck(ctx); err != nil {
			s.logger.Warn("llm health check failed", zap.Error(err))
			r.LLMOK = false
		}
	}

	r.Status = Healthy
	if !r.StoreOK || !r.LLMOK {
		r.Status = Degraded
	}
	return r
}
