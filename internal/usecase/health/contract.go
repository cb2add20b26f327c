package health

import "context"

// StorePinger checks vector store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// LLMChecker checks embedding and generation service availability.
type LLMChecker interface {
	HealthCheck(ctx context.Context) error
}
