package health

import (
	"context"
	"fmt"
)

// Pinger checks storage liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an upstream dependency.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Service aggregates dependency liveness for the readiness endpoint.
type Service struct {
	store    Pinger
	embedder Checker
}

// New creates the health service. embedder may be nil when the embedding
// check is not wanted on the readiness path.
func New(store Pinger, embedder Checker) *Service {
	return &Service{store: store, embedder: embedder}
}

// Check pings storage and, when configured, the embedding provider.
func (s *Service) Check(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if s.embedder != nil {
		if err := s.embedder.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding provider: %w", err)
		}
	}
	return nil
}
