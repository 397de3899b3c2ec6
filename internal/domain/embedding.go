package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
// Implementations are assumed deterministic: identical text yields an
// identical vector for a fixed model configuration.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult is a vector plus provider token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// HealthChecker is implemented by embedders that can verify provider
// availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
