package index

import (
	"context"

	"github.com/pathlight/mentormatch/internal/domain"
	mentorrepo "github.com/pathlight/mentormatch/internal/repository/mentor"
)

// Repository defines the storage contract for the mentor embedding index.
type Repository interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, profile domain.MentorProfile, vector []float32) error
	Get(ctx context.Context, id string) (domain.MentorProfile, error)
	Delete(ctx context.Context, id string) error
	SearchKNN(ctx context.Context, vector []float32, k int) ([]mentorrepo.Hit, error)
	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
