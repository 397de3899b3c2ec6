package match

import (
	"context"

	"github.com/pathlight/mentormatch/internal/domain"
)

// Retriever answers nearest-neighbor queries over the mentor index.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]domain.MatchCandidate, error)
}

// Predictor estimates success probability from retrieval distance.
type Predictor interface {
	Predict(distance float64) float64
	Trained() bool
}
