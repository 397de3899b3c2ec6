package feedback

import (
	"context"

	"github.com/pathlight/mentormatch/internal/domain"
)

// Log is the append-only feedback store. Implementations must make Append
// atomic: concurrent appends may interleave in any order but never corrupt
// each other.
type Log interface {
	Append(ctx context.Context, rec domain.FeedbackRecord) (int, error)
	LoadAll(ctx context.Context) ([]domain.FeedbackRecord, error)
	Count(ctx context.Context) (int, error)
}
