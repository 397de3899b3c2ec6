package report

import (
	"context"

	"github.com/pathlight/mentormatch/internal/domain"
)

// FeedbackReader supplies a consistent snapshot of the feedback log.
type FeedbackReader interface {
	LoadAll(ctx context.Context) ([]domain.FeedbackRecord, error)
}

// MentorReader resolves mentor profiles for display names.
type MentorReader interface {
	Get(ctx context.Context, id string) (domain.MentorProfile, error)
}
