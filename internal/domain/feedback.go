package domain

import (
	"fmt"
	"time"
)

// Rating bounds for feedback records.
const (
	RatingMin = 1
	RatingMax = 5

	// DefaultSuccessThreshold: a rating at or above it counts as a success.
	DefaultSuccessThreshold = 4
)

// FeedbackRecord is one observed mentoring outcome. Immutable once appended;
// the feedback log is append-only. Distance is the retrieval distance
// snapshot taken at match time, never recomputed later.
//
// A record's mentor need not still exist in the index: historical feedback
// survives mentor removal.
type FeedbackRecord struct {
	MentorID     string  `json:"mentor_id"`
	QueryContext string  `json:"query_context"`
	Distance     float64 `json:"distance"`
	Rating       int     `json:"rating"`
	SuccessLabel int     `json:"success_label"`
	Timestamp    int64   `json:"timestamp"` // unix millis
}

// NewFeedbackRecord validates inputs and derives the success label from the
// given threshold.
func NewFeedbackRecord(
	mentorID, queryContext string, distance float64, rating, successThreshold int, now time.Time,
) (FeedbackRecord, error) {
	if mentorID == "" {
		return FeedbackRecord{}, fmt.Errorf("%w: mentor id is required", ErrValidation)
	}
	if rating < RatingMin || rating > RatingMax {
		return FeedbackRecord{}, fmt.Errorf(
			"%w: rating must be between %d and %d, got %d", ErrValidation, RatingMin, RatingMax, rating,
		)
	}
	if distance < 0 {
		return FeedbackRecord{}, fmt.Errorf("%w: distance must be non-negative, got %v", ErrValidation, distance)
	}

	label := 0
	if rating >= successThreshold {
		label = 1
	}

	return FeedbackRecord{
		MentorID:     mentorID,
		QueryContext: queryContext,
		Distance:     distance,
		Rating:       rating,
		SuccessLabel: label,
		Timestamp:    now.UnixMilli(),
	}, nil
}
