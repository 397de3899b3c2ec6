package feedback

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pathlight/mentormatch/internal/domain"
	"github.com/pathlight/mentormatch/internal/metrics"
)

// Service records mentoring outcomes into the append-only log and hands out
// consistent snapshots for training and reporting. A mutex serializes
// appends against snapshot reads so a training run never observes a record
// mid-append.
type Service struct {
	mu               sync.Mutex
	log              Log
	successThreshold int
	now              func() time.Time
	logger           *zap.Logger
}

// New creates the feedback service. successThreshold <= 0 falls back to the
// default.
func New(log Log, successThreshold int, logger *zap.Logger) *Service {
	if successThreshold <= 0 {
		successThreshold = domain.DefaultSuccessThreshold
	}
	return &Service{
		log:              log,
		successThreshold: successThreshold,
		now:              time.Now,
		logger:           logger,
	}
}

// Append validates the outcome, derives the success label, and commits the
// record. Returns the stored record with its assigned timestamp and the new
// total record count.
func (s *Service) Append(
	ctx context.Context, mentorID, queryContext string, distance float64, rating int,
) (domain.FeedbackRecord, int, error) {
	rec, err := domain.NewFeedbackRecord(
		mentorID, queryContext, distance, rating, s.successThreshold, s.now(),
	)
	if err != nil {
		return domain.FeedbackRecord{}, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total, err := s.log.Append(ctx, rec)
	if err != nil {
		return domain.FeedbackRecord{}, 0, err
	}

	metrics.FeedbackAppendedTotal.Inc()
	s.logger.Debug("feedback appended",
		zap.String("mentor_id", rec.MentorID),
		zap.Int("rating", rec.Rating),
		zap.Int("total", total),
	)
	return rec, total, nil
}

// LoadAll returns a snapshot of every committed record in insertion order.
func (s *Service) LoadAll(ctx context.Context) ([]domain.FeedbackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.LoadAll(ctx)
}

// Count returns the number of committed records.
func (s *Service) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Count(ctx)
}
