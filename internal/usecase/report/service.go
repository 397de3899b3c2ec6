package report

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/pathlight/mentormatch/internal/domain"
	"github.com/pathlight/mentormatch/internal/metrics"
)

// Row is one mentor's aggregated performance.
//
// FinalScore is the shrinkage-adjusted mean rating: mentors with few reviews
// are pulled toward the floor weight so a single five-star review cannot
// outrank a consistent record. StdDev is 0 for a single review.
type Row struct {
	Rank         int     `json:"rank"`
	MentorID     string  `json:"mentor_id"`
	Name         string  `json:"name,omitempty"`
	ReviewCount  int     `json:"review_count"`
	MeanRating   float64 `json:"mean_rating"`
	StdDevRating float64 `json:"stddev_rating"`
	SuccessRate  float64 `json:"success_rate"`
	Weight       float64 `json:"weight"`
	FinalScore   float64 `json:"final_score"`
}

// Config holds the shrinkage parameters. A mentor with the maximum review
// count gets weight Floor+Span; one with near zero gets roughly Floor.
type Config struct {
	ShrinkFloor float64
	ShrinkSpan  float64
}

// Service builds the mentor performance leaderboard from the feedback log.
type Service struct {
	feedback FeedbackReader
	mentors  MentorReader
	cfg      Config
	logger   *zap.Logger
}

// New creates the report service. mentors may be nil; rows then carry IDs
// without display names.
func New(feedback FeedbackReader, mentors MentorReader, cfg Config, logger *zap.Logger) *Service {
	return &Service{feedback: feedback, mentors: mentors, cfg: cfg, logger: logger}
}

// Generate aggregates all feedback into ranked rows. An empty log is
// domain.ErrNoFeedback. Ranks are dense and 1-based: rows with equal rounded
// final scores share a rank, and the next distinct score takes rank+1.
func (s *Service) Generate(ctx context.Context) ([]Row, error) {
	records, err := s.feedback.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrNoFeedback
	}

	byMentor := make(map[string][]domain.FeedbackRecord)
	for _, rec := range records {
		byMentor[rec.MentorID] = append(byMentor[rec.MentorID], rec)
	}

	maxCount := 0
	for _, recs := range byMentor {
		if len(recs) > maxCount {
			maxCount = len(recs)
		}
	}

	rows := make([]Row, 0, len(byMentor))
	for id, recs := range byMentor {
		ratings := make([]float64, len(recs))
		successes := 0
		for i, rec := range recs {
			ratings[i] = float64(rec.Rating)
			successes += rec.SuccessLabel
		}

		mean := stat.Mean(ratings, nil)
		stddev := 0.0
		if len(ratings) > 1 {
			stddev = stat.StdDev(ratings, nil)
		}

		weight := s.cfg.ShrinkFloor + s.cfg.ShrinkSpan*float64(len(recs))/float64(maxCount)
		rows = append(rows, Row{
			MentorID:     id,
			Name:         s.resolveName(ctx, id),
			ReviewCount:  len(recs),
			MeanRating:   mean,
			StdDevRating: stddev,
			SuccessRate:  float64(successes) / float64(len(recs)),
			Weight:       weight,
			FinalScore:   math.Round(mean*weight*100) / 100,
		})
	}

	slices.SortFunc(rows, func(a, b Row) int {
		switch {
		case a.FinalScore > b.FinalScore:
			return -1
		case a.FinalScore < b.FinalScore:
			return 1
		}
		return strings.Compare(a.MentorID, b.MentorID)
	})

	rank := 0
	prev := math.Inf(1)
	for i := range rows {
		if rows[i].FinalScore != prev {
			rank++
			prev = rows[i].FinalScore
		}
		rows[i].Rank = rank
	}

	metrics.ReportsGeneratedTotal.Inc()
	s.logger.Debug("report generated",
		zap.Int("mentors", len(rows)),
		zap.Int("records", len(records)),
	)
	return rows, nil
}

// resolveName is best effort: feedback outlives mentor removal, so a missing
// profile just leaves the name blank.
func (s *Service) resolveName(ctx context.Context, id string) string {
	if s.mentors == nil {
		return ""
	}
	profile, err := s.mentors.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrMentorNotFound) {
			s.logger.Warn("failed to resolve mentor name", zap.String("mentor_id", id), zap.Error(err))
		}
		return ""
	}
	return profile.Name
}
