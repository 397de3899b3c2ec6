package match

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/pathlight/mentormatch/internal/domain"
	"github.com/pathlight/mentormatch/internal/metrics"
)

// Service runs the match pipeline: retrieve candidates, score each with the
// success predictor, blend, rank.
type Service struct {
	retriever Retriever
	predictor Predictor
	defaultK  int
	logger    *zap.Logger
}

// New creates the match service. defaultK applies when a request omits k.
func New(retriever Retriever, predictor Predictor, defaultK int, logger *zap.Logger) *Service {
	return &Service{retriever: retriever, predictor: predictor, defaultK: defaultK, logger: logger}
}

// Result is a ranked match response.
type Result struct {
	Candidates       []domain.MatchCandidate `json:"candidates"`
	PredictorTrained bool                    `json:"predictor_trained"`
}

// Option adjusts a single Match call.
type Option func(*callOptions)

type callOptions struct {
	fallbackEmpty bool
}

// FallbackEmpty degrades a retrieval outage into an empty candidate list
// instead of an error. Opt-in per call; without it a failing embedding
// backend propagates domain.ErrRetrievalUnavailable.
func FallbackEmpty() Option {
	return func(o *callOptions) { o.fallbackEmpty = true }
}

// Match retrieves up to k mentors for the query text and ranks them by
// blended score. k <= 0 falls back to the configured default. An empty index
// yields an empty candidate list.
func (s *Service) Match(
	ctx context.Context, query string, k int, weights domain.WeightConfig, opts ...Option,
) (Result, error) {
	var co callOptions
	for _, o := range opts {
		o(&co)
	}

	if err := weights.Validate(); err != nil {
		return Result{}, err
	}
	if k <= 0 {
		k = s.defaultK
	}

	candidates, err := s.retriever.Query(ctx, query, k)
	if err != nil {
		if co.fallbackEmpty && errors.Is(err, domain.ErrRetrievalUnavailable) {
			s.logger.Warn("retrieval unavailable, serving empty fallback", zap.Error(err))
			return Result{
				Candidates:       []domain.MatchCandidate{},
				PredictorTrained: s.predictor.Trained(),
			}, nil
		}
		return Result{}, err
	}

	for i := range candidates {
		candidates[i].SuccessProbability = s.predictor.Predict(candidates[i].Distance)
	}

	ranked := Rank(candidates, weights)

	metrics.MatchesServedTotal.Inc()
	s.logger.Debug("match served",
		zap.Int("k", k),
		zap.Int("candidates", len(ranked)),
		zap.Bool("predictor_trained", s.predictor.Trained()),
	)

	return Result{Candidates: ranked, PredictorTrained: s.predictor.Trained()}, nil
}
