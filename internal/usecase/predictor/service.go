package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/pathlight/mentormatch/internal/db"
	"github.com/pathlight/mentormatch/internal/domain"
	"github.com/pathlight/mentormatch/internal/metrics"
)

// defaultFeatures is the v1 feature set: retrieval distance only.
var defaultFeatures = []string{"distance"}

// FeedbackReader supplies a consistent snapshot of the feedback log.
type FeedbackReader interface {
	LoadAll(ctx context.Context) ([]domain.FeedbackRecord, error)
}

// ModelStore persists trained models across restarts.
type ModelStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Config holds training hyperparameters. Seed and ValidationRatio are fixed
// per deployment so training runs are reproducible.
type Config struct {
	MinSamples      int
	ValidationRatio float64
	Seed            int64
	Epochs          int
	LearningRate    float64
}

// Outcome classifies a training run.
type Outcome string

const (
	// OutcomeTrained means a new model was fit and installed.
	OutcomeTrained Outcome = "trained"
	// OutcomeInsufficient means too few samples; prior state is untouched.
	OutcomeInsufficient Outcome = "insufficient_data"
)

// TrainResult reports a training run.
type TrainResult struct {
	Outcome            Outcome `json:"outcome"`
	SampleCount        int     `json:"sample_count"`
	ValidationAccuracy float64 `json:"validation_accuracy,omitempty"`
	Err                error   `json:"-"`
}

// Service is the success predictor: a two-state machine (Untrained, Trained)
// around an atomically swapped logistic-regression model.
type Service struct {
	feedback FeedbackReader
	store    ModelStore
	modelKey string
	cfg      Config
	logger   *zap.Logger
	model    atomic.Pointer[Model]
}

// New creates an untrained predictor.
func New(feedback FeedbackReader, cfg Config, logger *zap.Logger) *Service {
	return &Service{feedback: feedback, cfg: cfg, logger: logger}
}

// WithStore attaches model persistence and loads any previously trained
// model. A missing key leaves the predictor Untrained; an incompatible
// version is logged and ignored.
func (s *Service) WithStore(ctx context.Context, store ModelStore, keyPrefix string) *Service {
	s.store = store
	s.modelKey = keyPrefix + "predictor:model"

	data, err := store.Get(ctx, s.modelKey)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			s.logger.Warn("failed to load persisted model", zap.Error(err))
		}
		return s
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.Warn("persisted model is unreadable, staying untrained", zap.Error(err))
		return s
	}
	if err := m.validate(); err != nil {
		s.logger.Warn("persisted model rejected", zap.Error(err))
		return s
	}

	s.model.Store(&m)
	s.logger.Info("loaded persisted predictor model",
		zap.Int("sample_count", m.SampleCount),
		zap.Float64("validation_accuracy", m.ValidationAccuracy),
	)
	return s
}

// Trained reports whether a model is installed.
func (s *Service) Trained() bool {
	return s.model.Load() != nil
}

// Predict returns the success probability for a retrieval distance.
// Untrained, it returns the fixed neutral 0.5; predictor absence is the
// documented default, not an error.
func (s *Service) Predict(distance float64) float64 {
	m := s.model.Load()
	if m == nil {
		return domain.NeutralSuccessProbability
	}
	return m.Predict([]float64{distance})
}

// Train fits a fresh model from the feedback log. Below MinSamples it is a
// no-op reporting OutcomeInsufficient; at or above, it deterministically
// splits the data, fits, evaluates on the held-out partition, and installs
// the new model with a single atomic swap so readers never observe a
// half-updated model.
func (s *Service) Train(ctx context.Context) (TrainResult, error) {
	start := time.Now()

	records, err := s.feedback.LoadAll(ctx)
	if err != nil {
		metrics.TrainingsTotal.WithLabelValues("error").Inc()
		return TrainResult{}, fmt.Errorf("load feedback: %w", err)
	}

	if len(records) < s.cfg.MinSamples {
		metrics.TrainingsTotal.WithLabelValues("insufficient_data").Inc()
		s.logger.Info("not enough feedback to train",
			zap.Int("samples", len(records)),
			zap.Int("min_samples", s.cfg.MinSamples),
		)
		return TrainResult{Outcome: OutcomeInsufficient, SampleCount: len(records)}, nil
	}

	trainSet, valSet := split(records, s.cfg.ValidationRatio, s.cfg.Seed)

	model := fit(trainSet, s.cfg)
	model.TrainedAt = time.Now().UnixMilli()
	model.SampleCount = len(records)
	model.ValidationAccuracy = evaluate(model, valSet)

	s.persist(ctx, model)
	s.model.Store(model)

	metrics.TrainingsTotal.WithLabelValues("trained").Inc()
	metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("predictor trained",
		zap.Int("samples", len(records)),
		zap.Float64("validation_accuracy", model.ValidationAccuracy),
	)

	return TrainResult{
		Outcome:            OutcomeTrained,
		SampleCount:        len(records),
		ValidationAccuracy: model.ValidationAccuracy,
	}, nil
}

// TrainAsync runs Train in the background. The returned channel receives
// exactly one result; a caller may drop it for fire-and-forget.
func (s *Service) TrainAsync(ctx context.Context) <-chan TrainResult {
	done := make(chan TrainResult, 1)
	go func() {
		res, err := s.Train(ctx)
		if err != nil {
			s.logger.Error("async training failed", zap.Error(err))
			res.Err = err
		}
		done <- res
	}()
	return done
}

func (s *Service) persist(ctx context.Context, m *Model) {
	if s.store == nil {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		s.logger.Warn("failed to marshal model for persistence", zap.Error(err))
		return
	}
	// Persistence is restart continuity only; the in-memory swap is the
	// source of truth, so a store failure degrades to a warning.
	if err := s.store.Set(ctx, s.modelKey, data); err != nil {
		s.logger.Warn("failed to persist model", zap.Error(err))
	}
}

type example struct {
	features []float64
	label    float64
}

func toExample(rec domain.FeedbackRecord) example {
	return example{
		features: []float64{rec.Distance},
		label:    float64(rec.SuccessLabel),
	}
}

// split shuffles with the fixed seed and carves off the validation
// partition. Identical inputs always produce identical partitions.
func split(records []domain.FeedbackRecord, ratio float64, seed int64) (train, val []example) {
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	nVal := int(float64(len(records)) * ratio)
	if nVal < 1 {
		nVal = 1
	}
	if nVal >= len(records) {
		nVal = len(records) - 1
	}

	for i, j := range idx {
		ex := toExample(records[j])
		if i < nVal {
			val = append(val, ex)
		} else {
			train = append(train, ex)
		}
	}
	return train, val
}

// fit runs full-batch gradient descent on the logistic loss.
func fit(examples []example, cfg Config) *Model {
	nFeat := len(defaultFeatures)
	weights := make([]float64, nFeat)
	bias := 0.0
	n := float64(len(examples))

	gradW := make([]float64, nFeat)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for i := range gradW {
			gradW[i] = 0
		}
		gradB := 0.0

		for _, ex := range examples {
			p := sigmoid(bias + floats.Dot(weights, ex.features))
			residual := p - ex.label
			gradB += residual
			floats.AddScaled(gradW, residual, ex.features)
		}

		bias -= cfg.LearningRate * gradB / n
		floats.AddScaled(weights, -cfg.LearningRate/n, gradW)
	}

	return &Model{
		Version:  ModelVersion,
		Features: append([]string(nil), defaultFeatures...),
		Bias:     bias,
		Weights:  weights,
	}
}

// evaluate returns accuracy at the 0.5 decision threshold.
func evaluate(m *Model, val []example) float64 {
	if len(val) == 0 {
		return 0
	}
	correct := 0
	for _, ex := range val {
		predicted := 0.0
		if m.Predict(ex.features) >= 0.5 {
			predicted = 1.0
		}
		if predicted == ex.label {
			correct++
		}
	}
	return float64(correct) / float64(len(val))
}
