package predictor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ModelVersion tags persisted models. Loading a model with a different
// version is refused rather than reinterpreted, so the feature set can grow
// without corrupting older deployments.
const ModelVersion = 1

// Model holds trained logistic-regression parameters. It is immutable after
// training; retrains install a fresh instance.
type Model struct {
	Version            int       `json:"version"`
	Features           []string  `json:"features"`
	Bias               float64   `json:"bias"`
	Weights            []float64 `json:"weights"`
	TrainedAt          int64     `json:"trained_at"` // unix millis
	SampleCount        int       `json:"training_sample_count"`
	ValidationAccuracy float64   `json:"validation_accuracy"`
}

// Predict returns the success probability for a feature vector.
func (m *Model) Predict(features []float64) float64 {
	return sigmoid(m.Bias + floats.Dot(m.Weights, features))
}

func (m *Model) validate() error {
	if m.Version != ModelVersion {
		return fmt.Errorf("unsupported model version %d, expected %d", m.Version, ModelVersion)
	}
	if len(m.Weights) != len(m.Features) {
		return fmt.Errorf("model has %d weights for %d features", len(m.Weights), len(m.Features))
	}
	return nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
