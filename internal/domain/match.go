package domain

import "fmt"

// NeutralSuccessProbability is returned by an untrained predictor.
const NeutralSuccessProbability = 0.5

// MatchCandidate is one retrieved mentor for a mentee query. Ephemeral:
// produced per query, never persisted.
//
// Distance is cosine distance normalized to [0,1] at the retrieval boundary
// (raw cosine distance spans [0,2]; anything past 1 is anti-correlated and
// clamped to 1). Lower means more similar.
type MatchCandidate struct {
	MentorID           string  `json:"mentor_id"`
	Name               string  `json:"name"`
	Distance           float64 `json:"distance"`
	SuccessProbability float64 `json:"success_probability"`
	FinalScore         float64 `json:"final_score"`
}

// WeightConfig holds the operator-supplied blend weights. Scoped per call,
// never global.
type WeightConfig struct {
	DistanceWeight float64 `json:"distance_weight"`
	SuccessWeight  float64 `json:"success_weight"`
}

// DefaultWeights returns the neutral 1.0/1.0 weighting.
func DefaultWeights() WeightConfig {
	return WeightConfig{DistanceWeight: 1.0, SuccessWeight: 1.0}
}

// Validate rejects negative weights.
func (w WeightConfig) Validate() error {
	if w.DistanceWeight < 0 {
		return fmt.Errorf("%w: distance_weight must be non-negative, got %v", ErrValidation, w.DistanceWeight)
	}
	if w.SuccessWeight < 0 {
		return fmt.Errorf("%w: success_weight must be non-negative, got %v", ErrValidation, w.SuccessWeight)
	}
	return nil
}
