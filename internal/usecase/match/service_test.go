package match

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/pathlight/mentormatch/internal/domain"
)

type mockRetriever struct {
	fn func(ctx context.Context, text string, k int) ([]domain.MatchCandidate, error)
}

func (m *mockRetriever) Query(ctx context.Context, text string, k int) ([]domain.MatchCandidate, error) {
	return m.fn(ctx, text, k)
}

type mockPredictor struct {
	trained bool
	fn      func(distance float64) float64
}

func (m *mockPredictor) Predict(distance float64) float64 {
	if m.fn != nil {
		return m.fn(distance)
	}
	return domain.NeutralSuccessProbability
}

func (m *mockPredictor) Trained() bool { return m.trained }

func TestMatch_FillsPredictionsAndRanks(t *testing.T) {
	retriever := &mockRetriever{fn: func(_ context.Context, _ string, k int) ([]domain.MatchCandidate, error) {
		return []domain.MatchCandidate{
			{MentorID: "far", Distance: 0.8, SuccessProbability: domain.NeutralSuccessProbability},
			{MentorID: "near", Distance: 0.1, SuccessProbability: domain.NeutralSuccessProbability},
		}, nil
	}}
	predictor := &mockPredictor{trained: true, fn: func(d float64) float64 {
		// Strongly favors the distant mentor.
		if d > 0.5 {
			return 0.99
		}
		return 0.01
	}}

	svc := New(retriever, predictor, 5, zap.NewNop())
	res, err := svc.Match(context.Background(), "learn go", 2, domain.DefaultWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.PredictorTrained {
		t.Error("expected PredictorTrained=true")
	}
	// far: (1-0.8)+0.99 = 1.19; near: (1-0.1)+0.01 = 0.91
	if res.Candidates[0].MentorID != "far" {
		t.Errorf("winner = %s, want far", res.Candidates[0].MentorID)
	}
	if res.Candidates[0].SuccessProbability != 0.99 {
		t.Errorf("probability not filled: %+v", res.Candidates[0])
	}
}

func TestMatch_UntrainedPredictorPreservesDistanceOrder(t *testing.T) {
	retriever := &mockRetriever{fn: func(_ context.Context, _ string, _ int) ([]domain.MatchCandidate, error) {
		return []domain.MatchCandidate{
			{MentorID: "b", Distance: 0.4},
			{MentorID: "a", Distance: 0.2},
		}, nil
	}}

	svc := New(retriever, &mockPredictor{}, 5, zap.NewNop())
	res, err := svc.Match(context.Background(), "q", 2, domain.DefaultWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PredictorTrained {
		t.Error("expected PredictorTrained=false")
	}
	// Neutral 0.5 everywhere: ranking reduces to similarity order.
	if res.Candidates[0].MentorID != "a" || res.Candidates[1].MentorID != "b" {
		t.Errorf("order = %s,%s", res.Candidates[0].MentorID, res.Candidates[1].MentorID)
	}
}

func TestMatch_DefaultK(t *testing.T) {
	var gotK int
	retriever := &mockRetriever{fn: func(_ context.Context, _ string, k int) ([]domain.MatchCandidate, error) {
		gotK = k
		return nil, nil
	}}

	svc := New(retriever, &mockPredictor{}, 7, zap.NewNop())
	if _, err := svc.Match(context.Background(), "q", 0, domain.DefaultWeights()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotK != 7 {
		t.Errorf("k = %d, want default 7", gotK)
	}
}

func TestMatch_InvalidWeights(t *testing.T) {
	svc := New(&mockRetriever{fn: func(_ context.Context, _ string, _ int) ([]domain.MatchCandidate, error) {
		t.Fatal("retriever must not be called")
		return nil, nil
	}}, &mockPredictor{}, 5, zap.NewNop())

	_, err := svc.Match(context.Background(), "q", 3, domain.WeightConfig{DistanceWeight: -1})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestMatch_RetrieverErrorPropagates(t *testing.T) {
	svc := New(&mockRetriever{fn: func(_ context.Context, _ string, _ int) ([]domain.MatchCandidate, error) {
		return nil, domain.ErrRetrievalUnavailable
	}}, &mockPredictor{}, 5, zap.NewNop())

	_, err := svc.Match(context.Background(), "q", 3, domain.DefaultWeights())
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("error = %v, want ErrRetrievalUnavailable", err)
	}
}

func TestMatch_FallbackEmptyOnRetrievalOutage(t *testing.T) {
	svc := New(&mockRetriever{fn: func(_ context.Context, _ string, _ int) ([]domain.MatchCandidate, error) {
		return nil, fmt.Errorf("embed query: %w", domain.ErrRetrievalUnavailable)
	}}, &mockPredictor{trained: true}, 5, zap.NewNop())

	res, err := svc.Match(context.Background(), "q", 3, domain.DefaultWeights(), FallbackEmpty())
	if err != nil {
		t.Fatalf("fallback must swallow the outage, got %v", err)
	}
	if len(res.Candidates) != 0 {
		t.Errorf("candidates = %v, want empty", res.Candidates)
	}
	if !res.PredictorTrained {
		t.Error("predictor state must still be reported")
	}
}

func TestMatch_FallbackEmptyLeavesOtherErrors(t *testing.T) {
	// Only retrieval outages degrade; everything else still propagates.
	svc := New(&mockRetriever{fn: func(_ context.Context, _ string, _ int) ([]domain.MatchCandidate, error) {
		return nil, fmt.Errorf("%w: query text is required", domain.ErrValidation)
	}}, &mockPredictor{}, 5, zap.NewNop())

	_, err := svc.Match(context.Background(), "", 3, domain.DefaultWeights(), FallbackEmpty())
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestMatch_EmptyIndex(t *testing.T) {
	svc := New(&mockRetriever{fn: func(_ context.Context, _ string, _ int) ([]domain.MatchCandidate, error) {
		return nil, nil
	}}, &mockPredictor{}, 5, zap.NewNop())

	res, err := svc.Match(context.Background(), "q", 3, domain.DefaultWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Candidates) != 0 {
		t.Errorf("candidates = %v, want empty", res.Candidates)
	}
}
