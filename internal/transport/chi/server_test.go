package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pathlight/mentormatch/internal/domain"
	mentorrepo "github.com/pathlight/mentormatch/internal/repository/mentor"
	feedbackuc "github.com/pathlight/mentormatch/internal/usecase/feedback"
	healthuc "github.com/pathlight/mentormatch/internal/usecase/health"
	indexuc "github.com/pathlight/mentormatch/internal/usecase/index"
	matchuc "github.com/pathlight/mentormatch/internal/usecase/match"
	predictoruc "github.com/pathlight/mentormatch/internal/usecase/predictor"
	reportuc "github.com/pathlight/mentormatch/internal/usecase/report"
)

// fakeRepo is an in-memory mentor index. Distances come from a fixture map
// instead of vector math so tests control the retrieval order.
type fakeRepo struct {
	mu        sync.Mutex
	profiles  map[string]domain.MentorProfile
	distances map[string]float64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		profiles:  map[string]domain.MentorProfile{},
		distances: map[string]float64{},
	}
}

func (f *fakeRepo) EnsureIndex(_ context.Context) error { return nil }

func (f *fakeRepo) Upsert(_ context.Context, profile domain.MentorProfile, _ []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.ID] = profile
	if _, ok := f.distances[profile.ID]; !ok {
		f.distances[profile.ID] = 0.5
	}
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (domain.MentorProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return domain.MentorProfile{}, fmt.Errorf("%w: %s", domain.ErrMentorNotFound, id)
	}
	return p, nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrMentorNotFound, id)
	}
	delete(f.profiles, id)
	return nil
}

func (f *fakeRepo) SearchKNN(_ context.Context, _ []float32, k int) ([]mentorrepo.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hits := make([]mentorrepo.Hit, 0, len(f.profiles))
	for id, p := range f.profiles {
		hits = append(hits, mentorrepo.Hit{Profile: p, Distance: f.distances[id]})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *fakeRepo) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.profiles), nil
}

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3, 0.4}}, nil
}

type memLog struct {
	mu      sync.Mutex
	records []domain.FeedbackRecord
}

func (m *memLog) Append(_ context.Context, rec domain.FeedbackRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return len(m.records), nil
}

func (m *memLog) LoadAll(_ context.Context) ([]domain.FeedbackRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.FeedbackRecord(nil), m.records...), nil
}

func (m *memLog) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

type testEnv struct {
	srv      *httptest.Server
	repo     *fakeRepo
	embedder *fakeEmbedder
	pinger   *fakePinger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	repo := newFakeRepo()
	embedder := &fakeEmbedder{}
	pinger := &fakePinger{}

	indexSvc := indexuc.New(repo, embedder)
	feedbackSvc := feedbackuc.New(&memLog{}, 4, logger)
	predictorSvc := predictoruc.New(feedbackSvc, predictoruc.Config{
		MinSamples:      10,
		ValidationRatio: 0.2,
		Seed:            42,
		Epochs:          100,
		LearningRate:    0.1,
	}, logger)
	matchSvc := matchuc.New(indexSvc, predictorSvc, 5, logger)
	reportSvc := reportuc.New(feedbackSvc, indexSvc, reportuc.Config{ShrinkFloor: 0.8, ShrinkSpan: 0.2}, logger)
	healthSvc := healthuc.New(pinger, nil)

	server := NewServer(indexSvc, matchSvc, feedbackSvc, predictorSvc, reportSvc, nil, healthSvc, logger)
	r := chi.NewRouter()
	server.Mount(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, repo: repo, embedder: embedder, pinger: pinger}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, out.Bytes()
}

func (e *testEnv) upsert(t *testing.T, id, name string, distance float64) {
	t.Helper()
	e.repo.distances[id] = distance
	resp, body := e.do(t, http.MethodPost, "/api/v1/mentors", map[string]any{
		"id":          id,
		"name":        name,
		"expertise":   []string{"go"},
		"description": "Backend engineer.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upsert %s: status %d body %s", id, resp.StatusCode, body)
	}
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		t.Fatalf("error body not JSON: %s", body)
	}
	return er.Code
}

func TestMentorLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.upsert(t, "m1", "Ada", 0.2)

	resp, body := env.do(t, http.MethodGet, "/api/v1/mentors/m1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: status %d", resp.StatusCode)
	}
	var profile domain.MentorProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		t.Fatal(err)
	}
	if profile.Name != "Ada" {
		t.Errorf("name = %q, want Ada", profile.Name)
	}
	if profile.UpdatedAt == 0 {
		t.Error("updated_at must be stamped on upsert")
	}

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/mentors/m1", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/mentors/m1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: status %d", resp.StatusCode)
	}
	if code := errorCode(t, body); code != codeMentorNotFound {
		t.Errorf("code = %q, want %q", code, codeMentorNotFound)
	}
}

func TestUpsertMentor_Validation(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/mentors", map[string]any{
		"id":        "m1",
		"expertise": []string{"go"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if code := errorCode(t, body); code != codeValidationFailed {
		t.Errorf("code = %q, want %q", code, codeValidationFailed)
	}
}

func TestMatch_RanksByDistanceWhenUntrained(t *testing.T) {
	env := newTestEnv(t)
	env.upsert(t, "near", "Near", 0.1)
	env.upsert(t, "far", "Far", 0.8)

	resp, body := env.do(t, http.MethodPost, "/api/v1/match", map[string]any{
		"query": "learn go",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body %s", resp.StatusCode, body)
	}

	var result matchuc.Result
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if result.PredictorTrained {
		t.Error("predictor must report untrained")
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(result.Candidates))
	}
	if result.Candidates[0].MentorID != "near" {
		t.Errorf("top candidate = %s, want near", result.Candidates[0].MentorID)
	}
	if result.Candidates[0].SuccessProbability != domain.NeutralSuccessProbability {
		t.Errorf("untrained probability = %v, want 0.5", result.Candidates[0].SuccessProbability)
	}
}

func TestMatch_InvalidWeights(t *testing.T) {
	env := newTestEnv(t)

	neg := -0.5
	resp, body := env.do(t, http.MethodPost, "/api/v1/match", map[string]any{
		"query":           "q",
		"distance_weight": neg,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d body %s", resp.StatusCode, body)
	}
	if code := errorCode(t, body); code != codeValidationFailed {
		t.Errorf("code = %q, want %q", code, codeValidationFailed)
	}
}

func TestMatch_EmbedderDown(t *testing.T) {
	env := newTestEnv(t)
	env.upsert(t, "m1", "Ada", 0.2)
	env.embedder.err = fmt.Errorf("%w: provider timeout", domain.ErrRetrievalUnavailable)

	resp, body := env.do(t, http.MethodPost, "/api/v1/match", map[string]any{"query": "q"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if code := errorCode(t, body); code != codeEmbeddingUpstream {
		t.Errorf("code = %q, want %q", code, codeEmbeddingUpstream)
	}
}

func TestMatch_EmbedderDownWithFallback(t *testing.T) {
	env := newTestEnv(t)
	env.upsert(t, "m1", "Ada", 0.2)
	env.embedder.err = fmt.Errorf("%w: provider timeout", domain.ErrRetrievalUnavailable)

	resp, body := env.do(t, http.MethodPost, "/api/v1/match", map[string]any{
		"query":          "q",
		"fallback_empty": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body %s, want 200 with fallback", resp.StatusCode, body)
	}

	var result matchuc.Result
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Candidates) != 0 {
		t.Errorf("candidates = %v, want empty", result.Candidates)
	}
}

func TestFeedbackLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/feedback", map[string]any{
		"mentor_id":     "m1",
		"query_context": "learn go",
		"distance":      0.3,
		"rating":        5,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("append: status %d body %s", resp.StatusCode, body)
	}
	var created struct {
		domain.FeedbackRecord
		Total int `json:"total"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	if created.SuccessLabel != 1 {
		t.Errorf("label = %d, want 1", created.SuccessLabel)
	}
	if created.Total != 1 {
		t.Errorf("total = %d, want 1", created.Total)
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/feedback", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status %d", resp.StatusCode)
	}
	var list struct {
		Items []domain.FeedbackRecord `json:"items"`
		Total int                     `json:"total"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || len(list.Items) != 1 {
		t.Errorf("list = %+v, want one record", list)
	}
}

func TestAppendFeedback_InvalidRating(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/feedback", map[string]any{
		"mentor_id": "m1",
		"distance":  0.3,
		"rating":    9,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d body %s", resp.StatusCode, body)
	}
	if code := errorCode(t, body); code != codeValidationFailed {
		t.Errorf("code = %q, want %q", code, codeValidationFailed)
	}
}

func TestTrain_InsufficientDataIsOK(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/train", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body %s", resp.StatusCode, body)
	}
	var result predictoruc.TrainResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if result.Outcome != predictoruc.OutcomeInsufficient {
		t.Errorf("outcome = %s, want insufficient_data", result.Outcome)
	}
}

func TestTrain_AsyncAccepted(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/train?async=true", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d body %s", resp.StatusCode, body)
	}
}

func TestReport_NoFeedback(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/v1/report", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d body %s", resp.StatusCode, body)
	}
	if code := errorCode(t, body); code != codeNoFeedback {
		t.Errorf("code = %q, want %q", code, codeNoFeedback)
	}
}

func TestReport_WithFeedback(t *testing.T) {
	env := newTestEnv(t)
	env.upsert(t, "m1", "Ada", 0.2)
	for _, rating := range []int{5, 4, 3} {
		resp, body := env.do(t, http.MethodPost, "/api/v1/feedback", map[string]any{
			"mentor_id": "m1", "distance": 0.3, "rating": rating,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("append: status %d body %s", resp.StatusCode, body)
		}
	}

	resp, body := env.do(t, http.MethodGet, "/api/v1/report", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body %s", resp.StatusCode, body)
	}
	var report struct {
		Items []reportuc.Row `json:"items"`
		Total int            `json:"total"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatal(err)
	}
	if report.Total != 1 {
		t.Fatalf("total = %d, want 1", report.Total)
	}
	row := report.Items[0]
	if row.MentorID != "m1" || row.Name != "Ada" || row.ReviewCount != 3 {
		t.Errorf("row = %+v", row)
	}
	if row.FinalScore != 4.00 || row.Rank != 1 {
		t.Errorf("score/rank = %v/%d, want 4.00/1", row.FinalScore, row.Rank)
	}
}

func TestAdvice_NoProviderConfigured(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/advice", map[string]any{
		"mentor_id": "m1", "query": "q",
	})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d body %s", resp.StatusCode, body)
	}
	if code := errorCode(t, body); code != codeAdviceUnavailable {
		t.Errorf("code = %q, want %q", code, codeAdviceUnavailable)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	env.pinger.err = fmt.Errorf("connection refused")
	resp, body := env.do(t, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d body %s", resp.StatusCode, body)
	}
}
