package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pathlight/mentormatch/internal/domain"
	advisoruc "github.com/pathlight/mentormatch/internal/usecase/advisor"
	feedbackuc "github.com/pathlight/mentormatch/internal/usecase/feedback"
	healthuc "github.com/pathlight/mentormatch/internal/usecase/health"
	indexuc "github.com/pathlight/mentormatch/internal/usecase/index"
	matchuc "github.com/pathlight/mentormatch/internal/usecase/match"
	predictoruc "github.com/pathlight/mentormatch/internal/usecase/predictor"
	reportuc "github.com/pathlight/mentormatch/internal/usecase/report"
)

// Error codes returned in JSON error bodies.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeMentorNotFound    = "mentor_not_found"
	codeNoFeedback        = "no_feedback"
	codeEmbeddingUpstream = "embedding_provider_error"
	codeAdviceUnavailable = "advice_unavailable"
	codeStorageFailure    = "storage_failure"
	codeInternalError     = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API over the matching pipeline.
type Server struct {
	index         *indexuc.Service
	match         *matchuc.Service
	feedback      *feedbackuc.Service
	predictor     *predictoruc.Service
	report        *reportuc.Service
	advisor       *advisoruc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. advisor may be nil when no advice
// provider is configured; the advice route then reports unavailability.
func NewServer(
	index *indexuc.Service,
	match *matchuc.Service,
	feedback *feedbackuc.Service,
	predictor *predictoruc.Service,
	report *reportuc.Service,
	advisor *advisoruc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		index:     index,
		match:     match,
		feedback:  feedback,
		predictor: predictor,
		report:    report,
		advisor:   advisor,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrMentorNotFound, http.StatusNotFound, codeMentorNotFound),
		sentinelHandler(domain.ErrNoFeedback, http.StatusNotFound, codeNoFeedback),
		sentinelHandler(domain.ErrRetrievalUnavailable, http.StatusBadGateway, codeEmbeddingUpstream),
		sentinelHandler(domain.ErrAdviceUnavailable, http.StatusBadGateway, codeAdviceUnavailable),
		sentinelHandler(domain.ErrStorageFailure, http.StatusInternalServerError, codeStorageFailure),
	}
	return s
}

// Mount attaches all API routes onto the router.
func (s *Server) Mount(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/mentors", s.UpsertMentor)
		r.Get("/mentors/{id}", s.GetMentor)
		r.Delete("/mentors/{id}", s.DeleteMentor)
		r.Post("/match", s.Match)
		r.Post("/feedback", s.AppendFeedback)
		r.Get("/feedback", s.ListFeedback)
		r.Post("/train", s.Train)
		r.Get("/report", s.Report)
		r.Post("/advice", s.Advice)
	})
	r.Get("/healthz", s.Healthz)
	r.Get("/metrics", s.Metrics)
}

// UpsertMentor handles POST /api/v1/mentors.
func (s *Server) UpsertMentor(w http.ResponseWriter, r *http.Request) {
	var profile domain.MentorProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	profile.UpdatedAt = time.Now().UnixMilli()

	if err := s.index.Upsert(r.Context(), profile); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": profile.ID, "status": "indexed"})
}

// GetMentor handles GET /api/v1/mentors/{id}.
func (s *Server) GetMentor(w http.ResponseWriter, r *http.Request) {
	profile, err := s.index.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// DeleteMentor handles DELETE /api/v1/mentors/{id}.
func (s *Server) DeleteMentor(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type matchRequest struct {
	Query          string   `json:"query"`
	K              int      `json:"k"`
	DistanceWeight *float64 `json:"distance_weight"`
	SuccessWeight  *float64 `json:"success_weight"`
	FallbackEmpty  bool     `json:"fallback_empty"`
}

// Match handles POST /api/v1/match.
func (s *Server) Match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	weights := domain.DefaultWeights()
	if req.DistanceWeight != nil {
		weights.DistanceWeight = *req.DistanceWeight
	}
	if req.SuccessWeight != nil {
		weights.SuccessWeight = *req.SuccessWeight
	}

	var opts []matchuc.Option
	if req.FallbackEmpty {
		opts = append(opts, matchuc.FallbackEmpty())
	}

	result, err := s.match.Match(r.Context(), req.Query, req.K, weights, opts...)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type feedbackRequest struct {
	MentorID     string  `json:"mentor_id"`
	QueryContext string  `json:"query_context"`
	Distance     float64 `json:"distance"`
	Rating       int     `json:"rating"`
}

type feedbackResponse struct {
	domain.FeedbackRecord
	Total int `json:"total"`
}

// AppendFeedback handles POST /api/v1/feedback.
func (s *Server) AppendFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rec, total, err := s.feedback.Append(r.Context(), req.MentorID, req.QueryContext, req.Distance, req.Rating)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, feedbackResponse{FeedbackRecord: rec, Total: total})
}

// ListFeedback handles GET /api/v1/feedback.
func (s *Server) ListFeedback(w http.ResponseWriter, r *http.Request) {
	records, err := s.feedback.LoadAll(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if records == nil {
		records = []domain.FeedbackRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": records,
		"total": len(records),
	})
}

// Train handles POST /api/v1/train. With ?async=true training runs in the
// background and the response is 202 with no result body.
func (s *Server) Train(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("async") == "true" {
		// Detach from the request context: training outlives the response.
		s.predictor.TrainAsync(context.WithoutCancel(r.Context()))
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "training_started"})
		return
	}

	result, err := s.predictor.Train(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Report handles GET /api/v1/report.
func (s *Server) Report(w http.ResponseWriter, r *http.Request) {
	rows, err := s.report.Generate(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": rows,
		"total": len(rows),
	})
}

type adviceRequest struct {
	MentorID string `json:"mentor_id"`
	Query    string `json:"query"`
}

// Advice handles POST /api/v1/advice.
func (s *Server) Advice(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		writeError(w, http.StatusBadGateway, codeAdviceUnavailable, "no advice provider configured")
		return
	}

	var req adviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	advice, err := s.advisor.Advise(r.Context(), req.MentorID, req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"mentor_id": req.MentorID,
		"advice":    advice,
	})
}

// Healthz handles GET /healthz.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Check(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"reason": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-facing message without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrMentorNotFound,
		domain.ErrNoFeedback,
		domain.ErrRetrievalUnavailable,
		domain.ErrAdviceUnavailable,
		domain.ErrStorageFailure,
		domain.ErrInsufficientData,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			if errors.Is(err, domain.ErrValidation) {
				// Validation details are safe and actionable for the caller.
				return err.Error()
			}
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			s.logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
