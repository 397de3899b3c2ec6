// Package mentormatch embeds the matching pipeline as a library: the same
// services the HTTP server wires, connected straight to the database with no
// transport in between.
package mentormatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbRedis "github.com/pathlight/mentormatch/internal/db/redis"
	"github.com/pathlight/mentormatch/internal/domain"
	feedbackrepo "github.com/pathlight/mentormatch/internal/repository/feedback"
	mentorrepo "github.com/pathlight/mentormatch/internal/repository/mentor"
	feedbackuc "github.com/pathlight/mentormatch/internal/usecase/feedback"
	indexuc "github.com/pathlight/mentormatch/internal/usecase/index"
	matchuc "github.com/pathlight/mentormatch/internal/usecase/match"
	predictoruc "github.com/pathlight/mentormatch/internal/usecase/predictor"
	reportuc "github.com/pathlight/mentormatch/internal/usecase/report"
)

const defaultReadinessTimeout = 10 * time.Second

// Re-exported domain types so embedders of the library need not import
// internal packages.
type (
	MentorProfile  = domain.MentorProfile
	MatchCandidate = domain.MatchCandidate
	WeightConfig   = domain.WeightConfig
	FeedbackRecord = domain.FeedbackRecord
	ReportRow      = reportuc.Row
	TrainResult    = predictoruc.TrainResult
)

// EmbeddingResult mirrors the embedding provider output.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text. Implementations wrap whatever provider the
// embedding application already uses.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// Client is the embedded entry point.
type Client struct {
	store     *dbRedis.Store
	index     *indexuc.Service
	match     *matchuc.Service
	feedback  *feedbackuc.Service
	predictor *predictoruc.Service
	report    *reportuc.Service
	closeLog  func()
}

// New creates a Client and connects to the database. The provided context
// bounds the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("mentormatch: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("mentormatch: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("mentormatch: database not ready: %w", err)
	}

	return wireClient(ctx, store, cfg)
}

func wireClient(ctx context.Context, store *dbRedis.Store, cfg *clientConfig) (*Client, error) {
	mentorRepo := mentorrepo.New(store, cfg.keyPrefix, cfg.vectorDim)
	if cfg.hnswM > 0 || cfg.hnswEFConstruct > 0 {
		mentorRepo = mentorRepo.WithHNSW(mentorrepo.HNSWConfig{
			M:           cfg.hnswM,
			EFConstruct: cfg.hnswEFConstruct,
		})
	}

	var emb indexuc.Embedder = noopEmbedder{}
	if cfg.embedder != nil {
		emb = &embedderAdapter{inner: cfg.embedder}
	}

	indexSvc := indexuc.New(mentorRepo, emb)
	if err := indexSvc.Init(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("mentormatch: init index: %w", err)
	}

	var log feedbackuc.Log
	closeLog := func() {}
	if cfg.feedbackPath != "" {
		fl, err := feedbackrepo.NewFileLog(cfg.feedbackPath)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("mentormatch: open feedback log: %w", err)
		}
		log = fl
		closeLog = func() { _ = fl.Close() }
	} else {
		log = feedbackrepo.NewRedisLog(store, cfg.keyPrefix)
	}

	feedbackSvc := feedbackuc.New(log, cfg.successThreshold, cfg.logger)
	predictorSvc := predictoruc.New(feedbackSvc, cfg.predictor, cfg.logger).
		WithStore(ctx, store, cfg.keyPrefix)
	matchSvc := matchuc.New(indexSvc, predictorSvc, cfg.topK, cfg.logger)
	reportSvc := reportuc.New(feedbackSvc, indexSvc, cfg.report, cfg.logger)

	return &Client{
		store:     store,
		index:     indexSvc,
		match:     matchSvc,
		feedback:  feedbackSvc,
		predictor: predictorSvc,
		report:    reportSvc,
		closeLog:  closeLog,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	c.closeLog()
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// UpsertMentor indexes or replaces a mentor profile.
func (c *Client) UpsertMentor(ctx context.Context, profile MentorProfile) error {
	if profile.UpdatedAt == 0 {
		profile.UpdatedAt = time.Now().UnixMilli()
	}
	return c.index.Upsert(ctx, profile)
}

// GetMentor returns a stored mentor profile.
func (c *Client) GetMentor(ctx context.Context, id string) (MentorProfile, error) {
	return c.index.Get(ctx, id)
}

// DeleteMentor removes a mentor from the index. Historical feedback survives.
func (c *Client) DeleteMentor(ctx context.Context, id string) error {
	return c.index.Remove(ctx, id)
}

// MatchOption adjusts a single Match call.
type MatchOption = matchuc.Option

// FallbackEmpty degrades a retrieval outage into an empty candidate list
// instead of an error for the call it is passed to.
func FallbackEmpty() MatchOption {
	return matchuc.FallbackEmpty()
}

// Match returns up to k mentors ranked by blended score with default weights.
func (c *Client) Match(ctx context.Context, query string, k int, opts ...MatchOption) ([]MatchCandidate, error) {
	return c.MatchWeighted(ctx, query, k, domain.DefaultWeights(), opts...)
}

// MatchWeighted is Match with caller-supplied blend weights.
func (c *Client) MatchWeighted(
	ctx context.Context, query string, k int, weights WeightConfig, opts ...MatchOption,
) ([]MatchCandidate, error) {
	res, err := c.match.Match(ctx, query, k, weights, opts...)
	if err != nil {
		return nil, err
	}
	return res.Candidates, nil
}

// RecordFeedback appends a mentoring outcome to the feedback log and returns
// the stored record with the new total record count.
func (c *Client) RecordFeedback(
	ctx context.Context, mentorID, queryContext string, distance float64, rating int,
) (FeedbackRecord, int, error) {
	return c.feedback.Append(ctx, mentorID, queryContext, distance, rating)
}

// Train fits the success predictor from accumulated feedback.
func (c *Client) Train(ctx context.Context) (TrainResult, error) {
	return c.predictor.Train(ctx)
}

// Report builds the ranked mentor performance leaderboard.
func (c *Client) Report(ctx context.Context) ([]ReportRow, error) {
	return c.report.Generate(ctx)
}

// embedderAdapter wraps the public Embedder to satisfy the internal contract.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noopEmbedder fails every Embed call (used when no embedder is configured).
// The error wraps domain.ErrRetrievalUnavailable so it follows the same
// taxonomy as a provider outage.
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf(
		"mentormatch: embedder not configured (use WithEmbedder): %w",
		domain.ErrRetrievalUnavailable,
	)
}
