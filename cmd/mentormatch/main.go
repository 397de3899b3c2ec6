package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pathlight/mentormatch/internal/config"
	dbRedis "github.com/pathlight/mentormatch/internal/db/redis"
	"github.com/pathlight/mentormatch/internal/domain"
	logpkg "github.com/pathlight/mentormatch/internal/logger"
	"github.com/pathlight/mentormatch/internal/metrics"
	feedbackrepo "github.com/pathlight/mentormatch/internal/repository/feedback"
	mentorrepo "github.com/pathlight/mentormatch/internal/repository/mentor"
	chiTransport "github.com/pathlight/mentormatch/internal/transport/chi"
	openaiTransport "github.com/pathlight/mentormatch/internal/transport/openai"
	advisoruc "github.com/pathlight/mentormatch/internal/usecase/advisor"
	feedbackuc "github.com/pathlight/mentormatch/internal/usecase/feedback"
	healthuc "github.com/pathlight/mentormatch/internal/usecase/health"
	indexuc "github.com/pathlight/mentormatch/internal/usecase/index"
	matchuc "github.com/pathlight/mentormatch/internal/usecase/match"
	predictoruc "github.com/pathlight/mentormatch/internal/usecase/predictor"
	reportuc "github.com/pathlight/mentormatch/internal/usecase/report"
	"github.com/pathlight/mentormatch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting mentormatch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Repositories
	mentorRepo := mentorrepo.New(store, cfg.Storage.KeyPrefix, cfg.Embedding.Dimensions).
		WithHNSW(mentorrepo.HNSWConfig{
			M:           cfg.Matching.HNSWM,
			EFConstruct: cfg.Matching.HNSWEFConstruct,
		})

	feedbackLog, closeFeedback, err := buildFeedbackLog(cfg, store)
	if err != nil {
		logger.Fatal("Failed to open feedback log", zap.Error(err))
	}
	defer closeFeedback()

	// Use case services
	indexSvc := indexuc.New(mentorRepo, embedder)
	if err := indexSvc.Init(ctx); err != nil {
		logger.Fatal("Failed to initialize mentor index", zap.Error(err))
	}

	feedbackSvc := feedbackuc.New(feedbackLog, cfg.Feedback.SuccessThreshold, logger)

	predictorSvc := predictoruc.New(feedbackSvc, predictoruc.Config{
		MinSamples:      cfg.Predictor.MinSamples,
		ValidationRatio: cfg.Predictor.ValidationRatio,
		Seed:            cfg.Predictor.Seed,
		Epochs:          cfg.Predictor.Epochs,
		LearningRate:    cfg.Predictor.LearningRate,
	}, logger).WithStore(ctx, store, cfg.Storage.KeyPrefix)

	matchSvc := matchuc.New(indexSvc, predictorSvc, cfg.Matching.TopK, logger)
	reportSvc := reportuc.New(feedbackSvc, indexSvc, reportuc.Config{
		ShrinkFloor: cfg.Report.ShrinkFloor,
		ShrinkSpan:  cfg.Report.ShrinkSpan,
	}, logger)

	var advisorSvc *advisoruc.Service
	if cfg.Advisor.Model != "" {
		gen := openaiTransport.NewAdvisor(&openaiTransport.AdvisorConfig{
			APIKey:    cfg.Embedding.APIKey,
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Advisor.Model,
			MaxTokens: cfg.Advisor.MaxTokens,
			Timeout:   time.Duration(cfg.Advisor.TimeoutSec) * time.Second,
			Logger:    logger,
		})
		advisorSvc = advisoruc.New(gen, indexSvc, logger)
	}

	healthSvc := healthuc.New(store, embedder)

	if cfg.Storage.SeedFile != "" {
		if err := seedMentors(ctx, indexSvc, cfg.Storage.SeedFile, logger); err != nil {
			logger.Fatal("Failed to seed mentors", zap.Error(err))
		}
	}

	server := chiTransport.NewServer(
		indexSvc, matchSvc, feedbackSvc, predictorSvc, reportSvc, advisorSvc, healthSvc, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildFeedbackLog picks the configured feedback driver. The returned closer
// is a no-op for the redis driver.
func buildFeedbackLog(cfg config.Config, store *dbRedis.Store) (feedbackuc.Log, func(), error) {
	switch cfg.Feedback.Driver {
	case "file":
		l, err := feedbackrepo.NewFileLog(cfg.Feedback.Path)
		if err != nil {
			return nil, nil, err
		}
		return l, func() { _ = l.Close() }, nil
	default:
		return feedbackrepo.NewRedisLog(store, cfg.Storage.KeyPrefix), func() {}, nil
	}
}

// seedMentors indexes mentor profiles from a JSON file. Seeding reuses the
// regular upsert path, so rerunning against the same file is harmless.
func seedMentors(ctx context.Context, svc *indexuc.Service, path string, logger *zap.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var profiles []domain.MentorProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	now := time.Now().UnixMilli()
	for _, p := range profiles {
		p.UpdatedAt = now
		if err := svc.Upsert(ctx, p); err != nil {
			return fmt.Errorf("seed mentor %s: %w", p.ID, err)
		}
	}

	logger.Info("Seeded mentor profiles", zap.Int("count", len(profiles)), zap.String("file", path))
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
