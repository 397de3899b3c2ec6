package mentormatch

import (
	"go.uber.org/zap"

	"github.com/pathlight/mentormatch/internal/domain"
	predictoruc "github.com/pathlight/mentormatch/internal/usecase/predictor"
	reportuc "github.com/pathlight/mentormatch/internal/usecase/report"
)

// Option configures the embedded client.
type Option func(*clientConfig)

type clientConfig struct {
	addrs            []string
	password         string
	keyPrefix        string
	vectorDim        int
	hnswM            int
	hnswEFConstruct  int
	topK             int
	successThreshold int
	feedbackPath     string
	embedder         Embedder
	predictor        predictoruc.Config
	report           reportuc.Config
	logger           *zap.Logger
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		keyPrefix:        "mentormatch:",
		vectorDim:        1024,
		topK:             5,
		successThreshold: domain.DefaultSuccessThreshold,
		predictor: predictoruc.Config{
			MinSamples:      10,
			ValidationRatio: 0.2,
			Seed:            42,
			Epochs:          500,
			LearningRate:    0.1,
		},
		report: reportuc.Config{
			ShrinkFloor: 0.8,
			ShrinkSpan:  0.2,
		},
		logger: zap.NewNop(),
	}
}

// WithRedis sets the Redis connection.
func WithRedis(addrs []string, password string) Option {
	return func(c *clientConfig) {
		c.addrs = addrs
		c.password = password
	}
}

// WithKeyPrefix overrides the default key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) { c.keyPrefix = prefix }
}

// WithEmbedder sets the embedding provider. Required for indexing and
// matching; omitting it leaves those operations erroring.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) { c.embedder = e }
}

// WithVectorDim sets the embedding dimensionality.
func WithVectorDim(dim int) Option {
	return func(c *clientConfig) { c.vectorDim = dim }
}

// WithHNSW tunes the vector index construction parameters.
func WithHNSW(m, efConstruct int) Option {
	return func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	}
}

// WithTopK sets the default candidate count for Match.
func WithTopK(k int) Option {
	return func(c *clientConfig) { c.topK = k }
}

// WithSuccessThreshold sets the rating at or above which an outcome counts
// as a success.
func WithSuccessThreshold(threshold int) Option {
	return func(c *clientConfig) { c.successThreshold = threshold }
}

// WithFileFeedback stores the feedback log as JSONL at path instead of in
// the database.
func WithFileFeedback(path string) Option {
	return func(c *clientConfig) { c.feedbackPath = path }
}

// WithTraining overrides predictor training hyperparameters.
func WithTraining(cfg predictoruc.Config) Option {
	return func(c *clientConfig) { c.predictor = cfg }
}

// WithReportShrinkage overrides the leaderboard shrinkage parameters.
func WithReportShrinkage(floor, span float64) Option {
	return func(c *clientConfig) {
		c.report = reportuc.Config{ShrinkFloor: floor, ShrinkSpan: span}
	}
}

// WithLogger sets the logger; default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}
