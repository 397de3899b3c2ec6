package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the mentormatch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Matching  MatchingConfig  `yaml:"matching"`
	Predictor PredictorConfig `yaml:"predictor"`
	Report    ReportConfig    `yaml:"report"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Advisor   AdvisorConfig   `yaml:"advisor"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds key layout settings. SeedFile, when set, points at a
// JSON array of mentor profiles indexed once on startup.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
	SeedFile  string `yaml:"seed_file"`
}

// FeedbackConfig holds feedback log settings.
type FeedbackConfig struct {
	Driver           string `yaml:"driver"` // redis, file (default: redis)
	Path             string `yaml:"path"`   // file driver only
	SuccessThreshold int    `yaml:"success_threshold"`
}

// MatchingConfig holds retrieval and blend defaults. Weights here are
// defaults only; callers may override them per request.
type MatchingConfig struct {
	TopK            int     `yaml:"top_k"`
	DistanceWeight  float64 `yaml:"distance_weight"`
	SuccessWeight   float64 `yaml:"success_weight"`
	HNSWM           int     `yaml:"hnsw_m"`
	HNSWEFConstruct int     `yaml:"hnsw_ef_construction"`
}

// PredictorConfig holds training settings.
type PredictorConfig struct {
	MinSamples      int     `yaml:"min_samples"`
	ValidationRatio float64 `yaml:"validation_ratio"`
	Seed            int64   `yaml:"seed"`
	Epochs          int     `yaml:"epochs"`
	LearningRate    float64 `yaml:"learning_rate"`
}

// ReportConfig holds performance aggregation settings. The shrinkage weight
// for a mentor is count/maxCount*shrink_span + shrink_floor.
type ReportConfig struct {
	ShrinkFloor float64 `yaml:"shrink_floor"`
	ShrinkSpan  float64 `yaml:"shrink_span"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// AdvisorConfig holds advisory text generator settings.
type AdvisorConfig struct {
	Model      string `yaml:"model"`
	MaxTokens  int    `yaml:"max_tokens"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "mentormatch:"
	}
	if c.Feedback.Driver == "" {
		c.Feedback.Driver = "redis"
	}
	if c.Feedback.SuccessThreshold <= 0 {
		c.Feedback.SuccessThreshold = 4
	}
	if c.Matching.TopK <= 0 {
		c.Matching.TopK = 5
	}
	if c.Matching.DistanceWeight == 0 {
		c.Matching.DistanceWeight = 1.0
	}
	if c.Matching.SuccessWeight == 0 {
		c.Matching.SuccessWeight = 1.0
	}
	if c.Matching.HNSWM <= 0 {
		c.Matching.HNSWM = 16
	}
	if c.Matching.HNSWEFConstruct <= 0 {
		c.Matching.HNSWEFConstruct = 200
	}
	if c.Predictor.MinSamples <= 0 {
		c.Predictor.MinSamples = 10
	}
	if c.Predictor.ValidationRatio <= 0 {
		c.Predictor.ValidationRatio = 0.2
	}
	if c.Predictor.Seed == 0 {
		c.Predictor.Seed = 42
	}
	if c.Predictor.Epochs <= 0 {
		c.Predictor.Epochs = 500
	}
	if c.Predictor.LearningRate <= 0 {
		c.Predictor.LearningRate = 0.1
	}
	if c.Report.ShrinkFloor == 0 {
		c.Report.ShrinkFloor = 0.8
	}
	if c.Report.ShrinkSpan == 0 {
		c.Report.ShrinkSpan = 0.2
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1024
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 15
	}
	if c.Advisor.TimeoutSec <= 0 {
		c.Advisor.TimeoutSec = 30
	}
	if c.Advisor.MaxTokens <= 0 {
		c.Advisor.MaxTokens = 1024
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Feedback.Driver {
	case "redis":
	case "file":
		if c.Feedback.Path == "" {
			return fmt.Errorf("feedback.path is required for the file driver")
		}
	default:
		return fmt.Errorf("feedback.driver must be \"redis\" or \"file\", got %q", c.Feedback.Driver)
	}
	if c.Feedback.SuccessThreshold < 1 || c.Feedback.SuccessThreshold > 5 {
		return fmt.Errorf("feedback.success_threshold must be between 1 and 5, got %d", c.Feedback.SuccessThreshold)
	}
	if c.Matching.DistanceWeight < 0 || c.Matching.SuccessWeight < 0 {
		return fmt.Errorf("matching weights must be non-negative")
	}
	if c.Predictor.ValidationRatio <= 0 || c.Predictor.ValidationRatio >= 1 {
		return fmt.Errorf("predictor.validation_ratio must be in (0, 1), got %v", c.Predictor.ValidationRatio)
	}
	if c.Report.ShrinkFloor < 0 || c.Report.ShrinkFloor+c.Report.ShrinkSpan > 1 {
		return fmt.Errorf("report shrinkage must satisfy 0 <= floor and floor+span <= 1")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
