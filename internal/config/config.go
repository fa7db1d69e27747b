package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	StorageRedis      = "redis"
	StorageFilesystem = "filesystem"
	StorageMemory     = "memory"
)

// Outline planners.
const (
	PlannerStatic = "static"
	PlannerModel  = "model"
)

// Config holds the tenderdraft API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Completion CompletionConfig `yaml:"completion"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Generation GenerationConfig `yaml:"generation"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
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
// The write timeout bounds a whole generation stream, so it is long.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis/Valkey connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig selects where documents, vectors and summaries live.
type StorageConfig struct {
	Driver string `yaml:"driver"` // redis, filesystem, memory (default: redis)
	Root   string `yaml:"root"`   // filesystem driver only
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"`
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	CacheTTLHours       int    `yaml:"cache_ttl_hours"`
}

// CacheTTL returns the embedding cache lifetime.
func (e EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(e.CacheTTLHours) * time.Hour
}

// CompletionConfig holds chat completion settings.
type CompletionConfig struct {
	Provider    string          `yaml:"provider"`
	APIKey      string          `yaml:"api_key"`
	BaseURL     string          `yaml:"base_url"`
	Model       string          `yaml:"model"`
	Temperature float32         `yaml:"temperature"`
	MaxTokens   int             `yaml:"max_tokens"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Retry       RetryConfig     `yaml:"retry"`
}

// RateLimitConfig is a client-side token bucket. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// RetryConfig holds exponential backoff settings.
type RetryConfig struct {
	MaxRetries  int `yaml:"max_retries"`
	BaseDelayMs int `yaml:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms"`
}

// BaseDelay returns the first backoff.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// MaxDelay returns the backoff ceiling.
func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMs) * time.Millisecond
}

// IngestConfig holds upload and chunking settings.
type IngestConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	ChunkSize      int   `yaml:"chunk_size"`
	ChunkOverlap   int   `yaml:"chunk_overlap"`
	BatchSize      int   `yaml:"batch_size"`
}

// GenerationConfig holds orchestrator settings.
type GenerationConfig struct {
	Sections            []string `yaml:"sections"`
	Planner             string   `yaml:"planner"` // static, model (default: static)
	TopK                int      `yaml:"top_k"`
	AnalysisConcurrency int      `yaml:"analysis_concurrency"`
	AnalysisMaxInput    int      `yaml:"analysis_max_input_chars"`
	AnalysisMaxTokens   int      `yaml:"analysis_max_tokens"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 600
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageRedis
	}
	if c.Storage.Root == "" {
		c.Storage.Root = "data"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.CacheTTLHours <= 0 {
		c.Embedding.CacheTTLHours = 24 * 30
	}
	if c.Completion.Provider == "" {
		c.Completion.Provider = "openai"
	}
	if c.Completion.Model == "" {
		c.Completion.Model = "gpt-4o"
	}
	if c.Completion.MaxTokens <= 0 {
		c.Completion.MaxTokens = 2000
	}
	if c.Completion.RateLimit.Burst <= 0 {
		c.Completion.RateLimit.Burst = 1
	}
	if c.Completion.Retry.MaxRetries == 0 {
		c.Completion.Retry.MaxRetries = 3
	}
	if c.Completion.Retry.BaseDelayMs <= 0 {
		c.Completion.Retry.BaseDelayMs = 1000
	}
	if c.Completion.Retry.MaxDelayMs <= 0 {
		c.Completion.Retry.MaxDelayMs = 30000
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		c.Ingest.MaxUploadBytes = 10 << 20
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 1000
	}
	if c.Ingest.ChunkOverlap == 0 {
		c.Ingest.ChunkOverlap = 200
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 5
	}
	if c.Generation.Planner == "" {
		c.Generation.Planner = PlannerStatic
	}
	if c.Generation.TopK <= 0 {
		c.Generation.TopK = 5
	}
	if c.Generation.AnalysisConcurrency <= 0 {
		c.Generation.AnalysisConcurrency = 1
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Storage.Driver {
	case StorageRedis:
		if len(c.Database.Addrs) == 0 {
			return errors.New("database.addrs is required for the redis storage driver")
		}
	case StorageFilesystem, StorageMemory:
	default:
		return fmt.Errorf("storage.driver must be one of redis, filesystem, memory, got %q", c.Storage.Driver)
	}
	if c.Embedding.Dimensions > 8192 {
		return fmt.Errorf("embedding.dimensions must be at most 8192, got %d", c.Embedding.Dimensions)
	}
	if c.Completion.Retry.MaxRetries < 0 {
		return fmt.Errorf("completion.retry.max_retries must not be negative, got %d", c.Completion.Retry.MaxRetries)
	}
	if c.Completion.RateLimit.RPS < 0 {
		return fmt.Errorf("completion.rate_limit.rps must not be negative, got %v", c.Completion.RateLimit.RPS)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, chunk_size), got %d", c.Ingest.ChunkOverlap)
	}
	switch c.Generation.Planner {
	case PlannerStatic, PlannerModel:
	default:
		return fmt.Errorf("generation.planner must be %q or %q, got %q",
			PlannerStatic, PlannerModel, c.Generation.Planner)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests and `go run` from subdirectories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
