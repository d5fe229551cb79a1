// Package config loads the process configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/poiesic/skillmatch/ai"
	"github.com/poiesic/skillmatch/storage"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Cache backends.
const (
	BackendFS     = "fs"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds the skillmatch configuration.
type Config struct {
	Cache     CacheConfig     `yaml:"cache"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Filter    FilterConfig    `yaml:"filter"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	AI        AIConfig        `yaml:"ai"`
	Server    ServerConfig    `yaml:"server"`
}

// CacheConfig selects and configures the cache backends.
type CacheConfig struct {
	Backend string `yaml:"backend"` // fs, badger, redis, sqlite (default: fs)

	// Per-tier overrides of Backend.
	IndexBackend  string `yaml:"index_backend"`
	ResultBackend string `yaml:"result_backend"`

	Dir    string       `yaml:"dir"` // fs root, badger lives in <dir>/badger
	Redis  RedisConfig  `yaml:"redis"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// SQLiteConfig holds the SQLite cache location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// IngestionConfig holds document reading settings.
type IngestionConfig struct {
	MaxWorkers        int      `yaml:"max_workers"`
	ParallelThreshold int      `yaml:"parallel_threshold"`
	Extensions        []string `yaml:"extensions"`
}

// FilterConfig holds similarity filter settings.
type FilterConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Threshold    float64 `yaml:"threshold"`
	TopK         int     `yaml:"top_k"` // 0 = all chunks
	ChunkSize    int     `yaml:"chunk_size"`
	ChunkOverlap int     `yaml:"chunk_overlap"`
}

// DispatchConfig holds batch dispatch settings.
type DispatchConfig struct {
	MaxBatchSize int           `yaml:"max_batch_size"`
	BatchDelay   time.Duration `yaml:"batch_delay"`
	MaxInFlight  int           `yaml:"max_in_flight"`
}

// AIConfig mirrors ai.Config.
type AIConfig struct {
	Provider             string        `yaml:"provider"` // openai, ollama, azure
	EmbeddingHost        string        `yaml:"embedding_host"`
	ExtractionHost       string        `yaml:"extraction_host"`
	EmbeddingModel       string        `yaml:"embedding_model"`
	ExtractionModel      string        `yaml:"extraction_model"`
	APIKey               string        `yaml:"api_key"`
	APIVersion           string        `yaml:"api_version"`
	EmbeddingDeployment  string        `yaml:"embedding_deployment"`
	ExtractionDeployment string        `yaml:"extraction_deployment"`
	Temperature          float64       `yaml:"temperature"`
	MinMatchScore        float64       `yaml:"min_match_score"`
	MaxRetries           int           `yaml:"max_retries"`
	RetryDelay           time.Duration `yaml:"retry_delay"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	aiDefaults := ai.DefaultConfig()
	return Config{
		Cache: CacheConfig{
			Backend: BackendFS,
			Dir:     ".cache",
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "skillmatch"},
			SQLite:  SQLiteConfig{Path: filepath.Join(".cache", "skillmatch.db")},
		},
		Ingestion: IngestionConfig{
			MaxWorkers:        4,
			ParallelThreshold: 4,
			Extensions:        []string{".txt", ".pdf", ".docx", ".html", ".htm", ".md"},
		},
		Filter: FilterConfig{
			Enabled:      true,
			Threshold:    0.3,
			ChunkSize:    512,
			ChunkOverlap: 50,
		},
		Dispatch: DispatchConfig{
			MaxBatchSize: 15,
			BatchDelay:   time.Second,
			MaxInFlight:  1,
		},
		AI: AIConfig{
			Provider:        string(aiDefaults.Provider),
			EmbeddingHost:   aiDefaults.EmbeddingHost,
			ExtractionHost:  aiDefaults.ExtractionHost,
			EmbeddingModel:  aiDefaults.EmbeddingModel,
			ExtractionModel: aiDefaults.ExtractionModel,
			APIVersion:      aiDefaults.APIVersion,
			Temperature:     aiDefaults.Temperature,
			MinMatchScore:   aiDefaults.MinMatchScore,
			MaxRetries:      aiDefaults.MaxRetries,
			RetryDelay:      aiDefaults.RetryDelay,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the validated defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, then applies defaults to fields left
// empty and validates the result. ${VAR} and ${VAR:-default} references are
// expanded from the environment first.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills fields that were explicitly emptied.
func (c *Config) ApplyDefaults() {
	d := Default()

	if c.Cache.Backend == "" {
		c.Cache.Backend = d.Cache.Backend
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = d.Cache.Dir
	}
	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = d.Cache.Redis.Addr
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = d.Cache.Redis.Prefix
	}
	if c.Cache.SQLite.Path == "" {
		c.Cache.SQLite.Path = filepath.Join(c.Cache.Dir, "skillmatch.db")
	}
	if c.Ingestion.MaxWorkers <= 0 {
		c.Ingestion.MaxWorkers = d.Ingestion.MaxWorkers
	}
	if c.Ingestion.ParallelThreshold <= 0 {
		c.Ingestion.ParallelThreshold = d.Ingestion.ParallelThreshold
	}
	if len(c.Ingestion.Extensions) == 0 {
		c.Ingestion.Extensions = d.Ingestion.Extensions
	}
	if c.Filter.ChunkSize <= 0 {
		c.Filter.ChunkSize = d.Filter.ChunkSize
	}
	if c.Dispatch.MaxBatchSize <= 0 {
		c.Dispatch.MaxBatchSize = d.Dispatch.MaxBatchSize
	}
	if c.Dispatch.MaxInFlight <= 0 {
		c.Dispatch.MaxInFlight = d.Dispatch.MaxInFlight
	}
	if c.AI.Provider == "" {
		c.AI.Provider = d.AI.Provider
	}
	if c.AI.MaxRetries <= 0 {
		c.AI.MaxRetries = d.AI.MaxRetries
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	for _, tier := range storage.Tiers {
		if err := validBackend(c.Cache.BackendFor(tier)); err != nil {
			return fmt.Errorf("%w: cache backend for %s tier: %w", ErrInvalidConfig, tier, err)
		}
	}
	if c.Ingestion.MaxWorkers < 1 {
		return fmt.Errorf("%w: ingestion.max_workers must be at least 1", ErrInvalidConfig)
	}
	if c.Filter.Threshold < -1 || c.Filter.Threshold > 1 {
		return fmt.Errorf("%w: filter.threshold must be within [-1, 1], got %v", ErrInvalidConfig, c.Filter.Threshold)
	}
	if c.Filter.TopK < 0 {
		return fmt.Errorf("%w: filter.top_k must not be negative", ErrInvalidConfig)
	}
	if c.Filter.ChunkOverlap < 0 || c.Filter.ChunkOverlap >= c.Filter.ChunkSize {
		return fmt.Errorf("%w: filter.chunk_overlap must be in [0, %d), got %d",
			ErrInvalidConfig, c.Filter.ChunkSize, c.Filter.ChunkOverlap)
	}
	if c.Dispatch.MaxBatchSize < 1 {
		return fmt.Errorf("%w: dispatch.max_batch_size must be at least 1", ErrInvalidConfig)
	}
	if c.Dispatch.BatchDelay < 0 {
		return fmt.Errorf("%w: dispatch.batch_delay must not be negative", ErrInvalidConfig)
	}
	if c.Dispatch.MaxInFlight < 1 {
		return fmt.Errorf("%w: dispatch.max_in_flight must be at least 1", ErrInvalidConfig)
	}
	if err := c.AI.ToAI().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func validBackend(name string) error {
	switch name {
	case BackendFS, BackendBadger, BackendRedis, BackendSQLite:
		return nil
	default:
		return fmt.Errorf("unknown backend %q", name)
	}
}

// BackendFor returns the backend serving tier.
func (c CacheConfig) BackendFor(tier storage.Tier) string {
	var override string
	switch tier {
	case storage.TierIndex:
		override = c.IndexBackend
	case storage.TierResult:
		override = c.ResultBackend
	}
	if override != "" {
		return strings.ToLower(override)
	}
	return strings.ToLower(c.Backend)
}

// ToAI converts the section to an ai.Config.
func (a AIConfig) ToAI() *ai.Config {
	return &ai.Config{
		Provider:             ai.Provider(a.Provider),
		EmbeddingHost:        a.EmbeddingHost,
		ExtractionHost:       a.ExtractionHost,
		EmbeddingModel:       a.EmbeddingModel,
		ExtractionModel:      a.ExtractionModel,
		APIKey:               a.APIKey,
		APIVersion:           a.APIVersion,
		EmbeddingDeployment:  a.EmbeddingDeployment,
		ExtractionDeployment: a.ExtractionDeployment,
		Temperature:          a.Temperature,
		MinMatchScore:        a.MinMatchScore,
		MaxRetries:           a.MaxRetries,
		RetryDelay:           a.RetryDelay,
	}
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
