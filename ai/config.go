// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Provider names a model service implementation.
type Provider string

const (
	// ProviderOpenAI targets OpenAI or any OpenAI-compatible server
	// (LocalAI, vLLM, Ollama's /v1 endpoint).
	ProviderOpenAI Provider = "openai"

	// ProviderOllama targets Ollama's native API.
	ProviderOllama Provider = "ollama"

	// ProviderAzure targets Azure OpenAI deployments.
	ProviderAzure Provider = "azure"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Provider selects the implementation. Default: openai
	Provider Provider

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// ExtractionHost is the base URL for the chat service that screens batches.
	ExtractionHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// ExtractionModel is the model identifier used for batch extraction.
	// Example: "qwen2.5:7b", "gpt-4o-mini"
	ExtractionModel string

	// APIKey authenticates against hosted services. Local servers ignore it.
	APIKey string

	// APIVersion is the Azure OpenAI API version.
	APIVersion string

	// EmbeddingDeployment and ExtractionDeployment are Azure deployment
	// names. They default to the model names.
	EmbeddingDeployment  string
	ExtractionDeployment string

	// Temperature is the sampling temperature for extraction. Default: 0
	Temperature float64

	// MinMatchScore drops records scoring below it (0-100). Default: 0,
	// which keeps every record the model returns.
	MinMatchScore float64

	// MaxRetries is the number of attempts made for each service call.
	// Default: 3
	MaxRetries int

	// RetryDelay is the base delay between attempts; it doubles each retry.
	// Default: 1s
	RetryDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the provider implementation.
func WithProvider(p Provider) ConfigOption {
	return func(c *Config) {
		c.Provider = p
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithExtractionHost sets the extraction service host URL.
func WithExtractionHost(host string) ConfigOption {
	return func(c *Config) {
		c.ExtractionHost = host
	}
}

// WithHost sets both embedding and extraction hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ExtractionHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithExtractionModel sets the extraction model identifier.
func WithExtractionModel(model string) ConfigOption {
	return func(c *Config) {
		c.ExtractionModel = model
	}
}

// WithAPIKey sets the service API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithAzure configures Azure OpenAI with an API version and deployment names.
func WithAzure(apiVersion, embeddingDeployment, extractionDeployment string) ConfigOption {
	return func(c *Config) {
		c.Provider = ProviderAzure
		c.APIVersion = apiVersion
		c.EmbeddingDeployment = embeddingDeployment
		c.ExtractionDeployment = extractionDeployment
	}
}

// WithTemperature sets the extraction sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithMinMatchScore sets the minimum match score for returned records.
func WithMinMatchScore(min float64) ConfigOption {
	return func(c *Config) {
		c.MinMatchScore = min
	}
}

// WithRetry sets the attempt count and base retry delay.
func WithRetry(maxRetries int, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// Backoff returns the transport retry policy for c, logging to logger.
func (c *Config) Backoff(logger *slog.Logger) Backoff {
	return NewBackoff(c.MaxRetries, c.RetryDelay, logger)
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, both embedding and extraction use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		Provider:        ProviderOpenAI,
		EmbeddingHost:   defaultHost,
		ExtractionHost:  defaultHost,
		EmbeddingModel:  "embeddinggemma",
		ExtractionModel: "qwen2.5:7b",
		APIVersion:      "2024-06-01",
		Temperature:     0,
		MinMatchScore:   0,
		MaxRetries:      3,
		RetryDelay:      time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// For the openai provider it adds the /v1 suffix to hosts if missing, which
// is required by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
// Other providers only lose trailing slashes.
func (c *Config) Normalize() {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	c.Provider = Provider(strings.ToLower(string(c.Provider)))
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost, c.Provider == ProviderOpenAI)
	c.ExtractionHost = normalizeHost(c.ExtractionHost, c.Provider == ProviderOpenAI)
	if c.EmbeddingDeployment == "" {
		c.EmbeddingDeployment = c.EmbeddingModel
	}
	if c.ExtractionDeployment == "" {
		c.ExtractionDeployment = c.ExtractionModel
	}
}

func normalizeHost(host string, wantV1 bool) string {
	if host == "" {
		return ""
	}
	// Remove trailing slash if present before adding /v1
	host = strings.TrimSuffix(host, "/")
	if wantV1 && !strings.HasSuffix(host, "/v1") {
		host += "/v1"
	}
	return host
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	// Normalize first to ensure hosts are in correct format
	c.Normalize()

	switch c.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderAzure:
	default:
		return fmt.Errorf("ai config: %w: %q", ErrUnknownProvider, c.Provider)
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.ExtractionHost == "" {
		return errors.New("ai config: ExtractionHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ExtractionModel == "" {
		return errors.New("ai config: ExtractionModel is required")
	}
	if c.Provider == ProviderAzure {
		if c.APIKey == "" {
			return errors.New("ai config: APIKey is required for azure")
		}
		if c.APIVersion == "" {
			return errors.New("ai config: APIVersion is required for azure")
		}
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.MinMatchScore < 0 || c.MinMatchScore > 100 {
		return errors.New("ai config: MinMatchScore must be between 0 and 100")
	}
	if c.MaxRetries < 1 {
		return errors.New("ai config: MaxRetries must be at least 1")
	}
	if c.RetryDelay < 0 {
		return errors.New("ai config: RetryDelay cannot be negative")
	}
	return nil
}
