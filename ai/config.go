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
	"strings"
	"time"
)

const (
	// ProviderHuggingFace selects the HuggingFace feature-extraction transport.
	ProviderHuggingFace = "huggingface"
	// ProviderOpenAI selects an OpenAI-compatible embeddings transport.
	ProviderOpenAI = "openai"

	// DefaultDimension is the vector length of the reference embedding model.
	DefaultDimension = 384
)

// Config holds configuration for the embedding service.
type Config struct {
	// Provider names the transport: "huggingface" or "openai".
	Provider string

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "https://router.huggingface.co/hf-inference" or "http://localhost:11434/v1"
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "sentence-transformers/all-MiniLM-L6-v2"
	EmbeddingModel string

	// APIKey is sent as a bearer token. Optional for local services.
	APIKey string

	// Dimension is the expected embedding length. Responses of any other
	// length are rejected.
	Dimension int

	// RequestTimeout bounds every single embedding call.
	RequestTimeout time.Duration

	// RequestDelay is the pause between consecutive requests of a batch.
	RequestDelay time.Duration

	// RetryCooldown is the wait before a failed batch item is retried.
	RetryCooldown time.Duration

	// MaxRetries is how many times a failed batch item is retried.
	// Default: 1
	MaxRetries int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the transport name.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithDimension sets the expected embedding length.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// WithRequestTimeout sets the per-call timeout.
func WithRequestTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = d
	}
}

// WithRequestDelay sets the pause between batch requests.
func WithRequestDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestDelay = d
	}
}

// WithRetryCooldown sets the wait before retrying a failed batch item.
func WithRetryCooldown(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryCooldown = d
	}
}

// WithMaxRetries sets how many times a failed batch item is retried.
func WithMaxRetries(n int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// DefaultConfig returns a Config for the hosted HuggingFace inference API and
// the all-MiniLM-L6-v2 model.
func DefaultConfig() *Config {
	return &Config{
		Provider:       ProviderHuggingFace,
		EmbeddingHost:  "https://router.huggingface.co/hf-inference",
		EmbeddingModel: "sentence-transformers/all-MiniLM-L6-v2",
		Dimension:      DefaultDimension,
		RequestTimeout: 30 * time.Second,
		RequestDelay:   100 * time.Millisecond,
		RetryCooldown:  2 * time.Second,
		MaxRetries:     1,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOpenAI),
//	    WithEmbeddingHost("http://localhost:11434"),
//	    WithEmbeddingModel("all-minilm"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// Trailing slashes are removed from the host, and OpenAI-compatible hosts get
// the /v1 suffix most servers (Ollama, LocalAI, vLLM) require.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderHuggingFace
	}
	c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
	if c.Provider == ProviderOpenAI && c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Provider != ProviderHuggingFace && c.Provider != ProviderOpenAI {
		return errors.New("ai config: Provider must be huggingface or openai")
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.Dimension <= 0 {
		return errors.New("ai config: Dimension must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("ai config: RequestTimeout must be positive")
	}
	if c.RequestDelay < 0 {
		return errors.New("ai config: RequestDelay cannot be negative")
	}
	if c.RetryCooldown < 0 {
		return errors.New("ai config: RetryCooldown cannot be negative")
	}
	if c.MaxRetries < 0 {
		return errors.New("ai config: MaxRetries cannot be negative")
	}
	return nil
}
