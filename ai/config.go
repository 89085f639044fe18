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

// Config describes the OpenAI-compatible services used to score search
// results: a chat model that judges relevance and an embedding model used
// for semantic reranking. Both default to a local Ollama instance.
type Config struct {
	EmbeddingHost  string
	ClassifierHost string

	// EmbeddingModel names the model used for text embeddings,
	// e.g. "embeddinggemma" or "text-embedding-3-small".
	EmbeddingModel string

	// ClassifierModel names the chat model that scores result batches,
	// e.g. "qwen2.5:3b" or "gpt-4o-mini".
	ClassifierModel string

	// Token is the API token. Local servers accept any value.
	Token string

	// MaxResponseTokens bounds the classifier's response. Prioritizer batch sizes
	// are chosen so a full batch of judgements fits inside it.
	MaxResponseTokens int

	// RequestTimeout bounds a single HTTP call to either service. Callers
	// still pass their own deadlines through the context.
	RequestTimeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithClassifierHost sets the classifier service host URL.
func WithClassifierHost(host string) ConfigOption {
	return func(c *Config) {
		c.ClassifierHost = host
	}
}

// WithHost points both services at the same server.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ClassifierHost = host
	}
}

func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

func WithClassifierModel(model string) ConfigOption {
	return func(c *Config) {
		c.ClassifierModel = model
	}
}

func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithMaxResponseTokens bounds the classifier response size.
func WithMaxResponseTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxResponseTokens = n
	}
}

// WithRequestTimeout bounds each HTTP call to the AI services.
func WithRequestTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = d
	}
}

// DefaultConfig returns a Config for a local Ollama server.
func DefaultConfig() *Config {
	const localHost = "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:     localHost,
		ClassifierHost:    localHost,
		EmbeddingModel:    "embeddinggemma",
		ClassifierModel:   "qwen2.5:3b",
		Token:             "none",
		MaxResponseTokens: 512,
		RequestTimeout:    30 * time.Second,
	}
}

// NewConfig applies opts on top of DefaultConfig.
//
//	cfg := NewConfig(
//	    WithHost("http://gpu-box:11434"),
//	    WithClassifierModel("llama3.1:8b"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize appends the /v1 API prefix expected by OpenAI-compatible servers
// (Ollama, LocalAI, vLLM) to hosts that lack it.
func (c *Config) Normalize() {
	c.EmbeddingHost = withAPIPrefix(c.EmbeddingHost)
	c.ClassifierHost = withAPIPrefix(c.ClassifierHost)
}

func withAPIPrefix(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate normalizes c and reports the first missing or out-of-range field.
func (c *Config) Validate() error {
	c.Normalize()

	switch {
	case c.EmbeddingHost == "":
		return errors.New("ai config: EmbeddingHost is required")
	case c.ClassifierHost == "":
		return errors.New("ai config: ClassifierHost is required")
	case c.EmbeddingModel == "":
		return errors.New("ai config: EmbeddingModel is required")
	case c.ClassifierModel == "":
		return errors.New("ai config: ClassifierModel is required")
	case c.MaxResponseTokens < 64 || c.MaxResponseTokens > 8192:
		return errors.New("ai config: MaxResponseTokens must be between 64 and 8192")
	case c.RequestTimeout <= 0:
		return errors.New("ai config: RequestTimeout must be positive")
	}
	return nil
}
