// Package config loads process configuration from the environment and the
// optional agent catalogue file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/zenai/agentcore/internal/core"
	errx "github.com/zenai/agentcore/internal/core/error"
	pkgredis "github.com/zenai/agentcore/pkg/redis"
)

// AppConfig defines every configurable parameter, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config
	// CacheBackend selects conversation storage: redis or memory.
	CacheBackend string `envconfig:"CACHE_BACKEND" default:"redis"`
	MetricsAddr  string `envconfig:"METRICS_ADDR"`

	// LLM providers
	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL  string `envconfig:"GEMINI_BASE_URL"`
	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `envconfig:"OPENAI_BASE_URL"`
	LLM            LLMConfig
	ThinkingBudget int32 `envconfig:"GEMINI_THINKING_BUDGET" default:"0"`

	Conversation ConversationConfig
	Context      ContextConfig
	Vector       VectorConfig
	Whisper      WhisperConfig
	Retry        RetryConfig

	// AgentsFile optionally overrides the built-in agent catalogue.
	AgentsFile string `envconfig:"AGENTS_FILE"`
}

type LLMConfig struct {
	Provider string        `envconfig:"LLM_PROVIDER" default:"gemini"`
	Model    string        `envconfig:"LLM_MODEL" default:"gemini-2.5-flash"`
	Timeout  time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
}

type ConversationConfig struct {
	TTL         time.Duration `envconfig:"CONVERSATION_TTL" default:"24h"`
	MaxMessages int           `envconfig:"CONVERSATION_MAX_MESSAGES" default:"20"`
}

type ContextConfig struct {
	MaxChars int `envconfig:"CONTEXT_MAX_CHARS" default:"4000"`
	TopK     int `envconfig:"CONTEXT_TOP_K" default:"3"`
}

type VectorConfig struct {
	// Path empty disables document retrieval.
	Path           string `envconfig:"VECTOR_DB_PATH" default:"agentcore.db"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
}

type WhisperConfig struct {
	Model    string        `envconfig:"WHISPER_MODEL" default:"whisper-1"`
	Language string        `envconfig:"WHISPER_LANGUAGE" default:"en"`
	Timeout  time.Duration `envconfig:"TRANSCRIPTION_TIMEOUT" default:"5m"`
}

// RetryConfig is the caller-side retry policy. One attempt means no retry.
type RetryConfig struct {
	Attempts uint          `envconfig:"RETRY_ATTEMPTS" default:"1"`
	Delay    time.Duration `envconfig:"RETRY_DELAY" default:"1s"`
}

// Load reads envFile when present and processes the environment into an AppConfig.
func Load(envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errx.Configuration("load %s: %v", envFile, err)
		}
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errx.Configuration("process environment: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) String() string {
	return fmt.Sprintf("env=%s provider=%s model=%s cache=%s", c.Environment, c.LLM.Provider, c.LLM.Model, c.CacheBackend)
}
