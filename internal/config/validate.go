package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/agent/prompts"
	errx "github.com/zenai/agentcore/internal/core/error"
	"github.com/zenai/agentcore/internal/llm"
)

// Validate reports every invalid setting at once.
func (c *AppConfig) Validate() error {
	var result *multierror.Error
	switch strings.ToLower(c.CacheBackend) {
	case "redis", "memory":
	default:
		result = multierror.Append(result, fmt.Errorf("CACHE_BACKEND must be redis or memory, got %q", c.CacheBackend))
	}
	provider, err := llm.ParseProvider(c.LLM.Provider)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("LLM_PROVIDER: %w", err))
	}
	if c.LLM.Model == "" {
		result = multierror.Append(result, fmt.Errorf("LLM_MODEL is required"))
	}
	if provider == llm.Gemini && c.GeminiAPIKey == "" {
		result = multierror.Append(result, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider"))
	}
	if provider == llm.OpenAI && c.OpenAIAPIKey == "" {
		result = multierror.Append(result, fmt.Errorf("OPENAI_API_KEY is required for the openai provider"))
	}
	if c.Conversation.MaxMessages <= 0 {
		result = multierror.Append(result, fmt.Errorf("CONVERSATION_MAX_MESSAGES must be positive"))
	}
	if c.Conversation.TTL < 0 {
		result = multierror.Append(result, fmt.Errorf("CONVERSATION_TTL must not be negative"))
	}
	if c.Context.MaxChars <= 0 {
		result = multierror.Append(result, fmt.Errorf("CONTEXT_MAX_CHARS must be positive"))
	}
	if c.Retry.Attempts == 0 {
		result = multierror.Append(result, fmt.Errorf("RETRY_ATTEMPTS must be at least 1"))
	}
	return wrap(result)
}

// ValidateAgents checks that every known agent and the orchestrator are configured
// with usable sampling settings and a system prompt from the catalogue.
func ValidateAgents(configs map[model.AgentID]model.AgentConfig, renderer *prompts.Renderer) error {
	var result *multierror.Error
	for _, id := range append(append([]model.AgentID{}, model.KnownAgents...), model.Orchestrator) {
		cfg, ok := configs[id]
		if !ok {
			result = multierror.Append(result, fmt.Errorf("%s: missing configuration", id))
			continue
		}
		if cfg.Name == "" {
			result = multierror.Append(result, fmt.Errorf("%s: name is required", id))
		}
		if _, err := llm.ParseProvider(cfg.ModelType); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: model_type: %w", id, err))
		}
		if cfg.ModelName == "" {
			result = multierror.Append(result, fmt.Errorf("%s: model_name is required", id))
		}
		if cfg.Temperature < 0 || cfg.Temperature > 2 {
			result = multierror.Append(result, fmt.Errorf("%s: temperature %.2f outside [0,2]", id, cfg.Temperature))
		}
		if cfg.MaxTokens <= 0 {
			result = multierror.Append(result, fmt.Errorf("%s: max_tokens must be positive", id))
		}
		if len(cfg.Capabilities) == 0 {
			result = multierror.Append(result, fmt.Errorf("%s: capabilities are required", id))
		}
		if renderer != nil && !renderer.Has(cfg.SystemPromptKey) {
			result = multierror.Append(result, fmt.Errorf("%s: unknown system prompt %q", id, cfg.SystemPromptKey))
		}
	}
	return wrap(result)
}

func wrap(result *multierror.Error) error {
	if err := result.ErrorOrNil(); err != nil {
		return errx.Configuration("%w", err)
	}
	return nil
}
