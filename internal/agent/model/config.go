package model

// RateLimits are advisory per-agent limits carried with the configuration.
type RateLimits struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	TokensPerMinute   int `yaml:"tokens_per_minute" json:"tokens_per_minute"`
}

// AgentConfig describes how an agent talks to its model. Loaded once at startup.
type AgentConfig struct {
	Name            string     `yaml:"name" json:"name"`
	ModelType       string     `yaml:"model_type" json:"model_type"`
	ModelName       string     `yaml:"model_name" json:"model_name"`
	Temperature     float32    `yaml:"temperature" json:"temperature"`
	MaxTokens       int        `yaml:"max_tokens" json:"max_tokens"`
	MaxIterations   int        `yaml:"max_iterations" json:"max_iterations"`
	SystemPromptKey string     `yaml:"system_prompt_key" json:"system_prompt_key"`
	Capabilities    []string   `yaml:"capabilities" json:"capabilities"`
	Tools           []string   `yaml:"tools" json:"tools"`
	RateLimits      RateLimits `yaml:"rate_limits" json:"rate_limits"`
}

// HasTool reports whether name is declared in the agent's tool list.
func (c AgentConfig) HasTool(name string) bool {
	for _, t := range c.Tools {
		if t == name {
			return true
		}
	}
	return false
}
