package config

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/agent/prompts"
	"github.com/zenai/agentcore/internal/agent/tools"
	errx "github.com/zenai/agentcore/internal/core/error"
)

// DefaultAgentConfigs is the built-in catalogue. Every entry uses provider and modelName.
func DefaultAgentConfigs(provider, modelName string) map[model.AgentID]model.AgentConfig {
	return map[model.AgentID]model.AgentConfig{
		model.ProductManager: {
			Name:            string(model.ProductManager),
			ModelType:       provider,
			ModelName:       modelName,
			Temperature:     0.7,
			MaxTokens:       2000,
			MaxIterations:   5,
			SystemPromptKey: prompts.SystemProductManager,
			Capabilities:    []string{"task_creation", "project_analysis", "prioritization", "roadmap_planning", "risk_assessment"},
			Tools:           []string{tools.CreateTask, tools.AnalyzeProject, tools.PrioritizeTasks},
			RateLimits:      model.RateLimits{RequestsPerMinute: 30, TokensPerMinute: 90000},
		},
		model.TaskAnalyzer: {
			Name:            string(model.TaskAnalyzer),
			ModelType:       provider,
			ModelName:       modelName,
			Temperature:     0.3,
			MaxTokens:       1500,
			MaxIterations:   3,
			SystemPromptKey: prompts.SystemTaskAnalyzer,
			Capabilities:    []string{"complexity_estimation", "dependency_analysis", "effort_estimation", "risk_identification"},
			Tools:           []string{tools.EstimateComplexity, tools.SuggestDependencies},
			RateLimits:      model.RateLimits{RequestsPerMinute: 40, TokensPerMinute: 60000},
		},
		model.CodeReviewer: {
			Name:            string(model.CodeReviewer),
			ModelType:       provider,
			ModelName:       modelName,
			Temperature:     0.3,
			MaxTokens:       3000,
			MaxIterations:   5,
			SystemPromptKey: prompts.SystemCodeReviewer,
			Capabilities:    []string{"code_quality_check", "security_analysis", "performance_review", "best_practices", "refactoring_suggestions"},
			Tools:           []string{tools.AnalyzeCode, tools.SuggestImprovements},
			RateLimits:      model.RateLimits{RequestsPerMinute: 20, TokensPerMinute: 60000},
		},
		model.MeetingSummarizer: {
			Name:            string(model.MeetingSummarizer),
			ModelType:       provider,
			ModelName:       modelName,
			Temperature:     0.3,
			MaxTokens:       3000,
			MaxIterations:   3,
			SystemPromptKey: prompts.SystemMeetingSummarizer,
			Capabilities:    []string{"transcription_analysis", "action_item_extraction", "meeting_summary", "decision_tracking", "participant_analysis"},
			Tools:           []string{tools.TranscribeAudio},
			RateLimits:      model.RateLimits{RequestsPerMinute: 10, TokensPerMinute: 90000},
		},
		model.Orchestrator: {
			Name:            string(model.Orchestrator),
			ModelType:       provider,
			ModelName:       modelName,
			Temperature:     0.7,
			MaxTokens:       2000,
			MaxIterations:   10,
			SystemPromptKey: prompts.SystemOrchestrator,
			Capabilities:    []string{"agent_routing", "workflow_coordination", "result_synthesis", "multi_agent_collaboration"},
			RateLimits:      model.RateLimits{RequestsPerMinute: 30, TokensPerMinute: 90000},
		},
	}
}

// agentsFile is the YAML layout of an agent catalogue override.
type agentsFile struct {
	Agents map[string]model.AgentConfig `yaml:"agents"`
}

// LoadAgentConfigs returns the default catalogue with entries from path merged over
// it. A missing file yields the defaults. Override entries replace whole agents;
// empty model fields inherit provider and modelName.
func LoadAgentConfigs(path, provider, modelName string) (map[model.AgentID]model.AgentConfig, error) {
	configs := DefaultAgentConfigs(provider, modelName)
	if path == "" {
		return configs, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return configs, nil
		}
		return nil, errx.Configuration("read agents file: %v", err)
	}
	return mergeAgentConfigs(configs, data, provider, modelName)
}

func mergeAgentConfigs(configs map[model.AgentID]model.AgentConfig, data []byte, provider, modelName string) (map[model.AgentID]model.AgentConfig, error) {
	var file agentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errx.Configuration("parse agents file: %v", err)
	}
	for name, cfg := range file.Agents {
		id, ok := model.ParseAgentID(name)
		if !ok {
			if name != string(model.Orchestrator) {
				return nil, errx.Configuration("agents file: unknown agent %q", name)
			}
			id = model.Orchestrator
		}
		if cfg.Name == "" {
			cfg.Name = string(id)
		}
		if cfg.ModelType == "" {
			cfg.ModelType = provider
		}
		if cfg.ModelName == "" {
			cfg.ModelName = modelName
		}
		configs[id] = cfg
	}
	return configs, nil
}

// WithoutTool drops name from every agent's tool list. Used when the backing
// collaborator is not configured.
func WithoutTool(configs map[model.AgentID]model.AgentConfig, name string) []model.AgentID {
	var changed []model.AgentID
	for id, cfg := range configs {
		if !cfg.HasTool(name) {
			continue
		}
		kept := make([]string, 0, len(cfg.Tools)-1)
		for _, t := range cfg.Tools {
			if t != name {
				kept = append(kept, t)
			}
		}
		cfg.Tools = kept
		configs[id] = cfg
		changed = append(changed, id)
	}
	return changed
}
