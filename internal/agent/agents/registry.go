package agents

import (
	"context"
	"fmt"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/agent/prompts"
	"github.com/zenai/agentcore/internal/agent/tools"
	errx "github.com/zenai/agentcore/internal/core/error"
	"github.com/zenai/agentcore/internal/llm"
	"github.com/zenai/agentcore/internal/transcription"
)

// ModelFunc returns the model client for an agent config.
type ModelFunc func(ctx context.Context, cfg model.AgentConfig) (llm.Completer, error)

// Deps are the collaborators shared by every agent.
type Deps struct {
	Prompts     *prompts.Renderer
	Tools       *tools.Registry
	Transcriber transcription.Transcriber
	Model       ModelFunc
}

// Registry holds one instance of each specialized agent.
type Registry struct {
	pm *ProductManager
	ta *TaskAnalyzer
	cr *CodeReviewer
	ms *MeetingSummarizer

	byID map[model.AgentID]Agent
}

// NewRegistry builds all known agents. Every known agent needs a config.
func NewRegistry(ctx context.Context, deps Deps, configs map[model.AgentID]model.AgentConfig) (*Registry, error) {
	if deps.Model == nil {
		return nil, errx.Configuration("agent registry needs a model factory")
	}
	bases := make(map[model.AgentID]*Base, len(model.KnownAgents))
	for _, id := range model.KnownAgents {
		cfg, ok := configs[id]
		if !ok {
			return nil, errx.Configuration("no configuration for agent %s", id)
		}
		completer, err := deps.Model(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("agent %s model: %w", id, err)
		}
		base, err := NewBase(id, cfg, completer, deps.Prompts, deps.Tools)
		if err != nil {
			return nil, err
		}
		bases[id] = base
	}

	r := &Registry{
		pm: &ProductManager{Base: bases[model.ProductManager]},
		ta: &TaskAnalyzer{Base: bases[model.TaskAnalyzer]},
		cr: &CodeReviewer{Base: bases[model.CodeReviewer]},
		ms: &MeetingSummarizer{Base: bases[model.MeetingSummarizer], transcriber: deps.Transcriber},
	}
	r.byID = map[model.AgentID]Agent{
		model.ProductManager:    r.pm,
		model.TaskAnalyzer:      r.ta,
		model.CodeReviewer:      r.cr,
		model.MeetingSummarizer: r.ms,
	}
	return r, nil
}

// Get returns the agent for id.
func (r *Registry) Get(id model.AgentID) (Agent, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// IDs lists registered agents in catalogue order.
func (r *Registry) IDs() []model.AgentID {
	out := make([]model.AgentID, 0, len(r.byID))
	for _, id := range model.KnownAgents {
		if _, ok := r.byID[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (r *Registry) ProductManager() *ProductManager       { return r.pm }
func (r *Registry) TaskAnalyzer() *TaskAnalyzer           { return r.ta }
func (r *Registry) CodeReviewer() *CodeReviewer           { return r.cr }
func (r *Registry) MeetingSummarizer() *MeetingSummarizer { return r.ms }
