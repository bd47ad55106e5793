// Package agents implements the specialized agents and their structured operations.
package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/agent/observers"
	"github.com/zenai/agentcore/internal/agent/parsers"
	"github.com/zenai/agentcore/internal/agent/prompts"
	"github.com/zenai/agentcore/internal/agent/tools"
	errx "github.com/zenai/agentcore/internal/core/error"
	"github.com/zenai/agentcore/internal/llm"
	"github.com/zenai/agentcore/internal/metrics"
	logx "github.com/zenai/agentcore/pkg/logger"
)

// RunContext is what an agent sees besides its input.
type RunContext struct {
	Bundle   *model.ContextBundle
	Previous model.AgentResults
	// OnChunk, when set, streams the response.
	OnChunk func(string)
}

type Agent interface {
	ID() model.AgentID
	Config() model.AgentConfig
	Run(ctx context.Context, input string, rc RunContext) (string, error)
}

// Base holds what every agent shares: its config, model, prompts and declared tools.
type Base struct {
	id      model.AgentID
	cfg     model.AgentConfig
	llm     llm.Completer
	prompts *prompts.Renderer
	tools   map[string]tool.InvokableTool
	now     func() time.Time
}

// NewBase validates the config against the prompt catalogue and builds declared tools.
func NewBase(id model.AgentID, cfg model.AgentConfig, completer llm.Completer, renderer *prompts.Renderer, registry *tools.Registry) (*Base, error) {
	if completer == nil {
		return nil, errx.Configuration("agent %s has no model client", id)
	}
	if renderer == nil {
		return nil, errx.Configuration("agent %s has no prompt renderer", id)
	}
	if !renderer.Has(cfg.SystemPromptKey) {
		return nil, errx.Configuration("agent %s: unknown system prompt %q", id, cfg.SystemPromptKey)
	}
	if registry == nil {
		registry = tools.NewRegistry(nil, nil)
	}
	set, err := registry.Build(cfg.Tools)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", id, err)
	}
	return &Base{id: id, cfg: cfg, llm: completer, prompts: renderer, tools: set, now: time.Now}, nil
}

func (b *Base) ID() model.AgentID         { return b.id }
func (b *Base) Config() model.AgentConfig { return b.cfg }

// Run issues one model call: system prompt, then the input with context and any
// earlier agent results rendered in.
func (b *Base) Run(ctx context.Context, input string, rc RunContext) (out string, err error) {
	defer func() { metrics.IncAgentRun(string(b.id), "run", err) }()

	logx.Ctx(ctx).Info().Str("agent", string(b.id)).Str("input", clip(input, 100)).Msg("agent executing")

	user, err := b.prompts.Render(ctx, prompts.AgentRun, map[string]any{
		"context":          rc.Bundle.Format(),
		"previous_results": previousSection(rc.Previous),
		"input":            input,
	})
	if err != nil {
		return "", err
	}
	out, err = b.call(ctx, user, rc.OnChunk)
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("agent", string(b.id)).Msg("agent failed")
		return "", err
	}
	logx.Ctx(ctx).Info().Str("agent", string(b.id)).Int("chars", len(out)).Msg("agent completed")
	return out, nil
}

// InvokeTool runs a declared tool with JSON arguments.
func (b *Base) InvokeTool(ctx context.Context, name, argsJSON string) (string, error) {
	t, ok := b.tools[name]
	if !ok || !b.cfg.HasTool(name) {
		return "", errx.Configuration("agent %s does not declare tool %q", b.id, name)
	}
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      name,
		Type:      string(b.id),
		Component: components.ComponentOfTool,
	}, observers.NewToolCallbacks())
	ctx = callbacks.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: argsJSON})
	out, err := t.InvokableRun(ctx, argsJSON)
	if err != nil {
		callbacks.OnError(ctx, err)
		return "", fmt.Errorf("tool %s: %w", name, err)
	}
	callbacks.OnEnd(ctx, &tool.CallbackOutput{Response: out})
	return out, nil
}

// ToolInfos describes the declared tools.
func (b *Base) ToolInfos(ctx context.Context) ([]*schema.ToolInfo, error) {
	return tools.Infos(ctx, b.tools)
}

func (b *Base) call(ctx context.Context, user string, onChunk func(string)) (string, error) {
	system, err := b.prompts.Render(ctx, b.cfg.SystemPromptKey, nil)
	if err != nil {
		return "", err
	}
	return b.llm.Complete(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}, llm.Options{
		Temperature: llm.Temperature(b.cfg.Temperature),
		MaxTokens:   b.cfg.MaxTokens,
		Streaming:   onChunk != nil,
		OnChunk:     onChunk,
	})
}

// text renders key, calls the model and returns cleaned text.
func (b *Base) text(ctx context.Context, op, key string, vars map[string]any) (out string, err error) {
	defer func() { metrics.IncAgentRun(string(b.id), op, err) }()
	user, err := b.prompts.Render(ctx, key, vars)
	if err != nil {
		return "", err
	}
	raw, err := b.call(ctx, user, nil)
	if err != nil {
		return "", err
	}
	return parsers.CleanResponse(raw), nil
}

// object renders key, calls the model and decodes a JSON object of shape into dst.
func (b *Base) object(ctx context.Context, op, key string, vars map[string]any, shape *parsers.Shape, dst any) (err error) {
	defer func() { metrics.IncAgentRun(string(b.id), op, err) }()
	raw, err := b.raw(ctx, key, vars)
	if err != nil {
		return err
	}
	if err := parsers.ParseInto(raw, shape, dst); err != nil {
		return b.malformed(ctx, op, err)
	}
	return nil
}

// array is object for operations that answer with a JSON array.
func (b *Base) array(ctx context.Context, op, key string, vars map[string]any, item *parsers.Shape, dst any) (err error) {
	defer func() { metrics.IncAgentRun(string(b.id), op, err) }()
	raw, err := b.raw(ctx, key, vars)
	if err != nil {
		return err
	}
	if err := parsers.ParseArrayInto(raw, item, dst); err != nil {
		return b.malformed(ctx, op, err)
	}
	return nil
}

func (b *Base) raw(ctx context.Context, key string, vars map[string]any) (string, error) {
	user, err := b.prompts.Render(ctx, key, vars)
	if err != nil {
		return "", err
	}
	return b.call(ctx, user, nil)
}

func (b *Base) malformed(ctx context.Context, op string, err error) error {
	logx.Ctx(ctx).Warn().Err(err).Str("agent", string(b.id)).Str("operation", op).Msg("agent returned malformed output")
	return errx.MalformedAgentOutput(string(b.id), op, err)
}

func previousSection(results model.AgentResults) string {
	if len(results) == 0 {
		return ""
	}
	return "Results from previous agents:\n" + results.Format()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

var _ Agent = (*Base)(nil)
