// Package orchestrator routes a request to agents, runs them and merges their output.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zenai/agentcore/internal/agent/agents"
	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/agent/observers"
	"github.com/zenai/agentcore/internal/agent/parsers"
	"github.com/zenai/agentcore/internal/agent/prompts"
	errx "github.com/zenai/agentcore/internal/core/error"
	"github.com/zenai/agentcore/internal/llm"
	"github.com/zenai/agentcore/internal/metrics"
	logx "github.com/zenai/agentcore/pkg/logger"
)

const (
	nodeRoute      = "route"
	nodeExecute    = "execute"
	nodeSynthesize = "synthesize"
)

// Agents is the agent set the orchestrator dispatches to.
type Agents interface {
	Get(id model.AgentID) (agents.Agent, bool)
	IDs() []model.AgentID
}

type Config struct {
	// Agent carries the orchestrator's own sampling settings and system prompt key.
	Agent   model.AgentConfig
	Model   llm.Completer
	Prompts *prompts.Renderer
	Agents  Agents
}

// Orchestrator is safe for concurrent use; every Execute call owns its own run.
type Orchestrator struct {
	cfg      model.AgentConfig
	llm      llm.Completer
	prompts  *prompts.Renderer
	agents   Agents
	runnable compose.Runnable[*run, *run]
}

// ExecuteOption tunes one Execute call.
type ExecuteOption func(*run)

// WithSynthesisStream streams the synthesis text to fn as it arrives.
func WithSynthesisStream(fn func(string)) ExecuteOption {
	return func(r *run) { r.onChunk = fn }
}

// run is the per-call value threaded through the graph.
type run struct {
	request string
	bundle  *model.ContextBundle
	onChunk func(string)

	state     State
	decision  *model.RoutingDecision
	skipped   []string
	results   model.AgentResults
	synthesis string
	timings   Timings
	failure   *ExecutionError
}

var routingShape = parsers.NewShape(
	parsers.Field{Name: "agents", Type: parsers.TypeArray},
)

// defaultWorkflow runs when the router omits the workflow or names an unknown one.
const defaultWorkflow = model.Parallel

type routingReply struct {
	Agents         []any  `json:"agents"`
	Workflow       any    `json:"workflow"`
	Reasoning      string `json:"reasoning"`
	ExpectedOutput string `json:"expected_output"`
}

// New compiles the route → execute → synthesize graph.
func New(ctx context.Context, cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Model == nil:
		return nil, errx.Configuration("orchestrator has no model client")
	case cfg.Prompts == nil:
		return nil, errx.Configuration("orchestrator has no prompt renderer")
	case cfg.Agents == nil:
		return nil, errx.Configuration("orchestrator has no agents")
	}
	if cfg.Agent.SystemPromptKey == "" {
		cfg.Agent.SystemPromptKey = prompts.SystemOrchestrator
	}
	if !cfg.Prompts.Has(cfg.Agent.SystemPromptKey) {
		return nil, errx.Configuration("orchestrator: unknown system prompt %q", cfg.Agent.SystemPromptKey)
	}

	o := &Orchestrator{cfg: cfg.Agent, llm: cfg.Model, prompts: cfg.Prompts, agents: cfg.Agents}

	g := compose.NewGraph[*run, *run]()
	nodes := []struct {
		key string
		fn  func(context.Context, *run) (*run, error)
	}{
		{nodeRoute, o.route},
		{nodeExecute, o.execute},
		{nodeSynthesize, o.synthesize},
	}
	for _, n := range nodes {
		if err := g.AddLambdaNode(n.key, compose.InvokableLambda(n.fn), compose.WithNodeName(n.key)); err != nil {
			return nil, fmt.Errorf("add %s node: %w", n.key, err)
		}
	}
	edges := [][2]string{
		{compose.START, nodeRoute},
		{nodeRoute, nodeExecute},
		{nodeExecute, nodeSynthesize},
		{nodeSynthesize, compose.END},
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", e[0], e[1], err)
		}
	}

	runnable, err := g.Compile(ctx, compose.WithGraphName("orchestrator"))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling orchestrator graph")
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	o.runnable = runnable
	return o, nil
}

// Execute routes request, runs the chosen agents and synthesizes one answer.
// Failures return *ExecutionError wrapping the cause.
func (o *Orchestrator) Execute(ctx context.Context, request string, bundle *model.ContextBundle, opts ...ExecuteOption) (*Result, error) {
	if bundle == nil {
		bundle = &model.ContextBundle{Query: request}
	}
	r := &run{request: request, bundle: bundle, state: Idle}
	for _, opt := range opts {
		opt(r)
	}

	start := time.Now()
	out, err := o.runnable.Invoke(ctx, r, compose.WithCallbacks(observers.NewAllCallbacks()))
	r.timings.Total = time.Since(start)

	workflow := ""
	if r.decision != nil {
		workflow = string(r.decision.Workflow)
	}
	if err != nil {
		execErr := r.failure
		if execErr == nil {
			execErr = o.fail(ctx, r, r.state, "", err)
		}
		metrics.ObserveOrchestration(workflow, start, execErr)
		return nil, execErr
	}
	metrics.ObserveOrchestration(workflow, start, nil)
	if out == nil {
		out = r
	}
	return &Result{
		Decision:  *out.decision,
		Results:   out.results,
		Synthesis: out.synthesis,
		Skipped:   out.skipped,
		State:     out.state,
		Timings:   out.timings,
	}, nil
}

func (o *Orchestrator) transition(ctx context.Context, r *run, next State) {
	logx.Ctx(ctx).Debug().Stringer("from", r.state).Stringer("to", next).Msg("orchestrator state")
	r.state = next
}

// fail moves r to Failed and records the error the caller will see.
func (o *Orchestrator) fail(ctx context.Context, r *run, in State, agent model.AgentID, err error) *ExecutionError {
	if in == Idle || in == Done || in == Failed {
		in = Routing
	}
	o.transition(ctx, r, Failed)
	e := &ExecutionError{
		State:    Failed,
		FailedIn: in,
		Agent:    agent,
		Decision: r.decision,
		Partial:  r.results.Clone(),
		Skipped:  r.skipped,
		Err:      err,
	}
	r.failure = e
	logx.Ctx(ctx).Error().Err(err).Stringer("stage", in).Str("agent", string(agent)).Msg("orchestration failed")
	return e
}

func (o *Orchestrator) route(ctx context.Context, r *run) (*run, error) {
	o.transition(ctx, r, Routing)
	start := time.Now()
	defer func() { r.timings.Routing = time.Since(start) }()

	decision, skipped, err := o.Route(ctx, r.request, r.bundle)
	if err != nil {
		return nil, o.fail(ctx, r, Routing, "", err)
	}
	r.decision = decision
	r.skipped = skipped
	return r, nil
}

// Route makes the routing call and validates its decision. Unknown agents are
// dropped and returned separately.
func (o *Orchestrator) Route(ctx context.Context, request string, bundle *model.ContextBundle) (*model.RoutingDecision, []string, error) {
	ids := o.agents.IDs()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	raw, err := o.complete(ctx, prompts.Routing, map[string]any{
		"request": request,
		"context": bundle.Format(),
		"agents":  strings.Join(names, ", "),
	}, nil)
	if err != nil {
		return nil, nil, err
	}

	var reply routingReply
	if err := parsers.ParseInto(raw, routingShape, &reply); err != nil {
		return nil, nil, err
	}
	decision := &model.RoutingDecision{
		Reasoning:      reply.Reasoning,
		ExpectedOutput: reply.ExpectedOutput,
	}
	named, _ := reply.Workflow.(string)
	if workflow, err := model.ParseWorkflow(named); err == nil {
		decision.Workflow = workflow
	} else {
		decision.Workflow = defaultWorkflow
		decision.WorkflowDefaulted = true
		logx.Ctx(ctx).Warn().Interface("workflow", reply.Workflow).
			Str("default", string(defaultWorkflow)).
			Msg("router gave no usable workflow, using default")
	}
	var skipped []string
	seen := make(map[model.AgentID]bool, len(reply.Agents))
	for _, v := range reply.Agents {
		name, _ := v.(string)
		if name == "" {
			name = fmt.Sprint(v)
		}
		id, ok := model.ParseAgentID(name)
		if ok {
			_, ok = o.agents.Get(id)
		}
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		if !seen[id] {
			seen[id] = true
			decision.Agents = append(decision.Agents, id)
		}
	}
	if len(skipped) > 0 {
		logx.Ctx(ctx).Warn().Strs("skipped", skipped).Msg("router named unknown agents")
	}
	if len(decision.Agents) == 0 {
		cause := errx.SchemaViolation(raw, "agents", fmt.Errorf("no known agents in routing decision"))
		return nil, skipped, errx.MalformedAgentOutput(string(model.Orchestrator), "route", cause)
	}
	logx.Ctx(ctx).Info().
		Str("workflow", string(decision.Workflow)).
		Interface("agents", decision.Agents).
		Msg("request routed")
	return decision, skipped, nil
}

func (o *Orchestrator) execute(ctx context.Context, r *run) (*run, error) {
	o.transition(ctx, r, Executing)
	start := time.Now()
	defer func() { r.timings.Executing = time.Since(start) }()

	var err error
	switch r.decision.Workflow {
	case model.Parallel:
		err = o.runParallel(ctx, r)
	default:
		err = o.runSequential(ctx, r)
	}
	if err != nil {
		var af *agentFailure
		if errors.As(err, &af) {
			return nil, o.fail(ctx, r, Executing, af.agent, af.err)
		}
		return nil, o.fail(ctx, r, Executing, "", err)
	}
	return r, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, r *run) (*run, error) {
	o.transition(ctx, r, Synthesizing)
	start := time.Now()
	defer func() { r.timings.Synthesizing = time.Since(start) }()

	text, err := o.complete(ctx, prompts.Synthesis, map[string]any{
		"request": r.request,
		"results": r.results.Format(),
	}, r.onChunk)
	if err != nil {
		return nil, o.fail(ctx, r, Synthesizing, "", err)
	}
	r.synthesis = parsers.CleanResponse(text)
	o.transition(ctx, r, Done)
	return r, nil
}

// complete makes one orchestrator model call with the system prompt and template key.
func (o *Orchestrator) complete(ctx context.Context, key string, vars map[string]any, onChunk func(string)) (string, error) {
	system, err := o.prompts.Render(ctx, o.cfg.SystemPromptKey, nil)
	if err != nil {
		return "", err
	}
	user, err := o.prompts.Render(ctx, key, vars)
	if err != nil {
		return "", err
	}
	return o.llm.Complete(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}, llm.Options{
		Temperature: llm.Temperature(o.cfg.Temperature),
		MaxTokens:   o.cfg.MaxTokens,
		Streaming:   onChunk != nil,
		OnChunk:     onChunk,
	})
}
