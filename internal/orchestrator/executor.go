package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/zenai/agentcore/internal/agent/agents"
	"github.com/zenai/agentcore/internal/agent/model"
	errx "github.com/zenai/agentcore/internal/core/error"
	logx "github.com/zenai/agentcore/pkg/logger"
)

// agentFailure tags an executor error with the agent that produced it.
type agentFailure struct {
	agent model.AgentID
	err   error
}

func (f *agentFailure) Error() string { return fmt.Sprintf("agent %s: %v", f.agent, f.err) }

func (f *agentFailure) Unwrap() error { return f.err }

func (o *Orchestrator) lookup(id model.AgentID) (agents.Agent, error) {
	a, ok := o.agents.Get(id)
	if !ok {
		return nil, &agentFailure{agent: id, err: errx.Configuration("agent %s is not registered", id)}
	}
	return a, nil
}

// runSequential runs agents in requested order. Each agent sees the results of the
// agents before it. r.results holds whatever completed when an agent fails.
func (o *Orchestrator) runSequential(ctx context.Context, r *run) error {
	for _, id := range r.decision.Agents {
		a, err := o.lookup(id)
		if err != nil {
			return err
		}
		logx.Ctx(ctx).Debug().Str("agent", string(id)).Int("previous", len(r.results)).Msg("running agent")
		out, err := a.Run(ctx, r.request, agents.RunContext{
			Bundle:   r.bundle,
			Previous: r.results.Clone(),
		})
		if err != nil {
			return &agentFailure{agent: id, err: err}
		}
		r.results = append(r.results, model.AgentResult{Agent: id, Output: out})
	}
	return nil
}

// runParallel runs every agent against the original context only. The first
// failure cancels the rest and no results are kept.
func (o *Orchestrator) runParallel(ctx context.Context, r *run) error {
	ids := r.decision.Agents
	outputs := make([]string, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		a, err := o.lookup(id)
		if err != nil {
			return err
		}
		g.Go(func() error {
			out, err := a.Run(gctx, r.request, agents.RunContext{Bundle: r.bundle})
			if err != nil {
				return &agentFailure{agent: id, err: err}
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	results := make(model.AgentResults, len(ids))
	for i, id := range ids {
		results[i] = model.AgentResult{Agent: id, Output: outputs[i]}
	}
	r.results = results
	return nil
}
