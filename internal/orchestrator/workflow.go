package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sort"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/agent/parsers"
	"github.com/zenai/agentcore/internal/agent/prompts"
	errx "github.com/zenai/agentcore/internal/core/error"
	logx "github.com/zenai/agentcore/pkg/logger"
)

// WorkflowStep is one entry of a breakdown.
type WorkflowStep struct {
	Order        int    `json:"order"`
	Action       string `json:"action"`
	Agent        string `json:"agent,omitempty"`
	Dependencies []any  `json:"dependencies,omitempty"`
}

// StepResult pairs a step with the execution it produced.
type StepResult struct {
	Step   int     `json:"step"`
	Action string  `json:"action"`
	Result *Result `json:"result"`
}

type WorkflowResult struct {
	Steps   []WorkflowStep `json:"workflow"`
	Results []StepResult   `json:"results"`
	Summary string         `json:"summary"`
}

// WorkflowError reports the step that failed and the steps completed before it.
type WorkflowError struct {
	Step      int
	Completed []StepResult
	Err       error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("workflow step %d failed after %d completed steps: %v", e.Step, len(e.Completed), e.Err)
}

func (e *WorkflowError) Unwrap() error { return e.Err }

var stepShape = parsers.NewShape(
	parsers.Field{Name: "order", Type: parsers.TypeNumber},
	parsers.Field{Name: "action", Type: parsers.TypeString},
)

// stepSummary is what later steps and the summary call see of an earlier step.
type stepSummary struct {
	Step      int             `json:"step"`
	Action    string          `json:"action"`
	Agents    []model.AgentID `json:"agents"`
	Synthesis string          `json:"synthesis"`
}

// HandleComplexWorkflow breaks request into ordered steps, runs Execute for each
// step and summarizes the run. Steps run strictly in order.
func (o *Orchestrator) HandleComplexWorkflow(ctx context.Context, request string, bundle *model.ContextBundle) (*WorkflowResult, error) {
	steps, err := o.breakdown(ctx, request, bundle)
	if err != nil {
		return nil, err
	}
	logx.Ctx(ctx).Info().Int("steps", len(steps)).Msg("workflow broken down")

	var (
		completed []StepResult
		previous  []stepSummary
	)
	for _, step := range steps {
		stepBundle := withStepMetadata(bundle, request, step.Order, previous)
		res, err := o.Execute(ctx, step.Action, stepBundle)
		if err != nil {
			return nil, &WorkflowError{Step: step.Order, Completed: completed, Err: err}
		}
		completed = append(completed, StepResult{Step: step.Order, Action: step.Action, Result: res})
		previous = append(previous, stepSummary{
			Step:      step.Order,
			Action:    step.Action,
			Agents:    res.Decision.Agents,
			Synthesis: res.Synthesis,
		})
	}

	summary, err := o.summarizeWorkflow(ctx, previous)
	if err != nil {
		return nil, &WorkflowError{Step: len(steps) + 1, Completed: completed, Err: err}
	}
	return &WorkflowResult{Steps: steps, Results: completed, Summary: summary}, nil
}

func (o *Orchestrator) breakdown(ctx context.Context, request string, bundle *model.ContextBundle) ([]WorkflowStep, error) {
	raw, err := o.complete(ctx, prompts.WorkflowBreakdown, map[string]any{
		"request": request,
		"context": bundle.Format(),
	}, nil)
	if err != nil {
		return nil, err
	}
	var steps []WorkflowStep
	if err := parsers.ParseArrayInto(raw, stepShape, &steps); err != nil {
		return nil, errx.MalformedAgentOutput(string(model.Orchestrator), "breakdown", err)
	}
	if len(steps) == 0 {
		cause := errx.SchemaViolation(raw, "[0]", fmt.Errorf("workflow breakdown has no steps"))
		return nil, errx.MalformedAgentOutput(string(model.Orchestrator), "breakdown", cause)
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
	return steps, nil
}

func (o *Orchestrator) summarizeWorkflow(ctx context.Context, steps []stepSummary) (string, error) {
	b, err := json.MarshalIndent(steps, "", "  ")
	if err != nil {
		return "", err
	}
	text, err := o.complete(ctx, prompts.WorkflowSummary, map[string]any{"steps": string(b)}, nil)
	if err != nil {
		return "", err
	}
	return parsers.CleanResponse(text), nil
}

// withStepMetadata copies bundle with the step position and earlier step outputs added.
func withStepMetadata(bundle *model.ContextBundle, request string, step int, previous []stepSummary) *model.ContextBundle {
	out := &model.ContextBundle{Query: request}
	if bundle != nil {
		*out = *bundle
	}
	out.Metadata = make(map[string]any, len(out.Metadata)+2)
	if bundle != nil {
		maps.Copy(out.Metadata, bundle.Metadata)
	}
	out.Metadata["step"] = step
	if len(previous) > 0 {
		out.Metadata["previousSteps"] = previous
	}
	return out
}
