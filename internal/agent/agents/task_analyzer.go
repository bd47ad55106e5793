package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/agent/parsers"
	"github.com/zenai/agentcore/internal/agent/prompts"
)

type ComplexityAnalysis struct {
	ComplexityScore float64  `json:"complexityScore"`
	EstimatedHours  float64  `json:"estimatedHours"`
	SkillsRequired  []string `json:"skillsRequired"`
	Dependencies    []string `json:"dependencies"`
	Risks           []string `json:"risks"`
	Recommendations []string `json:"recommendations"`
	Blockers        []string `json:"blockers"`
}

type TaskEstimate struct {
	TaskID     string  `json:"taskId"`
	Hours      float64 `json:"hours"`
	Confidence string  `json:"confidence"`
}

type EffortEstimate struct {
	TotalHours    float64        `json:"totalHours"`
	TaskEstimates []TaskEstimate `json:"taskEstimates"`
	CriticalPath  []string       `json:"criticalPath"`
}

var (
	complexityShape = parsers.NewShape(
		parsers.Field{Name: "complexityScore", Type: parsers.TypeNumber},
		parsers.Field{Name: "estimatedHours", Type: parsers.TypeNumber},
	)
	effortShape = parsers.NewShape(
		parsers.Field{Name: "totalHours", Type: parsers.TypeNumber},
		parsers.Field{Name: "taskEstimates", Type: parsers.TypeArray},
	)
)

// TaskAnalyzer estimates complexity, effort and dependencies.
type TaskAnalyzer struct {
	*Base
}

func (a *TaskAnalyzer) AnalyzeComplexity(ctx context.Context, task model.TaskSpec, projectContext string) (*ComplexityAnalysis, error) {
	var out ComplexityAnalysis
	err := a.object(ctx, "analyzeComplexity", prompts.AnalyzeComplexity, map[string]any{
		"title":           task.Title,
		"description":     task.Description,
		"project_context": projectContext,
	}, complexityShape, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *TaskAnalyzer) EstimateEffort(ctx context.Context, tasks []model.TaskSpec) (*EffortEstimate, error) {
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		id := t.ID
		if id == "" {
			id = fmt.Sprintf("task-%d", i+1)
		}
		lines[i] = fmt.Sprintf("- [%s] %s: %s", id, t.Title, t.Description)
	}
	var out EffortEstimate
	err := a.object(ctx, "estimateEffort", prompts.EstimateEffort, map[string]any{
		"tasks": strings.Join(lines, "\n"),
	}, effortShape, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
