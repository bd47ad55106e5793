package agents

import (
	"context"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/agent/parsers"
	"github.com/zenai/agentcore/internal/agent/prompts"
)

type Task struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Priority          string   `json:"priority"`
	EstimatedTime     float64  `json:"estimatedTime"`
	Tags              []string `json:"tags"`
	SuggestedAssignee string   `json:"suggestedAssignee,omitempty"`
}

type ProjectHealth struct {
	HealthScore     float64  `json:"healthScore"`
	Status          string   `json:"status"`
	Insights        []string `json:"insights"`
	Risks           []string `json:"risks"`
	Recommendations []string `json:"recommendations"`
}

type Subtask struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	EstimatedTime float64  `json:"estimatedTime"`
	Priority      string   `json:"priority"`
	Dependencies  []string `json:"dependencies"`
}

var (
	taskShape = parsers.NewShape(
		parsers.Field{Name: "title", Type: parsers.TypeString},
		parsers.Field{Name: "description", Type: parsers.TypeString},
		parsers.Field{Name: "priority", Type: parsers.TypeString},
	)
	projectHealthShape = parsers.NewShape(
		parsers.Field{Name: "healthScore", Type: parsers.TypeNumber},
		parsers.Field{Name: "status", Type: parsers.TypeString},
	)
	subtaskShape = parsers.NewShape(
		parsers.Field{Name: "title", Type: parsers.TypeString},
	)
)

// ProductManager organizes projects and turns descriptions into tasks.
type ProductManager struct {
	*Base
}

func (a *ProductManager) CreateTask(ctx context.Context, description, projectID string) (*Task, error) {
	var out Task
	err := a.object(ctx, "createTask", prompts.CreateTask, map[string]any{
		"description": description,
		"project_id":  projectID,
	}, taskShape, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *ProductManager) AnalyzeProjectHealth(ctx context.Context, project model.ProjectSnapshot, tasks []model.TaskSpec) (*ProjectHealth, error) {
	counts := model.CountTasks(tasks, a.now())
	var out ProjectHealth
	err := a.object(ctx, "analyzeProjectHealth", prompts.AnalyzeProjectHealth, map[string]any{
		"name":        project.Name,
		"status":      project.Status,
		"deadline":    project.Deadline,
		"total":       counts.Total,
		"done":        counts.Done,
		"in_progress": counts.InProgress,
		"overdue":     counts.Overdue,
	}, projectHealthShape, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *ProductManager) SuggestTaskBreakdown(ctx context.Context, epic model.TaskSpec) ([]Subtask, error) {
	var out []Subtask
	err := a.array(ctx, "suggestTaskBreakdown", prompts.SuggestTaskBreakdown, map[string]any{
		"title":       epic.Title,
		"description": epic.Description,
	}, subtaskShape, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
