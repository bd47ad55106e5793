// Package tools exposes the agents' side-effecting capabilities as eino tools.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	errx "github.com/zenai/agentcore/internal/core/error"
	"github.com/zenai/agentcore/internal/transcription"
)

// Tool names as declared in agent configs.
const (
	CreateTask          = "create_task"
	AnalyzeProject      = "analyze_project"
	PrioritizeTasks     = "prioritize_tasks"
	EstimateComplexity  = "estimate_complexity"
	SuggestDependencies = "suggest_dependencies"
	AnalyzeCode         = "analyze_code"
	SuggestImprovements = "suggest_improvements"
	TranscribeAudio     = "transcribe_audio"
)

type CreateTaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ProjectID   string   `json:"project_id,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type AnalyzeProjectInput struct {
	ProjectID string `json:"project_id"`
}

type PriorityTask struct {
	Title    string `json:"title"`
	Priority string `json:"priority,omitempty"`
	DueDate  string `json:"due_date,omitempty"`
}

type PrioritizeTasksInput struct {
	Tasks []PriorityTask `json:"tasks"`
}

type EstimateComplexityInput struct {
	Description string `json:"description"`
}

type SuggestDependenciesInput struct {
	Tasks []string `json:"tasks"`
}

type AnalyzeCodeInput struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

type SuggestImprovementsInput struct {
	Code  string `json:"code"`
	Focus string `json:"focus,omitempty"`
}

type TranscribeAudioInput struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
}

// Registry builds tools by name. A nil transcriber leaves transcribe_audio unavailable.
type Registry struct {
	backend     Backend
	transcriber transcription.Transcriber
	builders    map[string]func() tool.InvokableTool
}

func NewRegistry(backend Backend, transcriber transcription.Transcriber) *Registry {
	if backend == nil {
		backend = NopBackend{}
	}
	r := &Registry{backend: backend, transcriber: transcriber}
	r.builders = map[string]func() tool.InvokableTool{
		CreateTask:          r.createTask,
		AnalyzeProject:      r.analyzeProject,
		PrioritizeTasks:     r.prioritizeTasks,
		EstimateComplexity:  r.estimateComplexity,
		SuggestDependencies: r.suggestDependencies,
		AnalyzeCode:         r.analyzeCode,
		SuggestImprovements: r.suggestImprovements,
	}
	if transcriber != nil {
		r.builders[TranscribeAudio] = r.transcribeAudio
	}
	return r
}

// Names lists the tools this registry can build, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for n := range r.builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build returns the named tools in order. Unknown names are a configuration error.
func (r *Registry) Build(names []string) (map[string]tool.InvokableTool, error) {
	out := make(map[string]tool.InvokableTool, len(names))
	for _, n := range names {
		b, ok := r.builders[n]
		if !ok {
			return nil, errx.Configuration("unknown tool %q", n)
		}
		out[n] = b()
	}
	return out, nil
}

// Infos describes the built tools for binding to a chat model.
func Infos(ctx context.Context, set map[string]tool.InvokableTool) ([]*schema.ToolInfo, error) {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	infos := make([]*schema.ToolInfo, 0, len(set))
	for _, n := range names {
		info, err := set[n].Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool %s info: %w", n, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (r *Registry) createTask() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: CreateTask,
			Desc: "Create a new task in the project management system.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"title":       {Type: schema.String, Desc: "Concise, action-oriented task title", Required: true},
				"description": {Type: schema.String, Desc: "What needs to be done"},
				"project_id":  {Type: schema.String, Desc: "Project the task belongs to"},
				"priority":    {Type: schema.String, Desc: "low, medium, high or urgent", Enum: []string{"low", "medium", "high", "urgent"}},
				"tags":        {Type: schema.Array, Desc: "Task tags", ElemInfo: &schema.ParameterInfo{Type: schema.String}},
			}),
		},
		func(ctx context.Context, in *CreateTaskInput) (*Output, error) {
			if in.Title == "" {
				return nil, fmt.Errorf("title is required")
			}
			return r.backend.CreateTask(ctx, in)
		},
	)
}

func (r *Registry) analyzeProject() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: AnalyzeProject,
			Desc: "Analyze project health and provide insights.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"project_id": {Type: schema.String, Desc: "Project identifier", Required: true},
			}),
		},
		func(ctx context.Context, in *AnalyzeProjectInput) (*Output, error) {
			if in.ProjectID == "" {
				return nil, fmt.Errorf("project_id is required")
			}
			return r.backend.AnalyzeProject(ctx, in)
		},
	)
}

func (r *Registry) prioritizeTasks() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: PrioritizeTasks,
			Desc: "Prioritize tasks based on urgency and importance.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"tasks": {
					Type:     schema.Array,
					Desc:     "Tasks to order",
					Required: true,
					ElemInfo: &schema.ParameterInfo{
						Type: schema.Object,
						SubParams: map[string]*schema.ParameterInfo{
							"title":    {Type: schema.String, Required: true},
							"priority": {Type: schema.String},
							"due_date": {Type: schema.String, Desc: "YYYY-MM-DD"},
						},
					},
				},
			}),
		},
		func(ctx context.Context, in *PrioritizeTasksInput) (*Output, error) {
			return r.backend.PrioritizeTasks(ctx, in)
		},
	)
}

func (r *Registry) estimateComplexity() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: EstimateComplexity,
			Desc: "Estimate task complexity on a scale of 1-10.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"description": {Type: schema.String, Desc: "Task description", Required: true},
			}),
		},
		func(ctx context.Context, in *EstimateComplexityInput) (*Output, error) {
			return r.backend.EstimateComplexity(ctx, in)
		},
	)
}

func (r *Registry) suggestDependencies() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: SuggestDependencies,
			Desc: "Identify dependencies between tasks.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"tasks": {Type: schema.Array, Desc: "Task titles", Required: true, ElemInfo: &schema.ParameterInfo{Type: schema.String}},
			}),
		},
		func(ctx context.Context, in *SuggestDependenciesInput) (*Output, error) {
			return r.backend.SuggestDependencies(ctx, in)
		},
	)
}

func (r *Registry) analyzeCode() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: AnalyzeCode,
			Desc: "Analyze code for bugs, security issues, and best practices.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"code":     {Type: schema.String, Desc: "Source code", Required: true},
				"language": {Type: schema.String, Desc: "Programming language"},
			}),
		},
		func(ctx context.Context, in *AnalyzeCodeInput) (*Output, error) {
			return r.backend.AnalyzeCode(ctx, in)
		},
	)
}

func (r *Registry) suggestImprovements() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: SuggestImprovements,
			Desc: "Suggest code improvements and refactoring.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"code":  {Type: schema.String, Desc: "Source code", Required: true},
				"focus": {Type: schema.String, Desc: "Optional focus such as performance or readability"},
			}),
		},
		func(ctx context.Context, in *SuggestImprovementsInput) (*Output, error) {
			return r.backend.SuggestImprovements(ctx, in)
		},
	)
}

func (r *Registry) transcribeAudio() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: TranscribeAudio,
			Desc: "Transcribe a recorded meeting from an audio file path.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"path":     {Type: schema.String, Desc: "Path to an mp3, m4a, wav, webm or mp4 file", Required: true},
				"language": {Type: schema.String, Desc: "ISO-639-1 language code"},
			}),
		},
		func(ctx context.Context, in *TranscribeAudioInput) (*transcription.Transcript, error) {
			return r.transcriber.Transcribe(ctx, in.Path, transcription.Options{Language: in.Language})
		},
	)
}
