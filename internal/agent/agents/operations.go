package agents

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/agent/observers"
	errx "github.com/zenai/agentcore/internal/core/error"
)

// Operation is one structured agent operation. The set is closed: each struct
// below names its agent and Perform dispatches on the concrete type.
type Operation interface {
	Agent() model.AgentID
	Name() string
	isOperation()
}

type CreateTaskOp struct {
	Description string
	ProjectID   string
}

type AnalyzeProjectHealthOp struct {
	Project model.ProjectSnapshot
	Tasks   []model.TaskSpec
}

type SuggestTaskBreakdownOp struct {
	Epic model.TaskSpec
}

type AnalyzeComplexityOp struct {
	Task           model.TaskSpec
	ProjectContext string
}

type EstimateEffortOp struct {
	Tasks []model.TaskSpec
}

type ReviewCodeOp struct {
	Code        string
	Language    string
	Description string
}

type SuggestRefactoringOp struct {
	Code     string
	Language string
}

type DetectSecurityIssuesOp struct {
	Code     string
	Language string
}

type GenerateSummaryOp struct {
	Transcript string
	Meeting    model.MeetingInfo
}

type ExtractActionItemsOp struct {
	Transcript string
}

type GenerateMeetingReportOp struct {
	Data any
}

type TranscribeAndSummarizeOp struct {
	Path    string
	Meeting model.MeetingInfo
}

func (CreateTaskOp) Agent() model.AgentID             { return model.ProductManager }
func (AnalyzeProjectHealthOp) Agent() model.AgentID   { return model.ProductManager }
func (SuggestTaskBreakdownOp) Agent() model.AgentID   { return model.ProductManager }
func (AnalyzeComplexityOp) Agent() model.AgentID      { return model.TaskAnalyzer }
func (EstimateEffortOp) Agent() model.AgentID         { return model.TaskAnalyzer }
func (ReviewCodeOp) Agent() model.AgentID             { return model.CodeReviewer }
func (SuggestRefactoringOp) Agent() model.AgentID     { return model.CodeReviewer }
func (DetectSecurityIssuesOp) Agent() model.AgentID   { return model.CodeReviewer }
func (GenerateSummaryOp) Agent() model.AgentID        { return model.MeetingSummarizer }
func (ExtractActionItemsOp) Agent() model.AgentID     { return model.MeetingSummarizer }
func (GenerateMeetingReportOp) Agent() model.AgentID  { return model.MeetingSummarizer }
func (TranscribeAndSummarizeOp) Agent() model.AgentID { return model.MeetingSummarizer }

func (CreateTaskOp) Name() string             { return "createTask" }
func (AnalyzeProjectHealthOp) Name() string   { return "analyzeProjectHealth" }
func (SuggestTaskBreakdownOp) Name() string   { return "suggestTaskBreakdown" }
func (AnalyzeComplexityOp) Name() string      { return "analyzeComplexity" }
func (EstimateEffortOp) Name() string         { return "estimateEffort" }
func (ReviewCodeOp) Name() string             { return "reviewCode" }
func (SuggestRefactoringOp) Name() string     { return "suggestRefactoring" }
func (DetectSecurityIssuesOp) Name() string   { return "detectSecurityIssues" }
func (GenerateSummaryOp) Name() string        { return "generateSummary" }
func (ExtractActionItemsOp) Name() string     { return "extractActionItems" }
func (GenerateMeetingReportOp) Name() string  { return "generateMeetingReport" }
func (TranscribeAndSummarizeOp) Name() string { return "transcribeAndSummarize" }

func (CreateTaskOp) isOperation()             {}
func (AnalyzeProjectHealthOp) isOperation()   {}
func (SuggestTaskBreakdownOp) isOperation()   {}
func (AnalyzeComplexityOp) isOperation()      {}
func (EstimateEffortOp) isOperation()         {}
func (ReviewCodeOp) isOperation()             {}
func (SuggestRefactoringOp) isOperation()     {}
func (DetectSecurityIssuesOp) isOperation()   {}
func (GenerateSummaryOp) isOperation()        {}
func (ExtractActionItemsOp) isOperation()     {}
func (GenerateMeetingReportOp) isOperation()  {}
func (TranscribeAndSummarizeOp) isOperation() {}

// Perform runs op on its agent and returns the typed result: *Task, *ProjectHealth,
// []Subtask, *ComplexityAnalysis, *EffortEstimate, *CodeReview, *Refactoring,
// []SecurityIssue, *MeetingSummary, []ActionItem, string or *MeetingReport.
func (r *Registry) Perform(ctx context.Context, op Operation) (any, error) {
	if op != nil {
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      op.Name(),
			Type:      string(op.Agent()),
			Component: components.ComponentOfPrompt,
		}, observers.NewPromptCallbacks())
	}
	switch op := op.(type) {
	case CreateTaskOp:
		return r.pm.CreateTask(ctx, op.Description, op.ProjectID)
	case AnalyzeProjectHealthOp:
		return r.pm.AnalyzeProjectHealth(ctx, op.Project, op.Tasks)
	case SuggestTaskBreakdownOp:
		return r.pm.SuggestTaskBreakdown(ctx, op.Epic)
	case AnalyzeComplexityOp:
		return r.ta.AnalyzeComplexity(ctx, op.Task, op.ProjectContext)
	case EstimateEffortOp:
		return r.ta.EstimateEffort(ctx, op.Tasks)
	case ReviewCodeOp:
		return r.cr.ReviewCode(ctx, op.Code, op.Language, op.Description)
	case SuggestRefactoringOp:
		return r.cr.SuggestRefactoring(ctx, op.Code, op.Language)
	case DetectSecurityIssuesOp:
		return r.cr.DetectSecurityIssues(ctx, op.Code, op.Language)
	case GenerateSummaryOp:
		return r.ms.GenerateSummary(ctx, op.Transcript, op.Meeting)
	case ExtractActionItemsOp:
		return r.ms.ExtractActionItems(ctx, op.Transcript)
	case GenerateMeetingReportOp:
		return r.ms.GenerateMeetingReport(ctx, op.Data)
	case TranscribeAndSummarizeOp:
		return r.ms.TranscribeAndSummarize(ctx, op.Path, op.Meeting)
	case nil:
		return nil, errx.Configuration("nil operation")
	}
	return nil, errx.Configuration("unsupported operation %T", op)
}
