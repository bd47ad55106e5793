package agents

import (
	"context"

	"github.com/zenai/agentcore/internal/agent/parsers"
	"github.com/zenai/agentcore/internal/agent/prompts"
)

type CodeIssue struct {
	Severity    string `json:"severity"`
	Type        string `json:"type"`
	Line        int    `json:"line"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
	Example     string `json:"example"`
}

type CodeReview struct {
	OverallScore    float64     `json:"overall_score"`
	Issues          []CodeIssue `json:"issues"`
	Strengths       []string    `json:"strengths"`
	Recommendations []string    `json:"recommendations"`
}

type RefactorChange struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
	Before string `json:"before"`
	After  string `json:"after"`
}

type Refactoring struct {
	RefactoredCode string           `json:"refactored_code"`
	Changes        []RefactorChange `json:"changes"`
	Impact         string           `json:"impact"`
}

type SecurityIssue struct {
	Vulnerability   string `json:"vulnerability"`
	Severity        string `json:"severity"`
	Location        string `json:"location"`
	Description     string `json:"description"`
	ExploitScenario string `json:"exploit_scenario"`
	Fix             string `json:"fix"`
	CWEID           string `json:"cwe_id,omitempty"`
}

const defaultReviewContext = "General code review"

var (
	reviewShape = parsers.NewShape(
		parsers.Field{Name: "overall_score", Type: parsers.TypeNumber},
		parsers.Field{Name: "issues", Type: parsers.TypeArray},
	)
	refactoringShape = parsers.NewShape(
		parsers.Field{Name: "refactored_code", Type: parsers.TypeString},
		parsers.Field{Name: "changes", Type: parsers.TypeArray},
	)
	securityIssueShape = parsers.NewShape(
		parsers.Field{Name: "vulnerability", Type: parsers.TypeString},
		parsers.Field{Name: "severity", Type: parsers.TypeString},
	)
)

// CodeReviewer reviews code for bugs, security problems and style.
type CodeReviewer struct {
	*Base
}

func (a *CodeReviewer) ReviewCode(ctx context.Context, code, language, description string) (*CodeReview, error) {
	if description == "" {
		description = defaultReviewContext
	}
	var out CodeReview
	err := a.object(ctx, "reviewCode", prompts.ReviewCode, map[string]any{
		"code":        code,
		"language":    language,
		"description": description,
	}, reviewShape, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *CodeReviewer) SuggestRefactoring(ctx context.Context, code, language string) (*Refactoring, error) {
	var out Refactoring
	err := a.object(ctx, "suggestRefactoring", prompts.SuggestRefactoring, map[string]any{
		"code":     code,
		"language": language,
	}, refactoringShape, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *CodeReviewer) DetectSecurityIssues(ctx context.Context, code, language string) ([]SecurityIssue, error) {
	var out []SecurityIssue
	err := a.array(ctx, "detectSecurityIssues", prompts.DetectSecurityIssues, map[string]any{
		"code":     code,
		"language": language,
	}, securityIssueShape, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
