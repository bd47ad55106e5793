package prompts

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	errx "github.com/zenai/agentcore/internal/core/error"
)

//go:embed template/*.txt
var templateFS embed.FS

// Catalogue keys. System prompt keys are referenced from agent configuration.
const (
	SystemOrchestrator      = "system_orchestrator"
	SystemProductManager    = "system_product_manager"
	SystemTaskAnalyzer      = "system_task_analyzer"
	SystemCodeReviewer      = "system_code_reviewer"
	SystemMeetingSummarizer = "system_meeting_summarizer"

	AgentRun          = "agent_run"
	Routing           = "routing"
	Synthesis         = "synthesis"
	WorkflowBreakdown = "workflow_breakdown"
	WorkflowSummary   = "workflow_summary"

	CreateTask            = "create_task"
	AnalyzeProjectHealth  = "analyze_project_health"
	SuggestTaskBreakdown  = "suggest_task_breakdown"
	AnalyzeComplexity     = "analyze_complexity"
	EstimateEffort        = "estimate_effort"
	ReviewCode            = "review_code"
	SuggestRefactoring    = "suggest_refactoring"
	DetectSecurityIssues  = "detect_security_issues"
	GenerateSummary       = "generate_summary"
	ExtractActionItems    = "extract_action_items"
	GenerateMeetingReport = "generate_meeting_report"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Renderer fills {name} placeholders in catalogue templates. Missing variables render
// as empty strings unless the renderer is strict.
type Renderer struct {
	templates map[string]string
	strict    bool
}

type Option func(*Renderer)

// WithStrict makes missing variables an error.
func WithStrict() Option {
	return func(r *Renderer) { r.strict = true }
}

// WithTemplates adds or replaces catalogue entries.
func WithTemplates(t map[string]string) Option {
	return func(r *Renderer) {
		for k, v := range t {
			r.templates[k] = v
		}
	}
}

// NewRenderer loads the embedded catalogue.
func NewRenderer(opts ...Option) (*Renderer, error) {
	entries, err := templateFS.ReadDir("template")
	if err != nil {
		return nil, fmt.Errorf("read prompt catalogue: %w", err)
	}
	r := &Renderer{templates: make(map[string]string, len(entries))}
	for _, e := range entries {
		b, err := templateFS.ReadFile(path.Join("template", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", e.Name(), err)
		}
		r.templates[strings.TrimSuffix(e.Name(), path.Ext(e.Name()))] = strings.TrimSpace(string(b))
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Has reports whether key is in the catalogue.
func (r *Renderer) Has(key string) bool {
	_, ok := r.templates[key]
	return ok
}

// Keys lists catalogue keys in sorted order.
func (r *Renderer) Keys() []string {
	keys := make([]string, 0, len(r.templates))
	for k := range r.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Render substitutes vars into the template named key. Substituted values are not
// scanned again, so braces in user content are safe.
func (r *Renderer) Render(ctx context.Context, key string, vars map[string]any) (string, error) {
	tpl, ok := r.templates[key]
	if !ok {
		return "", errx.Configuration("unknown prompt template %q", key)
	}
	content, err := r.substitute(tpl, vars)
	if err != nil {
		return "", errx.Configuration("render %q: %v", key, err)
	}
	return emit(ctx, content)
}

func (r *Renderer) substitute(tpl string, vars map[string]any) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return ""
		}
		return toString(v)
	})
	if r.strict && len(missing) > 0 {
		return "", fmt.Errorf("missing placeholder %q", missing[0])
	}
	return out, nil
}

// emit routes the rendered text through the eino prompt component so prompt
// callbacks fire.
func emit(ctx context.Context, content string) (string, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("rendered", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"rendered": []*schema.Message{schema.UserMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("prompt callbacks: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("prompt callbacks: empty result")
	}
	return msgs[0].Content, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case fmt.Stringer:
		return t.String()
	case int, int32, int64, float32, float64, bool:
		return fmt.Sprint(t)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
