package agents

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/agent/prompts"
	"github.com/zenai/agentcore/internal/agent/tools"
	errx "github.com/zenai/agentcore/internal/core/error"
	"github.com/zenai/agentcore/internal/llm"
	"github.com/zenai/agentcore/internal/llm/llmtest"
	"github.com/zenai/agentcore/internal/transcription"
)

type call struct {
	agent  model.AgentID
	system string
	user   string
}

type harness struct {
	mu      sync.Mutex
	calls   []call
	replies map[model.AgentID]string
	err     error
}

func (h *harness) last() call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[len(h.calls)-1]
}

func testConfigs() map[model.AgentID]model.AgentConfig {
	return map[model.AgentID]model.AgentConfig{
		model.ProductManager: {Name: "productManager", ModelType: "gemini", ModelName: "m", Temperature: 0.7, MaxTokens: 2000,
			SystemPromptKey: prompts.SystemProductManager, Tools: []string{tools.CreateTask, tools.AnalyzeProject, tools.PrioritizeTasks}},
		model.TaskAnalyzer: {Name: "taskAnalyzer", ModelType: "gemini", ModelName: "m", Temperature: 0.3, MaxTokens: 1500,
			SystemPromptKey: prompts.SystemTaskAnalyzer, Tools: []string{tools.EstimateComplexity}},
		model.CodeReviewer: {Name: "codeReviewer", ModelType: "gemini", ModelName: "m", Temperature: 0.3, MaxTokens: 3000,
			SystemPromptKey: prompts.SystemCodeReviewer},
		model.MeetingSummarizer: {Name: "meetingSummarizer", ModelType: "gemini", ModelName: "m", Temperature: 0.3, MaxTokens: 3000,
			SystemPromptKey: prompts.SystemMeetingSummarizer},
	}
}

func newHarness(t *testing.T, transcriber transcription.Transcriber) (*Registry, *harness) {
	t.Helper()
	h := &harness{replies: map[model.AgentID]string{}}
	renderer, err := prompts.NewRenderer()
	require.NoError(t, err)

	reg, err := NewRegistry(context.Background(), Deps{
		Prompts:     renderer,
		Tools:       tools.NewRegistry(nil, nil),
		Transcriber: transcriber,
		Model: func(_ context.Context, cfg model.AgentConfig) (llm.Completer, error) {
			id := model.AgentID(cfg.Name)
			chat := llmtest.Func(func(_ context.Context, msgs []*schema.Message) (string, error) {
				h.mu.Lock()
				defer h.mu.Unlock()
				h.calls = append(h.calls, call{agent: id, system: llmtest.System(msgs), user: llmtest.LastUser(msgs)})
				if h.err != nil {
					return "", h.err
				}
				return h.replies[id], nil
			})
			return llm.NewClient(chat, llm.Config{Name: cfg.Name, Provider: llm.Gemini, Model: cfg.ModelName, Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens})
		},
	}, testConfigs())
	require.NoError(t, err)
	return reg, h
}

func TestNewRegistry_Validation(t *testing.T) {
	renderer, err := prompts.NewRenderer()
	require.NoError(t, err)
	newModel := func(context.Context, model.AgentConfig) (llm.Completer, error) {
		return llm.NewClient(llmtest.Reply(""), llm.Config{Provider: llm.Gemini, Model: "m", MaxTokens: 1})
	}

	cfgs := testConfigs()
	delete(cfgs, model.CodeReviewer)
	_, err = NewRegistry(context.Background(), Deps{Prompts: renderer, Model: newModel}, cfgs)
	assert.True(t, errx.IsKind(err, errx.KindConfiguration))

	cfgs = testConfigs()
	pm := cfgs[model.ProductManager]
	pm.Tools = []string{"launch_rockets"}
	cfgs[model.ProductManager] = pm
	_, err = NewRegistry(context.Background(), Deps{Prompts: renderer, Model: newModel}, cfgs)
	assert.True(t, errx.IsKind(err, errx.KindConfiguration))

	cfgs = testConfigs()
	ta := cfgs[model.TaskAnalyzer]
	ta.SystemPromptKey = "nope"
	cfgs[model.TaskAnalyzer] = ta
	_, err = NewRegistry(context.Background(), Deps{Prompts: renderer, Model: newModel}, cfgs)
	assert.True(t, errx.IsKind(err, errx.KindConfiguration))
}

func TestRun_RendersContextAndPreviousResults(t *testing.T) {
	reg, h := newHarness(t, nil)
	h.replies[model.TaskAnalyzer] = "about three days"

	a, ok := reg.Get(model.TaskAnalyzer)
	require.True(t, ok)
	out, err := a.Run(context.Background(), "How long will the migration take?", RunContext{
		Bundle: &model.ContextBundle{
			ConversationHistory: []model.Message{{Role: model.RoleUser, Content: "we use postgres"}},
		},
		Previous: model.AgentResults{{Agent: model.ProductManager, Output: "Created 4 tasks"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "about three days", out)

	c := h.last()
	assert.Equal(t, model.TaskAnalyzer, c.agent)
	assert.Contains(t, c.system, "task analysis expert")
	assert.Contains(t, c.user, "user: we use postgres")
	assert.Contains(t, c.user, "### productManager\nCreated 4 tasks")
	assert.Contains(t, c.user, "How long will the migration take?")
}

func TestRun_Streams(t *testing.T) {
	reg, h := newHarness(t, nil)
	h.replies[model.CodeReviewer] = "looks fine"

	var got strings.Builder
	out, err := reg.CodeReviewer().Run(context.Background(), "review", RunContext{OnChunk: func(s string) { got.WriteString(s) }})
	require.NoError(t, err)
	assert.Equal(t, "looks fine", out)
	assert.Equal(t, "looks fine", got.String())
}

func TestRun_ProviderErrorPropagates(t *testing.T) {
	reg, h := newHarness(t, nil)
	h.err = errors.New("quota exceeded")
	_, err := reg.ProductManager().Run(context.Background(), "x", RunContext{})
	assert.True(t, errx.IsKind(err, errx.KindProvider))
}

func TestInvokeTool(t *testing.T) {
	reg, _ := newHarness(t, nil)
	pm := reg.ProductManager()

	out, err := pm.InvokeTool(context.Background(), tools.CreateTask, `{"title":"Draft roadmap"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Task created: Draft roadmap")

	_, err = pm.InvokeTool(context.Background(), tools.AnalyzeCode, `{"code":"x"}`)
	assert.True(t, errx.IsKind(err, errx.KindConfiguration))

	infos, err := pm.ToolInfos(context.Background())
	require.NoError(t, err)
	assert.Len(t, infos, 3)
}

func TestCreateTask(t *testing.T) {
	reg, h := newHarness(t, nil)
	h.replies[model.ProductManager] = "Here you go:\n```json\n{\"title\":\"Add SSO\",\"description\":\"Support SAML\",\"priority\":\"high\",\"estimatedTime\":16,\"tags\":[\"auth\"]}\n```"

	task, err := reg.ProductManager().CreateTask(context.Background(), "we need SSO", "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Add SSO", task.Title)
	assert.Equal(t, 16.0, task.EstimatedTime)
	assert.Equal(t, []string{"auth"}, task.Tags)
	assert.Contains(t, h.last().user, `"we need SSO"`)
	assert.Contains(t, h.last().user, "Project ID: p-1")
}

func TestStructuredFailuresAreMalformedAgentOutput(t *testing.T) {
	reg, h := newHarness(t, nil)

	h.replies[model.ProductManager] = "I cannot do that"
	_, err := reg.ProductManager().CreateTask(context.Background(), "x", "p")
	require.Error(t, err)
	assert.Equal(t, errx.KindMalformedAgentOutput, errx.KindOf(err))
	assert.True(t, errx.IsKind(err, errx.KindUnparsableResponse))
	assert.Equal(t, "I cannot do that", errx.RawOf(err))

	h.replies[model.ProductManager] = `{"title":"t","description":"d"}`
	_, err = reg.ProductManager().CreateTask(context.Background(), "x", "p")
	var appErr *errx.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errx.KindMalformedAgentOutput, appErr.Kind)
	assert.Equal(t, "priority", appErr.Field)
	assert.Equal(t, string(model.ProductManager), appErr.Agent)
}

func TestAnalyzeProjectHealth_CountsTasks(t *testing.T) {
	reg, h := newHarness(t, nil)
	reg.ProductManager().now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	h.replies[model.ProductManager] = `{"healthScore":72,"status":"at-risk","insights":[],"risks":["deadline"],"recommendations":[]}`

	health, err := reg.ProductManager().AnalyzeProjectHealth(context.Background(),
		model.ProjectSnapshot{Name: "Atlas", Status: "active", Deadline: "2026-06-01"},
		[]model.TaskSpec{
			{Title: "a", Status: "done", DueDate: "2026-01-01"},
			{Title: "b", Status: "in-progress", DueDate: "2026-04-01"},
			{Title: "c", Status: "todo"},
		})
	require.NoError(t, err)
	assert.Equal(t, 72.0, health.HealthScore)
	assert.Equal(t, "at-risk", health.Status)

	user := h.last().user
	assert.Contains(t, user, "Total tasks: 3")
	assert.Contains(t, user, "Completed: 1")
	assert.Contains(t, user, "In progress: 1")
	assert.Contains(t, user, "Overdue: 1")
}

func TestArrayOperations(t *testing.T) {
	reg, h := newHarness(t, nil)

	h.replies[model.ProductManager] = `Subtasks: [{"title":"Schema","estimatedTime":4},{"title":"API","dependencies":["Schema"]}]`
	subs, err := reg.ProductManager().SuggestTaskBreakdown(context.Background(), model.TaskSpec{Title: "Billing"})
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, []string{"Schema"}, subs[1].Dependencies)

	h.replies[model.CodeReviewer] = `[{"vulnerability":"SQL Injection","severity":"critical","cwe_id":"CWE-89"}]`
	issues, err := reg.CodeReviewer().DetectSecurityIssues(context.Background(), "q := \"SELECT \" + id", "go")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "CWE-89", issues[0].CWEID)

	h.replies[model.MeetingSummarizer] = `[{"owner":"ana"}]`
	_, err = reg.MeetingSummarizer().ExtractActionItems(context.Background(), "ana will ship")
	var appErr *errx.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "[0].action", appErr.Field)
}

func TestTaskAnalyzer(t *testing.T) {
	reg, h := newHarness(t, nil)
	h.replies[model.TaskAnalyzer] = `{"totalHours":12,"taskEstimates":[{"taskId":"t1","hours":12,"confidence":"medium"}],"criticalPath":["t1"]}`

	est, err := reg.TaskAnalyzer().EstimateEffort(context.Background(), []model.TaskSpec{
		{ID: "t1", Title: "Export", Description: "CSV export"},
		{Title: "Import", Description: "CSV import"},
	})
	require.NoError(t, err)
	assert.Equal(t, 12.0, est.TotalHours)
	assert.Contains(t, h.last().user, "- [t1] Export: CSV export")
	assert.Contains(t, h.last().user, "- [task-2] Import: CSV import")

	h.replies[model.TaskAnalyzer] = `{"complexityScore":"high","estimatedHours":3}`
	_, err = reg.TaskAnalyzer().AnalyzeComplexity(context.Background(), model.TaskSpec{Title: "x"}, "")
	var appErr *errx.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "complexityScore", appErr.Field)
}

func TestCodeReviewer(t *testing.T) {
	reg, h := newHarness(t, nil)
	h.replies[model.CodeReviewer] = `{"overall_score":80,"issues":[{"severity":"low","type":"style","line":3,"description":"naming"}],"strengths":["tests"]}`

	review, err := reg.CodeReviewer().ReviewCode(context.Background(), "func f() {}", "go", "")
	require.NoError(t, err)
	assert.Equal(t, 80.0, review.OverallScore)
	require.Len(t, review.Issues, 1)
	assert.Equal(t, 3, review.Issues[0].Line)
	assert.Contains(t, h.last().user, "```go\nfunc f() {}\n```")
	assert.Contains(t, h.last().user, "General code review")

	h.replies[model.CodeReviewer] = `{"refactored_code":"func g() {}","changes":[{"type":"rename"}],"impact":"low"}`
	ref, err := reg.CodeReviewer().SuggestRefactoring(context.Background(), "func f() {}", "go")
	require.NoError(t, err)
	assert.Equal(t, "func g() {}", ref.RefactoredCode)
}

type stubTranscriber struct{ err error }

func (s stubTranscriber) Transcribe(context.Context, string, transcription.Options) (*transcription.Transcript, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &transcription.Transcript{Text: "Ana will send the deck by Friday.", Duration: 42}, nil
}

func TestTranscribeAndSummarize(t *testing.T) {
	reg, h := newHarness(t, stubTranscriber{})
	ms := reg.MeetingSummarizer()
	ms.now = func() time.Time { return time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC) }

	chat := llmtest.Func(func(_ context.Context, msgs []*schema.Message) (string, error) {
		user := llmtest.LastUser(msgs)
		h.mu.Lock()
		h.calls = append(h.calls, call{agent: model.MeetingSummarizer, user: user})
		h.mu.Unlock()
		if strings.Contains(user, "action item") {
			return `[{"action":"Send the deck","owner":"Ana","priority":"high"}]`, nil
		}
		return `{"executiveSummary":"Deck review.","keyPoints":["deck"]}`, nil
	})
	client, err := llm.NewClient(chat, llm.Config{Provider: llm.Gemini, Model: "m", Temperature: 0.3, MaxTokens: 100})
	require.NoError(t, err)
	ms.llm = client

	report, err := ms.TranscribeAndSummarize(context.Background(), "/tmp/sync.mp3", model.MeetingInfo{Title: "Weekly", Participants: []string{"Ana", "Bo"}})
	require.NoError(t, err)
	assert.Equal(t, "Deck review.", report.Summary.ExecutiveSummary)
	require.Len(t, report.ActionItems, 1)
	assert.Equal(t, "Ana", report.ActionItems[0].Owner)
	assert.Equal(t, 42.0, report.Metadata.Duration)
	assert.Equal(t, []string{"Ana", "Bo"}, report.Metadata.Participants)
	assert.Equal(t, "2026-02-03T10:00:00Z", report.Metadata.Date)
	assert.Equal(t, 2, chat.CallCount())

	failing, _ := newHarness(t, stubTranscriber{err: errx.Configuration("audio file not found")})
	_, err = failing.MeetingSummarizer().TranscribeAndSummarize(context.Background(), "x.mp3", model.MeetingInfo{})
	assert.True(t, errx.IsKind(err, errx.KindConfiguration))

	none, _ := newHarness(t, nil)
	_, err = none.MeetingSummarizer().TranscribeAndSummarize(context.Background(), "x.mp3", model.MeetingInfo{})
	assert.True(t, errx.IsKind(err, errx.KindConfiguration))
}

func TestGenerateMeetingReport_CleansText(t *testing.T) {
	reg, h := newHarness(t, nil)
	h.replies[model.MeetingSummarizer] = "<think>draft</think>\n# Meeting Overview\nAll good."

	out, err := reg.MeetingSummarizer().GenerateMeetingReport(context.Background(), map[string]any{"executiveSummary": "ok"})
	require.NoError(t, err)
	assert.Equal(t, "# Meeting Overview\nAll good.", out)
	assert.Contains(t, h.last().user, `"executiveSummary": "ok"`)
}

func TestPerform(t *testing.T) {
	reg, h := newHarness(t, nil)
	h.replies[model.MeetingSummarizer] = `{"executiveSummary":"s","keyPoints":[]}`
	h.replies[model.ProductManager] = `{"title":"t","description":"d","priority":"low"}`

	out, err := reg.Perform(context.Background(), GenerateSummaryOp{Transcript: "hello"})
	require.NoError(t, err)
	require.IsType(t, &MeetingSummary{}, out)
	assert.Contains(t, h.last().user, "Meeting: Team Meeting")
	assert.Contains(t, h.last().user, "Participants: N/A")

	out, err = reg.Perform(context.Background(), CreateTaskOp{Description: "d"})
	require.NoError(t, err)
	assert.Equal(t, "t", out.(*Task).Title)

	for _, op := range []Operation{
		CreateTaskOp{}, AnalyzeProjectHealthOp{}, SuggestTaskBreakdownOp{}, AnalyzeComplexityOp{},
		EstimateEffortOp{}, ReviewCodeOp{}, SuggestRefactoringOp{}, DetectSecurityIssuesOp{},
		GenerateSummaryOp{}, ExtractActionItemsOp{}, GenerateMeetingReportOp{}, TranscribeAndSummarizeOp{},
	} {
		_, ok := reg.Get(op.Agent())
		assert.True(t, ok, op.Name())
	}

	_, err = reg.Perform(context.Background(), nil)
	assert.True(t, errx.IsKind(err, errx.KindConfiguration))
}
