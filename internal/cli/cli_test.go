package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenai/agentcore/internal/agent/agents"
	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/config"
	errx "github.com/zenai/agentcore/internal/core/error"
	"github.com/zenai/agentcore/internal/engine"
	"github.com/zenai/agentcore/internal/orchestrator"
)

type fakeEngine struct {
	requests []engine.Request
	indexed  []model.DocumentInput
	cleared  int
	messages []model.Message
	readyErr error
}

func (f *fakeEngine) Process(_ context.Context, req engine.Request) (*engine.Response, error) {
	f.requests = append(f.requests, req)
	if req.OnChunk != nil {
		req.OnChunk("streamed ")
		req.OnChunk("answer")
	}
	return &engine.Response{
		Response: "the answer",
		Routing:  model.RoutingDecision{Agents: []model.AgentID{model.ProductManager, model.TaskAnalyzer}, Workflow: model.Parallel},
		Skipped:  []string{"astrologer"},
	}, nil
}

func (f *fakeEngine) ProcessComplexWorkflow(_ context.Context, req engine.Request) (*orchestrator.WorkflowResult, error) {
	f.requests = append(f.requests, req)
	return &orchestrator.WorkflowResult{
		Results: []orchestrator.StepResult{{Step: 1, Action: "plan", Result: &orchestrator.Result{Synthesis: "planned"}}},
		Summary: "all done",
	}, nil
}

func (f *fakeEngine) History(_ context.Context, userID, conversationID string) (*model.ConversationSummary, []model.Message, error) {
	key := model.ConversationKey{UserID: userID, ConversationID: conversationID}
	return &model.ConversationSummary{Key: key, MessageCount: len(f.messages)}, f.messages, nil
}

func (f *fakeEngine) ClearContext(context.Context, string, string) error {
	f.cleared++
	return nil
}

func (f *fakeEngine) IndexDocuments(_ context.Context, docs []model.DocumentInput) ([]string, error) {
	f.indexed = append(f.indexed, docs...)
	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = "doc-" + string(rune('a'+i))
	}
	return ids, nil
}

func (f *fakeEngine) Ready(context.Context) error { return f.readyErr }

type fakePerformer struct {
	ops []agents.Operation
	out any
}

func (f *fakePerformer) Perform(_ context.Context, op agents.Operation) (any, error) {
	f.ops = append(f.ops, op)
	return f.out, nil
}

type harness struct {
	eng  *fakeEngine
	perf *fakePerformer
	out  *bytes.Buffer
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.out.Reset()
	cmd := NewRootCommand(Options{
		NewApp: func(_ context.Context, cfg *config.AppConfig) (*App, error) {
			return &App{Config: cfg, Engine: h.eng, Agents: h.perf}, nil
		},
		Out: h.out,
		Err: &bytes.Buffer{},
	})
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	return cmd.ExecuteContext(context.Background())
}

func newHarness(t *testing.T) *harness {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("LLM_PROVIDER", "gemini")
	return &harness{eng: &fakeEngine{}, perf: &fakePerformer{out: map[string]any{"ok": true}}, out: &bytes.Buffer{}}
}

func TestAsk(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "ask", "-u", "alice", "-c", "sprint", "--docs", "plan", "the", "release"))

	require.Len(t, h.eng.requests, 1)
	req := h.eng.requests[0]
	assert.Equal(t, "alice", req.UserID)
	assert.Equal(t, "sprint", req.ConversationID)
	assert.Equal(t, "plan the release", req.Query)
	assert.True(t, req.IncludeDocuments)
	assert.Nil(t, req.OnChunk)

	out := h.out.String()
	assert.Contains(t, out, "the answer\n")
	assert.Contains(t, out, "[agents: productManager, taskAnalyzer, parallel]")
	assert.Contains(t, out, "[skipped unknown agents: astrologer]")
}

func TestAsk_StreamAndJSON(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "ask", "--stream", "hi"))
	assert.Contains(t, h.out.String(), "streamed answer\n")
	assert.NotContains(t, h.out.String(), "the answer")

	require.NoError(t, h.run(t, "--json", "ask", "--stream", "hi"))
	assert.Contains(t, h.out.String(), `"response": "the answer"`)
	assert.Nil(t, h.eng.requests[1].OnChunk)
}

func TestWorkflow(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "workflow", "plan and review"))
	assert.Contains(t, h.out.String(), "## Step 1: plan\nplanned")
	assert.Contains(t, h.out.String(), "## Summary\nall done")
}

func TestHistoryAndClear(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "history"))
	assert.Contains(t, h.out.String(), "No messages in conversation:cli:default.")

	h.eng.messages = []model.Message{{Role: model.RoleUser, Content: "hello"}}
	require.NoError(t, h.run(t, "history"))
	assert.Contains(t, h.out.String(), "[user]: hello")

	require.NoError(t, h.run(t, "clear"))
	assert.Equal(t, 1, h.eng.cleared)
}

func TestIndex(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(a, []byte("caching decision"), 0o600))

	require.NoError(t, h.run(t, "index", "--type", "adr", a))
	require.Len(t, h.eng.indexed, 1)
	assert.Equal(t, "caching decision", h.eng.indexed[0].Content)
	assert.Equal(t, "adr", h.eng.indexed[0].Metadata["type"])
	assert.Equal(t, "notes.md", h.eng.indexed[0].Metadata["source"])
	assert.Contains(t, h.out.String(), "doc-a\t"+a)

	assert.Error(t, h.run(t, "index", filepath.Join(dir, "missing.md")))
}

func TestReviewCode(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main"), 0o600))

	require.NoError(t, h.run(t, "review-code", path))
	require.Len(t, h.perf.ops, 1)
	assert.Equal(t, agents.ReviewCodeOp{Code: "package main", Language: "go"}, h.perf.ops[0])
	assert.Contains(t, h.out.String(), `"ok": true`)

	require.NoError(t, h.run(t, "review-code", "--mode", "security", "--language", "golang", path))
	assert.Equal(t, agents.DetectSecurityIssuesOp{Code: "package main", Language: "golang"}, h.perf.ops[1])

	assert.Error(t, h.run(t, "review-code", "--mode", "vibes", path))
}

func TestAnalyzeTask(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "analyze-task", "--context", "go service", "add", "rate", "limiting"))
	op, ok := h.perf.ops[0].(agents.AnalyzeComplexityOp)
	require.True(t, ok)
	assert.Equal(t, "add rate limiting", op.Task.Title)
	assert.Equal(t, "go service", op.ProjectContext)

	require.NoError(t, h.run(t, "analyze-task", "--effort", "task one", "task two"))
	effort, ok := h.perf.ops[1].(agents.EstimateEffortOp)
	require.True(t, ok)
	assert.Len(t, effort.Tasks, 2)
}

func TestSummarizeMeeting(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "summarize-meeting", "--title", "Standup", "--participants", "ana,bo", "call.MP3"))
	op, ok := h.perf.ops[0].(agents.TranscribeAndSummarizeOp)
	require.True(t, ok)
	assert.Equal(t, "call.MP3", op.Path)
	assert.Equal(t, []string{"ana", "bo"}, op.Meeting.Participants)

	transcript := filepath.Join(t.TempDir(), "standup.txt")
	require.NoError(t, os.WriteFile(transcript, []byte("Ana: ship it"), 0o600))
	require.NoError(t, h.run(t, "summarize-meeting", transcript))
	assert.IsType(t, agents.GenerateSummaryOp{}, h.perf.ops[1])

	h.perf.out = "# Report"
	require.NoError(t, h.run(t, "summarize-meeting", "--report", transcript))
	assert.IsType(t, agents.GenerateMeetingReportOp{}, h.perf.ops[2])
	assert.Equal(t, "# Report\n", h.out.String())

	require.NoError(t, h.run(t, "summarize-meeting", "--actions", transcript))
	assert.Equal(t, agents.ExtractActionItemsOp{Transcript: "Ana: ship it"}, h.perf.ops[3])
}

func TestReady(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "ready"))
	assert.Equal(t, "ready\n", h.out.String())

	h.eng.readyErr = errors.New("redis: connection refused")
	err := h.run(t, "ready")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")
}

func TestConfigErrorsStopCommands(t *testing.T) {
	h := newHarness(t)
	t.Setenv("LLM_PROVIDER", "bogus")
	err := h.run(t, "ask", "hi")
	assert.True(t, errx.IsKind(err, errx.KindConfiguration))
	assert.Empty(t, h.eng.requests)
}
