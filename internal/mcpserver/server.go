// Package mcpserver exposes the engine as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/engine"
	"github.com/zenai/agentcore/internal/orchestrator"
	logx "github.com/zenai/agentcore/pkg/logger"
)

// Version is set at build time via ldflags.
var Version = "dev"

const (
	ToolAsk                 = "ask"
	ToolWorkflow            = "run_workflow"
	ToolClearConversation   = "clear_conversation"
	ToolConversationHistory = "conversation_history"
	defaultUserID           = "mcp"
	defaultConversationID   = "default"
)

// Service is the part of the engine the tools call.
type Service interface {
	Process(ctx context.Context, req engine.Request) (*engine.Response, error)
	ProcessComplexWorkflow(ctx context.Context, req engine.Request) (*orchestrator.WorkflowResult, error)
	History(ctx context.Context, userID, conversationID string) (*model.ConversationSummary, []model.Message, error)
	ClearContext(ctx context.Context, userID, conversationID string) error
}

// New builds the MCP server with every tool registered.
func New(svc Service) *server.MCPServer {
	s := server.NewMCPServer(
		"agentcore",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Route requests to planning, task analysis, code review and meeting agents. "+
			"Use user_id and conversation_id to keep a conversation across calls."),
	)
	h := &handlers{svc: svc}
	s.AddTool(askTool(), h.ask)
	s.AddTool(workflowTool(), h.workflow)
	s.AddTool(historyTool(), h.history)
	s.AddTool(clearTool(), h.clear)
	return s
}

func conversationParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("user_id", mcp.Description("Caller identity. Defaults to 'mcp'.")),
		mcp.WithString("conversation_id", mcp.Description("Conversation to read and extend. Defaults to 'default'.")),
	}
}

func askTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Send a request to the agents. The orchestrator picks the agents, runs them and returns one answer."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The request in plain language.")),
		mcp.WithBoolean("include_documents", mcp.Description("Search indexed documents for context.")),
		mcp.WithBoolean("index", mcp.Description("Index this exchange for later retrieval.")),
	}
	return mcp.NewTool(ToolAsk, append(opts, conversationParams()...)...)
}

func workflowTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Break a multi-part request into ordered steps, run each step and summarize the run."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The multi-part request.")),
	}
	return mcp.NewTool(ToolWorkflow, append(opts, conversationParams()...)...)
}

func historyTool() mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription("Show the stored messages and a summary of a conversation.")}
	return mcp.NewTool(ToolConversationHistory, append(opts, conversationParams()...)...)
}

func clearTool() mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription("Delete a stored conversation.")}
	return mcp.NewTool(ToolClearConversation, append(opts, conversationParams()...)...)
}

type handlers struct {
	svc Service
}

func ids(req mcp.CallToolRequest) (string, string) {
	return req.GetString("user_id", defaultUserID), req.GetString("conversation_id", defaultConversationID)
}

func (h *handlers) ask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	userID, conversationID := ids(req)
	resp, err := h.svc.Process(ctx, engine.Request{
		UserID:            userID,
		ConversationID:    conversationID,
		Query:             query,
		IncludeDocuments:  req.GetBool("include_documents", false),
		IndexForRetrieval: req.GetBool("index", false),
	})
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Str("tool", ToolAsk).Msg("tool call failed")
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(resp)
}

func (h *handlers) workflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	userID, conversationID := ids(req)
	out, err := h.svc.ProcessComplexWorkflow(ctx, engine.Request{UserID: userID, ConversationID: conversationID, Query: query})
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Str("tool", ToolWorkflow).Msg("tool call failed")
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

func (h *handlers) history(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, conversationID := ids(req)
	summary, msgs, err := h.svc.History(ctx, userID, conversationID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"summary": summary, "messages": msgs})
}

func (h *handlers) clear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, conversationID := ids(req)
	if err := h.svc.ClearContext(ctx, userID, conversationID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cleared conversation %s for %s.", conversationID, userID)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
