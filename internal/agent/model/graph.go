package model

import (
	"fmt"
	"strings"
)

// AgentID names one of the specialized agents.
type AgentID string

const (
	ProductManager    AgentID = "productManager"
	TaskAnalyzer      AgentID = "taskAnalyzer"
	CodeReviewer      AgentID = "codeReviewer"
	MeetingSummarizer AgentID = "meetingSummarizer"
	// Orchestrator is not routable; it names the routing and synthesis config.
	Orchestrator AgentID = "orchestrator"
)

// KnownAgents is the closed, routable agent set in catalogue order.
var KnownAgents = []AgentID{ProductManager, TaskAnalyzer, CodeReviewer, MeetingSummarizer}

// ParseAgentID matches s against the known agents, ignoring case and surrounding space.
func ParseAgentID(s string) (AgentID, bool) {
	s = strings.TrimSpace(s)
	for _, id := range KnownAgents {
		if strings.EqualFold(string(id), s) {
			return id, true
		}
	}
	return "", false
}

// Workflow selects how routed agents run.
type Workflow string

const (
	Sequential Workflow = "sequential"
	Parallel   Workflow = "parallel"
)

// ParseWorkflow accepts the two workflow names, ignoring case.
func ParseWorkflow(s string) (Workflow, error) {
	switch Workflow(strings.ToLower(strings.TrimSpace(s))) {
	case Sequential:
		return Sequential, nil
	case Parallel:
		return Parallel, nil
	}
	return "", fmt.Errorf("unknown workflow %q", s)
}

// RoutingDecision is the parsed routing output. Agents is never empty.
// WorkflowDefaulted is set when the router gave no usable workflow.
type RoutingDecision struct {
	Agents            []AgentID `json:"agents"`
	Workflow          Workflow  `json:"workflow"`
	WorkflowDefaulted bool      `json:"workflow_defaulted,omitempty"`
	Reasoning         string    `json:"reasoning,omitempty"`
	ExpectedOutput    string    `json:"expected_output,omitempty"`
}

// AgentResult is the output of one agent run.
type AgentResult struct {
	Agent  AgentID `json:"agent"`
	Output string  `json:"output"`
}

// AgentResults keeps agent outputs in the order the agents were requested.
type AgentResults []AgentResult

// Get returns the output for id.
func (r AgentResults) Get(id AgentID) (string, bool) {
	for _, res := range r {
		if res.Agent == id {
			return res.Output, true
		}
	}
	return "", false
}

// Agents lists the agents in result order.
func (r AgentResults) Agents() []AgentID {
	out := make([]AgentID, len(r))
	for i, res := range r {
		out[i] = res.Agent
	}
	return out
}

// Clone returns a copy that later appends cannot alias.
func (r AgentResults) Clone() AgentResults {
	if r == nil {
		return nil
	}
	out := make(AgentResults, len(r))
	copy(out, r)
	return out
}

// Format renders results as headed sections for prompts.
func (r AgentResults) Format() string {
	var sb strings.Builder
	for i, res := range r {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "### %s\n%s", res.Agent, strings.TrimSpace(res.Output))
	}
	return sb.String()
}
