package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/zenai/agentcore/internal/agent/model"
)

// State is the orchestrator lifecycle position of one Execute call.
type State int

const (
	Idle State = iota
	Routing
	Executing
	Synthesizing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Routing:
		return "routing"
	case Executing:
		return "executing"
	case Synthesizing:
		return "synthesizing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Timings are wall-clock durations per stage.
type Timings struct {
	Routing      time.Duration `json:"routing"`
	Executing    time.Duration `json:"executing"`
	Synthesizing time.Duration `json:"synthesizing"`
	Total        time.Duration `json:"total"`
}

// Result is a completed execution.
type Result struct {
	Decision  model.RoutingDecision `json:"decision"`
	Results   model.AgentResults    `json:"results"`
	Synthesis string                `json:"synthesis"`
	// Skipped lists agent names the router produced that are not known agents.
	Skipped []string `json:"skipped"`
	State   State    `json:"state"`
	Timings Timings  `json:"timings"`
}

// ExecutionError reports a failed execution. State is always Failed; FailedIn is
// the stage that failed. Partial holds results gathered before a sequential failure.
type ExecutionError struct {
	State    State
	FailedIn State
	Agent    model.AgentID
	Decision *model.RoutingDecision
	Partial  model.AgentResults
	Skipped  []string
	Err      error
}

func (e *ExecutionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "orchestration failed in %s", e.FailedIn)
	if e.Agent != "" {
		fmt.Fprintf(&sb, " (agent %s)", e.Agent)
	}
	if len(e.Partial) > 0 {
		fmt.Fprintf(&sb, " after %d agent results", len(e.Partial))
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ExecutionError) Unwrap() error { return e.Err }
