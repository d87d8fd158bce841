package agent

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/rahul/aiops/internal/llm"
	"github.com/rahul/aiops/internal/tools"
)

// StepStatus is the state of one executed step.
type StepStatus string

const (
	StatusPending StepStatus = "pending"
	StatusSuccess StepStatus = "success"
	StatusFailed  StepStatus = "failed"
)

// Plan is the ordered decomposition of a task. ToolsNeeded is read
// index-aligned with Steps; a missing entry means no tool.
type Plan struct {
	Steps       []string       `json:"steps"`
	ToolsNeeded []tools.ToolID `json:"tools_needed"`
}

// ToolFor returns the tool tagged for step i, or ToolNone.
func (p Plan) ToolFor(i int) tools.ToolID {
	if i < 0 || i >= len(p.ToolsNeeded) {
		return tools.ToolNone
	}
	return p.ToolsNeeded[i]
}

// StepResult records the outcome of one step.
type StepResult struct {
	Step   string       `json:"step"`
	Tool   tools.ToolID `json:"tool"`
	Output string       `json:"output"`
	Status StepStatus   `json:"status"`
}

// ExecutionReport holds one StepResult per plan step, in plan order.
type ExecutionReport []StepResult

// FinalOutput is the verified answer to a task.
type FinalOutput struct {
	Result  string   `json:"result"`
	Sources []string `json:"sources"`
}

// CombinedResult is the response for one task. On failure only Task and
// Error are set.
type CombinedResult struct {
	Task         string          `json:"task"`
	Plan         *Plan           `json:"plan,omitempty"`
	Execution    ExecutionReport `json:"execution,omitempty"`
	Verification *FinalOutput    `json:"verification,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// Failed reports whether the pipeline stopped at its error boundary.
func (r CombinedResult) Failed() bool {
	return r.Error != ""
}

// MarshalJSON emits {error, task} for failures and the four pipeline
// fields otherwise, with an empty report rendered as [].
func (r CombinedResult) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(struct {
			Error string `json:"error"`
			Task  string `json:"task"`
		}{r.Error, r.Task})
	}

	execution := r.Execution
	if execution == nil {
		execution = ExecutionReport{}
	}
	return json.Marshal(struct {
		Task         string          `json:"task"`
		Plan         *Plan           `json:"plan"`
		Execution    ExecutionReport `json:"execution"`
		Verification *FinalOutput    `json:"verification"`
	}{r.Task, r.Plan, execution, r.Verification})
}

// StructuredModel produces schema-validated output. *llm.Client is the
// production implementation.
type StructuredModel = llm.Completer

// PlanSchema is the shape the planner must produce. Tool ids are plain
// strings; ids outside the registry are treated as none at execution.
var PlanSchema = llm.MustSchema(
	"propose_plan",
	"Submit a structured plan: ordered steps and the tool each step needs.",
	llm.Object(map[string]*jsonschema.Schema{
		"steps": llm.Array("Ordered action descriptions.",
			llm.String("", 1)),
		"tools_needed": llm.Array("One tool id per step: weather, github or none.",
			llm.String("", 0)),
	}, "steps", "tools_needed"),
)

// FinalOutputSchema is the shape the verifier must produce.
var FinalOutputSchema = llm.MustSchema(
	"submit_verification",
	"Submit the final summary and every source or tool used.",
	llm.Object(map[string]*jsonschema.Schema{
		"result":  llm.String("Final summary of the task outcome.", 1),
		"sources": llm.Array("Sources and tools used.", llm.String("", 0)),
	}, "result", "sources"),
)

// PlanningError wraps a failure to obtain a plan.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed: %v", e.Err)
}

func (e *PlanningError) Unwrap() error {
	return e.Err
}

// VerificationError wraps a failure to verify an execution report.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed: %v", e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}
