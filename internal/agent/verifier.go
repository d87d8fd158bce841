package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahul/aiops/internal/llm"
	"github.com/rahul/aiops/internal/observability"
)

// Verifier asks the model to judge an execution report against the task.
// It never re-runs steps.
type Verifier struct {
	Model   StructuredModel
	Prompts *PromptManager
	Logger  *observability.Logger
}

func NewVerifier(model StructuredModel, prompts *PromptManager, logger *observability.Logger) *Verifier {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Verifier{
		Model:   model,
		Prompts: prompts,
		Logger:  logger,
	}
}

func (v *Verifier) Verify(ctx context.Context, task string, report ExecutionReport) (FinalOutput, error) {
	prompt, err := v.Prompts.VerifierPrompt(VerifierData{
		Task:    task,
		Results: Digest(report),
	})
	if err != nil {
		return FinalOutput{}, &VerificationError{Err: err}
	}

	out, err := llm.CompleteAs[FinalOutput](ctx, v.Model, prompt, FinalOutputSchema)
	if err != nil {
		return FinalOutput{}, &VerificationError{Err: err}
	}

	v.Logger.LogVerify(ctx, out.Result, out.Sources)
	return out, nil
}

// Digest renders one "- step: status" line per result.
func Digest(report ExecutionReport) string {
	lines := make([]string, len(report))
	for i, r := range report {
		lines[i] = fmt.Sprintf("- %s: %s", r.Step, r.Status)
	}
	return strings.Join(lines, "\n")
}
