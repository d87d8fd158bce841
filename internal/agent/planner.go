package agent

import (
	"context"

	"github.com/rahul/aiops/internal/llm"
	"github.com/rahul/aiops/internal/observability"
	"github.com/rahul/aiops/internal/tools"
)

// Planner turns a task into a Plan.
type Planner struct {
	Model    StructuredModel
	Registry *tools.Registry
	Prompts  *PromptManager
	Logger   *observability.Logger
}

func NewPlanner(model StructuredModel, registry *tools.Registry, prompts *PromptManager, logger *observability.Logger) *Planner {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Planner{
		Model:    model,
		Registry: registry,
		Prompts:  prompts,
		Logger:   logger,
	}
}

// Plan asks the model for a plan. Errors are returned as *PlanningError
// and are not retried.
func (p *Planner) Plan(ctx context.Context, task string) (Plan, error) {
	prompt, err := p.Prompts.PlannerPrompt(PlannerData{
		Task:  task,
		Tools: p.Registry.Describe(),
	})
	if err != nil {
		return Plan{}, &PlanningError{Err: err}
	}

	plan, err := llm.CompleteAs[Plan](ctx, p.Model, prompt, PlanSchema)
	if err != nil {
		return Plan{}, &PlanningError{Err: err}
	}

	ids := make([]string, len(plan.ToolsNeeded))
	for i, id := range plan.ToolsNeeded {
		ids[i] = string(id)
	}
	p.Logger.LogPlan(ctx, task, plan.Steps, ids)

	return plan, nil
}
