package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rahul/aiops/internal/governance"
	"github.com/rahul/aiops/internal/observability"
	"github.com/rahul/aiops/internal/tools"
)

// Executor runs plan steps one at a time against the tool registry. A
// failing step is recorded and execution moves on.
type Executor struct {
	Registry *tools.Registry
	Policy   governance.PolicyEngine
	Logger   *observability.Logger
	Metrics  *observability.Metrics
}

func NewExecutor(registry *tools.Registry, policy governance.PolicyEngine, logger *observability.Logger, metrics *observability.Metrics) *Executor {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Executor{
		Registry: registry,
		Policy:   policy,
		Logger:   logger,
		Metrics:  metrics,
	}
}

// Execute returns exactly one result per step, in order. It never fails
// as a whole; once ctx is done the remaining steps fail with its error.
func (e *Executor) Execute(ctx context.Context, plan Plan) ExecutionReport {
	if extra := len(plan.ToolsNeeded) - len(plan.Steps); extra > 0 {
		e.Logger.Zap().Debug("ignoring surplus tools_needed entries",
			zap.String("task_id", observability.TaskIDFrom(ctx)),
			zap.Int("steps", len(plan.Steps)),
			zap.Int("tools_needed", len(plan.ToolsNeeded)))
	}

	report := make(ExecutionReport, 0, len(plan.Steps))
	for i, step := range plan.Steps {
		start := time.Now()
		res := e.runStep(ctx, i, step, plan.ToolFor(i))

		label := toolLabel(res.Tool)
		e.Logger.LogStep(ctx, i, label, string(res.Status), time.Since(start))
		e.Metrics.ObserveStep(label, string(res.Status))
		report = append(report, res)
	}
	return report
}

func (e *Executor) runStep(ctx context.Context, index int, step string, id tools.ToolID) (res StepResult) {
	res = StepResult{Step: step, Tool: id, Status: StatusPending}

	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Output = fmt.Sprintf("panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return failed(res, err)
	}

	known, _ := tools.ParseToolID(string(id))
	tool := e.Registry.Get(known)
	if tool == nil {
		res.Output = step
		res.Status = StatusSuccess
		return res
	}

	arg := tool.Extract(step)

	if e.Policy != nil {
		decision, err := e.Policy.Evaluate(ctx, governance.Request{
			Index:    index,
			Tool:     known,
			Argument: arg,
			Step:     step,
			TaskID:   observability.TaskIDFrom(ctx),
		})
		if err != nil {
			return failed(res, fmt.Errorf("policy check: %w", err))
		}
		e.Logger.LogPolicyCheck(ctx, string(known), string(decision.Effect), decision.Reason)
		if decision.Effect == governance.EffectDeny {
			return failed(res, fmt.Errorf("denied: %s", decision.Reason))
		}
	}

	e.Logger.LogToolCall(ctx, string(known), arg)
	output, err := tool.Execute(ctx, arg)
	e.Logger.LogToolResult(ctx, string(known), output, err)
	if err != nil {
		return failed(res, err)
	}

	res.Output = output
	res.Status = StatusSuccess
	return res
}

// toolLabel bounds the tool label to the known ids plus "unknown".
func toolLabel(id tools.ToolID) string {
	known, ok := tools.ParseToolID(string(id))
	if !ok {
		return "unknown"
	}
	return string(known)
}

func failed(res StepResult, err error) StepResult {
	res.Output = err.Error()
	res.Status = StatusFailed
	return res
}
