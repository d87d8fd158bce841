package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rahul/aiops/internal/observability"
)

// Task outcomes recorded in logs and metrics.
const (
	OutcomeSuccess           = "success"
	OutcomePlanningError     = "planning_error"
	OutcomeVerificationError = "verification_error"
	OutcomeInternalError     = "internal_error"
)

// Orchestrator chains Planner, Executor and Verifier for one task. It is
// stateless between runs and safe for concurrent use.
type Orchestrator struct {
	Planner  *Planner
	Executor *Executor
	Verifier *Verifier
	Logger   *observability.Logger
	Metrics  *observability.Metrics
}

func NewOrchestrator(planner *Planner, executor *Executor, verifier *Verifier, logger *observability.Logger, metrics *observability.Metrics) *Orchestrator {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Orchestrator{
		Planner:  planner,
		Executor: executor,
		Verifier: verifier,
		Logger:   logger,
		Metrics:  metrics,
	}
}

// Run executes the pipeline. Planner and Verifier errors, and panics from
// any stage, become the Error field; step failures stay in the report.
func (o *Orchestrator) Run(ctx context.Context, task string) CombinedResult {
	if observability.TaskIDFrom(ctx) == "" {
		ctx = observability.WithTaskID(ctx, uuid.NewString())
	}
	start := time.Now()

	result, err := o.run(ctx, task)
	outcome := OutcomeSuccess
	if err != nil {
		outcome = classify(err)
		result = CombinedResult{Task: task, Error: err.Error()}
	}

	o.Logger.LogTask(ctx, task, outcome, time.Since(start), err)
	o.Metrics.ObserveTask(outcome)
	return result
}

func (o *Orchestrator) run(ctx context.Context, task string) (result CombinedResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &internalError{value: r}
		}
	}()

	var plan Plan
	o.stage("plan", func() {
		plan, err = o.Planner.Plan(ctx, task)
	})
	if err != nil {
		return CombinedResult{}, err
	}

	var report ExecutionReport
	o.stage("execute", func() {
		report = o.Executor.Execute(ctx, plan)
	})

	var final FinalOutput
	o.stage("verify", func() {
		final, err = o.Verifier.Verify(ctx, task, report)
	})
	if err != nil {
		return CombinedResult{}, err
	}

	return CombinedResult{
		Task:         task,
		Plan:         &plan,
		Execution:    report,
		Verification: &final,
	}, nil
}

func (o *Orchestrator) stage(name string, fn func()) {
	start := time.Now()
	defer func() { o.Metrics.ObserveStage(name, time.Since(start)) }()
	fn()
}

type internalError struct {
	value any
}

func (e *internalError) Error() string {
	return fmt.Sprintf("internal error: %v", e.value)
}

func classify(err error) string {
	var pe *PlanningError
	var ve *VerificationError
	switch {
	case errors.As(err, &pe):
		return OutcomePlanningError
	case errors.As(err, &ve):
		return OutcomeVerificationError
	default:
		return OutcomeInternalError
	}
}
