package governance

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rahul/aiops/internal/tools"
)

// Effect is the decision for one tool dispatch.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request describes one tool dispatch the executor is about to make.
type Request struct {
	Index    int // zero-based position of the step in the plan
	Tool     tools.ToolID
	Argument string
	Step     string
	TaskID   string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine decides whether a tool dispatch may run.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// ToolPolicy switches off whole tools and rejects extracted arguments that
// match a restricted pattern. It is read-only once built.
type ToolPolicy struct {
	deniedTools   map[tools.ToolID]bool
	argumentRules []*regexp.Regexp
}

// NewToolPolicy builds a policy from configured deny lists. Tool names
// must be dispatchable ids; none cannot be denied since it never calls out.
func NewToolPolicy(deniedTools, deniedPatterns []string) (*ToolPolicy, error) {
	p := &ToolPolicy{deniedTools: make(map[tools.ToolID]bool, len(deniedTools))}

	for _, name := range deniedTools {
		id, ok := tools.ParseToolID(name)
		if !ok || id == tools.ToolNone {
			return nil, fmt.Errorf("cannot deny tool %q: not a dispatchable tool", name)
		}
		p.deniedTools[id] = true
	}

	for _, pattern := range deniedPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid deny pattern %q: %w", pattern, err)
		}
		p.argumentRules = append(p.argumentRules, re)
	}
	return p, nil
}

// Denies reports whether id is switched off.
func (p *ToolPolicy) Denies(id tools.ToolID) bool {
	return p.deniedTools[id]
}

func (p *ToolPolicy) Evaluate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if p.deniedTools[req.Tool] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("step %d: tool %s is disabled by policy", req.Index+1, req.Tool),
		}, nil
	}

	for _, re := range p.argumentRules {
		if loc := re.FindStringIndex(req.Argument); loc != nil {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("step %d: %s argument %q matches restricted pattern %s",
					req.Index+1, req.Tool, req.Argument[loc[0]:loc[1]], re),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: fmt.Sprintf("step %d: %s allowed", req.Index+1, req.Tool),
	}, nil
}
