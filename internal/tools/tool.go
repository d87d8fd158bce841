package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ToolID identifies a capability the planner may assign to a step.
type ToolID string

const (
	ToolNone    ToolID = "none"
	ToolWeather ToolID = "weather"
	ToolGitHub  ToolID = "github"
)

// KnownToolIDs lists every identifier the planner is allowed to emit.
var KnownToolIDs = []ToolID{ToolWeather, ToolGitHub, ToolNone}

// ParseToolID maps free text onto a known identifier.
// Anything unrecognised resolves to ToolNone with ok=false.
func ParseToolID(s string) (ToolID, bool) {
	switch ToolID(strings.ToLower(strings.TrimSpace(s))) {
	case ToolWeather:
		return ToolWeather, true
	case ToolGitHub:
		return ToolGitHub, true
	case ToolNone:
		return ToolNone, true
	default:
		return ToolNone, false
	}
}

// Tool defines the interface for every step capability.
type Tool interface {
	ID() ToolID
	Description() string
	// Extract pulls the capability's argument out of free step text.
	// It never fails: a usable default is returned instead.
	Extract(step string) string
	Execute(ctx context.Context, arg string) (string, error)
}

// Registry manages the set of available tools. It is populated once at
// startup and only read afterwards.
type Registry struct {
	Tools map[ToolID]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{
		Tools: make(map[ToolID]Tool),
	}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t Tool) {
	if t.ID() == ToolNone {
		panic("tools: the none tool is a pass-through and cannot be registered")
	}
	r.Tools[t.ID()] = t
}

// Get returns the tool registered for id, or nil.
func (r *Registry) Get(id ToolID) Tool {
	return r.Tools[id]
}

// Describe renders one "- id: description" line per tool, plus the
// pass-through entry, in a stable order.
func (r *Registry) Describe() string {
	ids := make([]string, 0, len(r.Tools))
	for id := range r.Tools {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "- %s: %s\n", id, r.Tools[ToolID(id)].Description())
	}
	fmt.Fprintf(&b, "- %s: no external tool is needed for this step\n", ToolNone)
	return b.String()
}

// FuncTool adapts plain functions to the Tool interface.
type FuncTool struct {
	ToolID    ToolID
	Desc      string
	ExtractFn func(step string) string
	Fn        func(ctx context.Context, arg string) (string, error)
}

func (f *FuncTool) ID() ToolID          { return f.ToolID }
func (f *FuncTool) Description() string { return f.Desc }

func (f *FuncTool) Extract(step string) string {
	if f.ExtractFn == nil {
		return step
	}
	return f.ExtractFn(step)
}

func (f *FuncTool) Execute(ctx context.Context, arg string) (string, error) {
	return f.Fn(ctx, arg)
}
