package agent

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"
)

const (
	plannerFile  = "planner.md"
	verifierFile = "verifier.md"
)

const defaultPlannerPrompt = `Convert this task into a plan with steps and tools needed.
For each step, identify the tool it needs from the list below, or 'none'.

Available tools:
{{.Tools}}

Task: {{.Task}}

Return 'steps' (list of action strings) and 'tools_needed' (one tool id per step, in the same order).
`

const defaultVerifierPrompt = `Verify if these execution results successfully complete the task.
Check if all requested information is present.
If any data is missing, note it.

Original Task: {{.Task}}

Execution Results:
{{.Results}}

Provide a final summary and list all sources/tools used.
`

// PlannerData is the input of the planner template.
type PlannerData struct {
	Task  string
	Tools string
}

// VerifierData is the input of the verifier template.
type VerifierData struct {
	Task    string
	Results string
}

// PromptManager renders the planner and verifier instructions. Templates
// are parsed once; a file in Directory replaces the built-in default of
// the same name.
type PromptManager struct {
	Directory string

	planner  *template.Template
	verifier *template.Template
}

func NewPromptManager(dir string) (*PromptManager, error) {
	pm := &PromptManager{Directory: dir}

	var err error
	if pm.planner, err = pm.load(plannerFile, defaultPlannerPrompt); err != nil {
		return nil, err
	}
	if pm.verifier, err = pm.load(verifierFile, defaultVerifierPrompt); err != nil {
		return nil, err
	}
	return pm, nil
}

func (pm *PromptManager) load(name, fallback string) (*template.Template, error) {
	text := fallback
	if pm.Directory != "" {
		data, err := os.ReadFile(filepath.Join(pm.Directory, name))
		switch {
		case err == nil:
			text = string(data)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read prompt %s: %w", name, err)
		}
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt %s: %w", name, err)
	}
	return tmpl, nil
}

func (pm *PromptManager) PlannerPrompt(data PlannerData) (string, error) {
	return render(pm.planner, data)
}

func (pm *PromptManager) VerifierPrompt(data VerifierData) (string, error) {
	return render(pm.verifier, data)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
