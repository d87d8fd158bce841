package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPromptManager_Defaults(t *testing.T) {
	pm, err := NewPromptManager("")
	if err != nil {
		t.Fatal(err)
	}

	prompt, err := pm.PlannerPrompt(PlannerData{
		Task:  "Weather in Delhi",
		Tools: "- weather: Current weather",
	})
	if err != nil {
		t.Fatal(err)
	}

	expectedParts := []string{
		"Task: Weather in Delhi",
		"- weather: Current weather",
		"tools_needed",
	}
	for _, part := range expectedParts {
		if !strings.Contains(prompt, part) {
			t.Errorf("Prompt missing expected part: %s", part)
		}
	}

	prompt, err = pm.VerifierPrompt(VerifierData{
		Task:    "Weather in Delhi",
		Results: "- Get weather for Delhi: success",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "Original Task: Weather in Delhi") {
		t.Error("Verifier prompt missing task")
	}
	if !strings.Contains(prompt, "- Get weather for Delhi: success") {
		t.Error("Verifier prompt missing results")
	}
}

func TestPromptManager_DirectoryOverride(t *testing.T) {
	tempDir := t.TempDir()

	err := os.WriteFile(filepath.Join(tempDir, "planner.md"), []byte("Custom plan for {{.Task}}"), 0644)
	if err != nil {
		t.Fatal(err)
	}

	pm, err := NewPromptManager(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	prompt, err := pm.PlannerPrompt(PlannerData{Task: "MERN repos"})
	if err != nil {
		t.Fatal(err)
	}
	if prompt != "Custom plan for MERN repos" {
		t.Errorf("Unexpected prompt: %q", prompt)
	}

	// verifier.md is absent so the default applies
	prompt, err = pm.VerifierPrompt(VerifierData{Task: "MERN repos"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "Original Task: MERN repos") {
		t.Error("Expected default verifier prompt")
	}
}

func TestPromptManager_InvalidTemplate(t *testing.T) {
	tempDir := t.TempDir()

	err := os.WriteFile(filepath.Join(tempDir, "verifier.md"), []byte("{{.Task"), 0644)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewPromptManager(tempDir); err == nil {
		t.Error("Expected parse error")
	}
}
