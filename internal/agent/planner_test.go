package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/aiops/internal/llm"
	"github.com/rahul/aiops/internal/llm/llmtest"
	"github.com/rahul/aiops/internal/tools"
)

func newTestPlanner(t *testing.T, model *llmtest.Model) *Planner {
	t.Helper()
	prompts, err := NewPromptManager("")
	require.NoError(t, err)
	return NewPlanner(llm.NewClient(model, "fake", nil), delhiRegistry(nil), prompts, nil)
}

func TestPlan_Decodes(t *testing.T) {
	model := llmtest.NewModel().On("propose_plan", llmtest.Response{Args: delhiPlan})

	plan, err := newTestPlanner(t, model).Plan(context.Background(), "Weather in Delhi and top MERN repos")
	require.NoError(t, err)
	assert.Equal(t, []string{"Get weather for Delhi", "Search for MERN repos"}, plan.Steps)
	assert.Equal(t, []tools.ToolID{tools.ToolWeather, tools.ToolGitHub}, plan.ToolsNeeded)
	assert.Equal(t, tools.ToolNone, plan.ToolFor(2))
}

func TestPlan_PromptListsTools(t *testing.T) {
	model := llmtest.NewModel().On("propose_plan", llmtest.Response{Args: delhiPlan})

	_, err := newTestPlanner(t, model).Plan(context.Background(), "task")
	require.NoError(t, err)

	prompt := model.Calls()[0].Prompt
	assert.Contains(t, prompt, "- github: Top GitHub repositories for a query")
	assert.Contains(t, prompt, "- weather: Current weather for a city")
	assert.Contains(t, prompt, "- none:")
}

func TestPlan_Errors(t *testing.T) {
	tests := []struct {
		name    string
		resp    llmtest.Response
		wantSVE bool
	}{
		{"missing tools_needed", llmtest.Response{Args: `{"steps":["a"]}`}, true},
		{"blank step", llmtest.Response{Args: `{"steps":[""],"tools_needed":["none"]}`}, true},
		{"prose answer", llmtest.Response{Content: "Step 1: check the weather"}, true},
		{"provider down", llmtest.Response{Err: errors.New("dial tcp: timeout")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := llmtest.NewModel().On("propose_plan", tt.resp)

			_, err := newTestPlanner(t, model).Plan(context.Background(), "task")
			require.Error(t, err)

			var pe *PlanningError
			require.True(t, errors.As(err, &pe))

			var sve *llm.SchemaValidationError
			var provErr *llm.ProviderError
			if tt.wantSVE {
				assert.True(t, errors.As(err, &sve), "got %v", err)
			} else {
				assert.True(t, errors.As(err, &provErr), "got %v", err)
			}
		})
	}
}

func TestVerify_DigestAndDecode(t *testing.T) {
	model := llmtest.NewModel().On("submit_verification", llmtest.Response{Args: delhiVerification})
	prompts, err := NewPromptManager("")
	require.NoError(t, err)
	v := NewVerifier(llm.NewClient(model, "fake", nil), prompts, nil)

	report := ExecutionReport{
		{Step: "Get weather for Delhi", Tool: tools.ToolWeather, Output: "Weather in Delhi: 31°C, Clear [Open-Meteo API]", Status: StatusSuccess},
		{Step: "Search for MERN repos", Tool: tools.ToolGitHub, Output: "github: status 503", Status: StatusFailed},
	}
	out, err := v.Verify(context.Background(), "Weather in Delhi and top MERN repos", report)
	require.NoError(t, err)
	assert.Equal(t, []string{"Open-Meteo API", "GitHub API"}, out.Sources)

	prompt := model.Calls()[0].Prompt
	assert.Contains(t, prompt, "- Get weather for Delhi: success\n- Search for MERN repos: failed")
}

func TestVerify_SchemaError(t *testing.T) {
	model := llmtest.NewModel().On("submit_verification", llmtest.Response{Args: `{"result":"ok"}`})
	prompts, err := NewPromptManager("")
	require.NoError(t, err)
	v := NewVerifier(llm.NewClient(model, "fake", nil), prompts, nil)

	_, err = v.Verify(context.Background(), "task", nil)
	require.Error(t, err)

	var ve *VerificationError
	var sve *llm.SchemaValidationError
	assert.True(t, errors.As(err, &ve))
	assert.True(t, errors.As(err, &sve))
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "", Digest(nil))
	assert.Equal(t, "- a: success", Digest(ExecutionReport{{Step: "a", Status: StatusSuccess}}))
}

func TestCombinedResult_JSON(t *testing.T) {
	raw, err := json.Marshal(CombinedResult{Task: "t", Plan: &Plan{Steps: []string{}, ToolsNeeded: []tools.ToolID{}}, Verification: &FinalOutput{Result: "nothing to do", Sources: []string{}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"task": "t",
		"plan": {"steps": [], "tools_needed": []},
		"execution": [],
		"verification": {"result": "nothing to do", "sources": []}
	}`, string(raw))

	raw, err = json.Marshal(CombinedResult{Task: "t", Error: "planning failed: boom"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"task": "t", "error": "planning failed: boom"}`, string(raw))
}
