package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/aiops/internal/llm"
	"github.com/rahul/aiops/internal/llm/llmtest"
)

type answer struct {
	Result  string   `json:"result"`
	Sources []string `json:"sources"`
}

var answerSchema = llm.MustSchema("submit_answer", "Submit the answer.", llm.Object(
	map[string]*jsonschema.Schema{
		"result":  llm.String("summary", 1),
		"sources": llm.Array("sources used", llm.String("", 0)),
	},
	"result", "sources",
))

func complete(t *testing.T, model *llmtest.Model) (answer, error) {
	t.Helper()
	c := llm.NewClient(model, "fake", nil)
	var out answer
	err := c.Complete(context.Background(), "summarize", answerSchema, &out)
	return out, err
}

func TestComplete_ToolCall(t *testing.T) {
	model := llmtest.NewModel().On("submit_answer", llmtest.Response{
		Args: `{"result":"done","sources":["Open-Meteo API"]}`,
	})

	out, err := complete(t, model)
	require.NoError(t, err)
	assert.Equal(t, "done", out.Result)
	assert.Equal(t, []string{"Open-Meteo API"}, out.Sources)

	calls := model.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "submit_answer", calls[0].Function)
	assert.Equal(t, "summarize", calls[0].Prompt)
}

func TestComplete_ContentFallback(t *testing.T) {
	model := llmtest.NewModel().On("submit_answer", llmtest.Response{
		Content: ` {"result":"done","sources":[]} `,
	})

	out, err := complete(t, model)
	require.NoError(t, err)
	assert.Equal(t, "done", out.Result)
	assert.Empty(t, out.Sources)
}

func TestComplete_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `the weather is nice`},
		{"missing required field", `{"result":"done"}`},
		{"wrong type", `{"result":"done","sources":"Open-Meteo"}`},
		{"empty result", `{"result":"","sources":[]}`},
		{"unknown field", `{"result":"done","sources":[],"confidence":0.9}`},
		{"markdown fenced", "```json\n{\"result\":\"done\",\"sources\":[]}\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := llmtest.NewModel().On("submit_answer", llmtest.Response{Args: tt.raw})

			_, err := complete(t, model)
			require.Error(t, err)

			var sve *llm.SchemaValidationError
			require.True(t, errors.As(err, &sve), "got %T: %v", err, err)
			assert.Equal(t, "submit_answer", sve.Schema)
			assert.Equal(t, tt.raw, sve.Raw)
		})
	}
}

func TestComplete_ProviderErrors(t *testing.T) {
	boom := errors.New("connection refused")
	tests := []struct {
		name string
		resp llmtest.Response
	}{
		{"transport failure", llmtest.Response{Err: boom}},
		{"no choices", llmtest.Response{Empty: true}},
		{"blank content", llmtest.Response{Content: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := llmtest.NewModel().On("submit_answer", tt.resp)

			_, err := complete(t, model)
			require.Error(t, err)

			var pe *llm.ProviderError
			require.True(t, errors.As(err, &pe), "got %T: %v", err, err)
			assert.Equal(t, "fake", pe.Provider)
		})
	}
}

func TestNewModel_UnknownProvider(t *testing.T) {
	_, err := llm.NewModel(llm.ProviderConfig{Name: "bard"})
	assert.Error(t, err)
}

func TestNewModel_RequiresKey(t *testing.T) {
	for _, name := range []string{"openai", "openrouter", "anthropic"} {
		_, err := llm.NewModel(llm.ProviderConfig{Name: name, Model: "m"})
		assert.Error(t, err, name)
	}
}

func TestNewModel_OpenAI(t *testing.T) {
	model, err := llm.NewModel(llm.ProviderConfig{Name: "openai", APIKey: "sk-test", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.NotNil(t, model)
}
