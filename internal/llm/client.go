// Package llm turns prompts into schema-validated values using a
// langchaingo model.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahul/aiops/internal/observability"
	"github.com/tmc/langchaingo/llms"
)

// Completer is anything that can fill out with schema-shaped output.
type Completer interface {
	Complete(ctx context.Context, prompt string, schema *Schema, out any) error
}

// CompleteAs is the typed form of Complete.
func CompleteAs[T any](ctx context.Context, c Completer, prompt string, schema *Schema) (T, error) {
	var out T
	if err := c.Complete(ctx, prompt, schema, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Client asks a model for output shaped by a Schema. It holds no per-call
// state and is safe for concurrent use.
type Client struct {
	Model       llms.Model
	Provider    string
	Temperature float64
	Logger      *observability.Logger
}

func NewClient(model llms.Model, provider string, logger *observability.Logger) *Client {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Client{
		Model:    model,
		Provider: provider,
		Logger:   logger,
	}
}

// Complete sends prompt to the model, forcing a single call to the
// schema's function, and decodes the validated arguments into out.
// Provider failures return *ProviderError, shape mismatches
// *SchemaValidationError. Nothing is retried.
func (c *Client) Complete(ctx context.Context, prompt string, schema *Schema, out any) error {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(
			"Respond only by calling the %s function with arguments that match its JSON schema.", schema.Name)),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	opts := []llms.CallOption{
		llms.WithTools([]llms.Tool{
			{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        schema.Name,
					Description: schema.Description,
					Parameters:  schema.JSON,
				},
			},
		}),
		llms.WithToolChoice(llms.ToolChoice{
			Type:     "function",
			Function: &llms.FunctionReference{Name: schema.Name},
		}),
	}
	if c.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.Temperature))
	}

	resp, err := c.Model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return &ProviderError{Provider: c.Provider, Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return &ProviderError{Provider: c.Provider, Err: errEmptyResponse}
	}

	raw, err := candidate(resp.Choices[0], schema.Name)
	if err != nil {
		return &ProviderError{Provider: c.Provider, Err: err}
	}
	c.Logger.LogLLM(ctx, schema.Name, prompt, raw)

	return schema.Decode(raw, out)
}

// candidate picks the model output to validate: the arguments of the
// forced function call, or plain content from providers that answer
// without tool calls.
func candidate(choice *llms.ContentChoice, name string) (string, error) {
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall != nil && tc.FunctionCall.Name == name {
			return tc.FunctionCall.Arguments, nil
		}
	}
	if choice.FuncCall != nil && choice.FuncCall.Name == name {
		return choice.FuncCall.Arguments, nil
	}
	if len(choice.ToolCalls) > 0 && choice.ToolCalls[0].FunctionCall != nil {
		// Let schema validation report the wrong payload.
		return choice.ToolCalls[0].FunctionCall.Arguments, nil
	}
	if content := strings.TrimSpace(choice.Content); content != "" {
		return content, nil
	}
	return "", errEmptyResponse
}
