// Package llmtest provides a scripted llms.Model for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// Response is one scripted answer. Args is returned as the arguments of a
// call to the requested function; Content as plain text.
type Response struct {
	Args    string
	Content string
	Err     error
	// Empty returns a response without choices.
	Empty bool
}

// Call records what the model was asked.
type Call struct {
	Function string
	Prompt   string
}

// Model answers GenerateContent from per-function queues. The last
// response of a queue is reused once the queue is drained.
type Model struct {
	mu        sync.Mutex
	responses map[string][]Response
	calls     []Call
}

func NewModel() *Model {
	return &Model{responses: map[string][]Response{}}
}

// On queues responses for calls that force the named function.
func (m *Model) On(function string, rs ...Response) *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[function] = append(m.responses[function], rs...)
	return m
}

func (m *Model) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	var function string
	if len(opts.Tools) > 0 && opts.Tools[0].Function != nil {
		function = opts.Tools[0].Function.Name
	}

	m.mu.Lock()
	m.calls = append(m.calls, Call{Function: function, Prompt: lastText(messages)})
	queue := m.responses[function]
	if len(queue) == 0 {
		m.mu.Unlock()
		return nil, errors.New("llmtest: no response scripted for " + function)
	}
	r := queue[0]
	if len(queue) > 1 {
		m.responses[function] = queue[1:]
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Empty {
		return &llms.ContentResponse{}, nil
	}

	choice := &llms.ContentChoice{Content: r.Content}
	if r.Args != "" {
		choice.ToolCalls = []llms.ToolCall{{
			ID:   "call_1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      function,
				Arguments: r.Args,
			},
		}}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{choice}}, nil
}

func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func lastText(messages []llms.MessageContent) string {
	if len(messages) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range messages[len(messages)-1].Parts {
		if t, ok := p.(llms.TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}
