package llm

import (
	"errors"
	"fmt"
)

var errEmptyResponse = errors.New("empty response")

// ProviderError reports a model provider that was unreachable, rejected
// the request, or answered with nothing usable.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("model provider: %v", e.Err)
	}
	return fmt.Sprintf("model provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// SchemaValidationError reports model output that does not match the
// requested schema. Raw holds the offending output.
type SchemaValidationError struct {
	Schema string
	Raw    string
	Err    error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("response does not match schema %s: %v", e.Schema, e.Err)
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}
