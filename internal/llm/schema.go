package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Schema is a named result shape the model must produce. The name doubles
// as the function the model is asked to call.
type Schema struct {
	Name        string
	Description string
	JSON        *jsonschema.Schema

	resolved *jsonschema.Resolved
}

func NewSchema(name, description string, s *jsonschema.Schema) (*Schema, error) {
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolving schema %s: %w", name, err)
	}
	return &Schema{
		Name:        name,
		Description: description,
		JSON:        s,
		resolved:    resolved,
	}, nil
}

// MustSchema is like NewSchema but panics on error. Use it for package
// level schema variables.
func MustSchema(name, description string, s *jsonschema.Schema) *Schema {
	sc, err := NewSchema(name, description, s)
	if err != nil {
		panic(err)
	}
	return sc
}

// Decode validates raw against the schema and then decodes it into out,
// rejecting fields the Go type does not declare.
func (s *Schema) Decode(raw string, out any) error {
	fail := func(err error) error {
		return &SchemaValidationError{Schema: s.Name, Raw: raw, Err: err}
	}

	var instance any
	if err := json.Unmarshal([]byte(raw), &instance); err != nil {
		return fail(fmt.Errorf("invalid json: %w", err))
	}
	if err := s.resolved.Validate(instance); err != nil {
		return fail(err)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fail(err)
	}
	return nil
}

// String is a string schema with an optional minimum length.
func String(description string, minLength int) *jsonschema.Schema {
	s := &jsonschema.Schema{Type: "string", Description: description}
	if minLength > 0 {
		s.MinLength = &minLength
	}
	return s
}

// Array is an array schema of items.
func Array(description string, items *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: description, Items: items}
}

// Object is an object schema; required names the mandatory properties.
func Object(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}
