package tool

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Param describes one named tool parameter. Order of declaration is preserved
// in the schema document shown to the model.
type Param struct {
	Name        string
	Type        string // string, number, integer, boolean, array, object
	Description string
	Required    bool
	Default     any
	Enum        []any
}

// Schema is a compiled input schema for one tool. Construction fails fast on
// an invalid definition so a bad registry never reaches dispatch.
type Schema struct {
	params   []Param
	doc      map[string]any
	compiled *jsonschema.Schema
}

// NewSchema compiles a parameter list into a JSON-schema validator. Unknown
// extra arguments are rejected.
func NewSchema(params ...Param) (*Schema, error) {
	props := make(map[string]any, len(params))
	var required []string
	for _, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("schema param requires a name")
		}
		if _, dup := props[p.Name]; dup {
			return nil, fmt.Errorf("schema param %q declared twice", p.Name)
		}
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	doc := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{params: params, doc: doc, compiled: compiled}, nil
}

// MustSchema is NewSchema for statically declared tool tables.
func MustSchema(params ...Param) *Schema {
	s, err := NewSchema(params...)
	if err != nil {
		panic(err)
	}
	return s
}

// Params returns the declared parameters in declaration order.
func (s *Schema) Params() []Param {
	out := make([]Param, len(s.params))
	copy(out, s.params)
	return out
}

// Document returns the JSON-schema object advertised to the model.
func (s *Schema) Document() map[string]any {
	return s.doc
}

// ValidateAndFill checks args against the schema and returns a normalized
// copy with defaults applied for absent optional parameters. Argument values
// are round-tripped through JSON so numeric types match what the validator and
// capabilities expect.
func (s *Schema) ValidateAndFill(args map[string]any) (map[string]any, error) {
	merged := make(map[string]any, len(args)+len(s.params))
	for k, v := range args {
		merged[k] = v
	}
	for _, p := range s.params {
		if p.Required || p.Default == nil {
			continue
		}
		if _, present := merged[p.Name]; !present {
			merged[p.Name] = p.Default
		}
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("arguments are not JSON-compatible: %w", err)
	}
	var normalized map[string]any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("normalize arguments: %w", err)
	}
	if err := s.compiled.Validate(any(normalized)); err != nil {
		return nil, err
	}
	return normalized, nil
}
