package tool

import (
	"context"
	"encoding/json"
)

// Capability is one external action the model may invoke. Arguments arrive
// already validated against the descriptor schema. The returned value must be
// JSON-serializable.
type Capability func(ctx context.Context, args map[string]any) (any, error)

// Descriptor binds a stable tool name to a capability and its input schema.
type Descriptor struct {
	Name        string
	Description string
	Schema      *Schema
	Capability  Capability
}

// CallRequest is a single tool invocation emitted by the model.
type CallRequest struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// FailureKind classifies why a tool call failed.
type FailureKind string

const (
	KindValidation    FailureKind = "validation_error"
	KindUnknownTool   FailureKind = "unknown_tool"
	KindCollaborator  FailureKind = "collaborator_error"
	KindSerialization FailureKind = "serialization_error"
	KindUnhandled     FailureKind = "unhandled_error"
)

// Failure carries the structured context of a failed tool call.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Trace   string      `json:"trace,omitempty"`
}

// CallResult is the outcome of exactly one CallRequest. Either Value or
// Failure is set, never both.
type CallResult struct {
	Request CallRequest `json:"request"`
	Value   any         `json:"value,omitempty"`
	Failure *Failure    `json:"failure,omitempty"`
}

// OK reports whether the call succeeded.
func (r CallResult) OK() bool {
	return r.Failure == nil
}

// Payload renders the result as the JSON document fed back to the model in a
// tool_result turn. Failures are surfaced as {"error": ...} objects so the
// model can observe and react to its own mistakes.
func (r CallResult) Payload() string {
	if r.Failure != nil {
		b, _ := json.Marshal(map[string]any{
			"error": r.Failure.Message,
			"kind":  string(r.Failure.Kind),
		})
		return string(b)
	}
	b, err := json.Marshal(r.Value)
	if err != nil {
		return `{"error":"unserializable tool result"}`
	}
	return string(b)
}
