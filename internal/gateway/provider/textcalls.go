package provider

import (
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"arena/internal/pkg/jsonutil"
)

// ParseTextToolCalls recovers tool calls that a model embedded as JSON in its
// text output instead of the native tool_calls field. Accepted shapes:
//
//	{"name": "...", "arguments": {...}}
//	{"tool_calls": [{"function": {"name": "...", "arguments": {...}}}, ...]}
//
// Anything else returns nil and the content is treated as plain text.
func ParseTextToolCalls(content string) []ToolCall {
	raw, ok := jsonutil.ExtractJSON(content)
	if !ok || !gjson.Valid(raw) {
		return nil
	}
	parsed := gjson.Parse(raw)

	if calls := parsed.Get("tool_calls"); calls.IsArray() {
		var out []ToolCall
		calls.ForEach(func(_, call gjson.Result) bool {
			fn := call.Get("function")
			if !fn.Exists() {
				fn = call
			}
			if tc, ok := toolCallFromNode(fn); ok {
				out = append(out, tc)
			}
			return true
		})
		return out
	}

	if tc, ok := toolCallFromNode(parsed); ok {
		return []ToolCall{tc}
	}
	return nil
}

func toolCallFromNode(node gjson.Result) (ToolCall, bool) {
	name := node.Get("name").String()
	if name == "" {
		return ToolCall{}, false
	}
	args := map[string]any{}
	if argNode := node.Get("arguments"); argNode.IsObject() {
		if m, ok := argNode.Value().(map[string]any); ok {
			args = m
		}
	} else if argNode := node.Get("parameters"); argNode.IsObject() {
		if m, ok := argNode.Value().(map[string]any); ok {
			args = m
		}
	}
	return NewToolCall(uuid.NewString(), name, args), true
}
