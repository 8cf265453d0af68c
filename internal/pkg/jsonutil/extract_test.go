package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONBareObject(t *testing.T) {
	got, ok := ExtractJSON(`{"action":"hold","reasoning":"waiting"}`)
	require.True(t, ok)
	assert.JSONEq(t, `{"action":"hold","reasoning":"waiting"}`, got)
}

func TestExtractJSONSurroundedByProse(t *testing.T) {
	raw := `After reviewing the indicators I will stay flat.

{"action": "hold", "reasoning": "RSI is neutral"}

Let me know next cycle.`
	got, ok := ExtractJSON(raw)
	require.True(t, ok)
	assert.JSONEq(t, `{"action":"hold","reasoning":"RSI is neutral"}`, got)
}

func TestExtractJSONCodeFence(t *testing.T) {
	raw := "Here is my decision:\n```json\n{\"action\": \"buy\", \"parameters\": {\"symbol\": \"BTC/USD\"}}\n```"
	got, ok := ExtractJSON(raw)
	require.True(t, ok)
	assert.JSONEq(t, `{"action":"buy","parameters":{"symbol":"BTC/USD"}}`, got)
}

func TestExtractJSONFenceWithoutLanguageTag(t *testing.T) {
	raw := "```\n{\"action\": \"sell\"}\n```"
	got, ok := ExtractJSON(raw)
	require.True(t, ok)
	assert.JSONEq(t, `{"action":"sell"}`, got)
}

func TestExtractJSONNestedBraces(t *testing.T) {
	raw := `decision: {"action":"buy","parameters":{"symbol":"BTC/USD","meta":{"note":"a}b"}}} trailing`
	got, ok := ExtractJSON(raw)
	require.True(t, ok)
	assert.JSONEq(t, `{"action":"buy","parameters":{"symbol":"BTC/USD","meta":{"note":"a}b"}}}`, got)
}

func TestExtractJSONEscapedQuotes(t *testing.T) {
	raw := `{"reasoning":"model said \"hold\" twice"}`
	got, ok := ExtractJSON(raw)
	require.True(t, ok)
	assert.JSONEq(t, raw, got)
}

func TestExtractJSONArray(t *testing.T) {
	got, ok := ExtractJSON(`the levels are [1, 2, 3] roughly`)
	require.True(t, ok)
	assert.Equal(t, "[1, 2, 3]", got)
}

func TestExtractJSONNoPayload(t *testing.T) {
	_, ok := ExtractJSON("I could not reach a decision this cycle.")
	assert.False(t, ok)
	_, ok = ExtractJSON("")
	assert.False(t, ok)
	_, ok = ExtractJSON(`{"unterminated": true`)
	assert.False(t, ok)
}
