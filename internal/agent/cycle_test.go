package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/internal/gateway/provider"
	"arena/internal/tool"
)

// scriptedProvider replays a fixed sequence of assistant turns. When the
// script runs out it repeats the last step.
type scriptedProvider struct {
	steps []scriptStep
	calls int
}

type scriptStep struct {
	msg provider.Message
	err error
}

func (p *scriptedProvider) ID() string { return "scripted/test" }

func (p *scriptedProvider) Chat(_ context.Context, _ []provider.Message, _ []map[string]any) (*provider.ChatResponse, error) {
	idx := p.calls
	if idx >= len(p.steps) {
		idx = len(p.steps) - 1
	}
	p.calls++
	step := p.steps[idx]
	if step.err != nil {
		return nil, step.err
	}
	return &provider.ChatResponse{Model: "test", Message: step.msg}, nil
}

func assistantText(content string) provider.Message {
	return provider.Message{Role: provider.RoleAssistant, Content: content}
}

func assistantCalls(calls ...provider.ToolCall) provider.Message {
	return provider.Message{Role: provider.RoleAssistant, ToolCalls: calls}
}

func testRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(&tool.Descriptor{
		Name:        "get_balance",
		Description: "test balance",
		Schema:      tool.MustSchema(),
		Capability: func(_ context.Context, _ map[string]any) (any, error) {
			return map[string]any{"cash": 1000}, nil
		},
	}))
	require.NoError(t, reg.Register(&tool.Descriptor{
		Name:        "place_order",
		Description: "test order",
		Schema: tool.MustSchema(
			tool.Param{Name: "symbol", Type: "string", Required: true},
			tool.Param{Name: "side", Type: "string", Required: true},
			tool.Param{Name: "quantity", Type: "number", Required: true},
		),
		Capability: func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{"status": "filled", "symbol": args["symbol"]}, nil
		},
	}))
	require.NoError(t, reg.Register(&tool.Descriptor{
		Name:        "broken_tool",
		Description: "always fails",
		Schema:      tool.MustSchema(),
		Capability: func(_ context.Context, _ map[string]any) (any, error) {
			return nil, errors.New("downstream offline")
		},
	}))
	reg.Seal()
	return reg
}

func newTestController(t *testing.T, p provider.ModelProvider, maxIterations int) *Controller {
	t.Helper()
	reg := testRegistry(t)
	ctrl, err := NewController(ControllerOptions{
		Provider:      p,
		Invoker:       tool.NewInvoker(reg),
		Registry:      reg,
		MaxIterations: maxIterations,
		IsCapitalTool: func(name string) bool { return name == "place_order" },
	})
	require.NoError(t, err)
	return ctrl
}

func TestCycleToolRoundThenDecision(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		{msg: assistantCalls(provider.NewToolCall("c1", "get_balance", nil))},
		{msg: assistantText(`{"action":"hold","reasoning":"nothing to do","parameters":{}}`)},
	}}
	ctrl := newTestController(t, p, 10)
	conv := NewConversation("sys", 50)

	outcome, err := ctrl.RunCycle(context.Background(), conv, 1)
	require.NoError(t, err)
	assert.Equal(t, ActionHold, outcome.Action)
	assert.Equal(t, "nothing to do", outcome.Reasoning)
	assert.Equal(t, 1, outcome.ToolCalls)
	assert.False(t, outcome.TradeExecuted)
	assert.Equal(t, 2, p.calls)

	// tool result was fed back to the model
	msgs := conv.Render()
	var sawToolTurn bool
	for _, m := range msgs {
		if m.Role == provider.RoleTool && m.ToolCallID == "c1" {
			sawToolTurn = true
			assert.Contains(t, m.Content, "1000")
		}
	}
	assert.True(t, sawToolTurn)
}

func TestCycleUnknownToolContinues(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		{msg: assistantCalls(provider.NewToolCall("c1", "does_not_exist", map[string]any{}))},
		{msg: assistantText(`{"action":"hold","reasoning":"tool was missing"}`)},
	}}
	ctrl := newTestController(t, p, 10)
	conv := NewConversation("sys", 50)

	outcome, err := ctrl.RunCycle(context.Background(), conv, 1)
	require.NoError(t, err)
	assert.Equal(t, ActionHold, outcome.Action)

	var errorPayload string
	for _, m := range conv.Render() {
		if m.Role == provider.RoleTool && m.ToolCallID == "c1" {
			errorPayload = m.Content
		}
	}
	require.NotEmpty(t, errorPayload)
	assert.Contains(t, errorPayload, "unknown_tool")
	assert.Contains(t, errorPayload, "place_order") // registered names listed
}

func TestCycleToolFailureIsFedBackNotFatal(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		{msg: assistantCalls(provider.NewToolCall("c1", "broken_tool", nil))},
		{msg: assistantText(`{"action":"hold","reasoning":"data source down"}`)},
	}}
	ctrl := newTestController(t, p, 10)
	conv := NewConversation("sys", 50)

	outcome, err := ctrl.RunCycle(context.Background(), conv, 1)
	require.NoError(t, err)
	assert.Equal(t, ActionHold, outcome.Action)
	assert.Equal(t, 1, outcome.ToolCalls)
}

func TestCycleIterationLimit(t *testing.T) {
	// Model asks for tools forever; controller must stop at the limit.
	p := &scriptedProvider{steps: []scriptStep{
		{msg: assistantCalls(provider.NewToolCall("c", "get_balance", nil))},
	}}
	ctrl := newTestController(t, p, 10)
	conv := NewConversation("sys", 200)

	outcome, err := ctrl.RunCycle(context.Background(), conv, 1)
	require.NoError(t, err)
	assert.True(t, outcome.IterationLimitHit)
	assert.Equal(t, ActionHold, outcome.Action)
	assert.Equal(t, 10, p.calls)
	assert.Equal(t, 10, outcome.ToolCalls)
}

func TestCycleIterationLimitKeepsLastAssistantText(t *testing.T) {
	// Models often narrate alongside their tool calls. When the budget runs
	// out that narration is the best reasoning we have.
	p := &scriptedProvider{steps: []scriptStep{
		{msg: provider.Message{
			Role:      provider.RoleAssistant,
			Content:   "checking the balance once more before sizing an entry",
			ToolCalls: []provider.ToolCall{provider.NewToolCall("c", "get_balance", nil)},
		}},
	}}
	ctrl := newTestController(t, p, 3)
	conv := NewConversation("sys", 200)

	outcome, err := ctrl.RunCycle(context.Background(), conv, 1)
	require.NoError(t, err)
	assert.True(t, outcome.IterationLimitHit)
	assert.Equal(t, "checking the balance once more before sizing an entry", outcome.Reasoning)
}

func TestCycleTradeExecuted(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		{msg: assistantCalls(provider.NewToolCall("c1", "place_order", map[string]any{
			"symbol": "BTC/USD", "side": "buy", "quantity": 0.5,
		}))},
		{msg: assistantText(`{"action":"buy","reasoning":"breakout confirmed","parameters":{"symbol":"BTC/USD"}}`)},
	}}
	ctrl := newTestController(t, p, 10)
	conv := NewConversation("sys", 50)

	outcome, err := ctrl.RunCycle(context.Background(), conv, 3)
	require.NoError(t, err)
	assert.True(t, outcome.TradeExecuted)
	assert.Equal(t, "place_order", outcome.Action)
	assert.Equal(t, "breakout confirmed", outcome.Reasoning)
	assert.Equal(t, "BTC/USD", outcome.Parameters["symbol"])
	assert.Contains(t, outcome.Result, "filled")
}

func TestCycleExecutedTradeActionIsToolName(t *testing.T) {
	// The recorded action names the executed tool regardless of how the
	// model describes the cycle afterwards.
	p := &scriptedProvider{steps: []scriptStep{
		{msg: assistantCalls(provider.NewToolCall("c1", "place_order", map[string]any{
			"symbol": "ETH/USD", "side": "sell", "quantity": 2.0,
		}))},
		{msg: assistantText(`{"action":"hold","reasoning":"position trimmed, waiting now"}`)},
	}}
	ctrl := newTestController(t, p, 10)
	conv := NewConversation("sys", 50)

	outcome, err := ctrl.RunCycle(context.Background(), conv, 4)
	require.NoError(t, err)
	assert.True(t, outcome.TradeExecuted)
	assert.Equal(t, "place_order", outcome.Action)
	assert.Equal(t, "position trimmed, waiting now", outcome.Reasoning)
}

func TestCycleClaimedTradeWithoutOrderBecomesHold(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		{msg: assistantText(`{"action":"buy","reasoning":"feeling lucky"}`)},
	}}
	ctrl := newTestController(t, p, 10)
	conv := NewConversation("sys", 50)

	outcome, err := ctrl.RunCycle(context.Background(), conv, 1)
	require.NoError(t, err)
	assert.False(t, outcome.TradeExecuted)
	assert.Equal(t, ActionHold, outcome.Action)
}

func TestCycleInferenceFailureIsFatal(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		{err: errors.New("connection refused")},
	}}
	ctrl := newTestController(t, p, 10)
	conv := NewConversation("sys", 50)

	outcome, err := ctrl.RunCycle(context.Background(), conv, 1)
	require.Error(t, err)
	assert.Equal(t, ActionError, outcome.Action)
	assert.Contains(t, outcome.Reasoning, "connection refused")
}

func TestCyclePlainTextReplyFallsBackToHold(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		{msg: assistantText("I will wait for a clearer setup before trading.")},
	}}
	ctrl := newTestController(t, p, 10)
	conv := NewConversation("sys", 50)

	outcome, err := ctrl.RunCycle(context.Background(), conv, 1)
	require.NoError(t, err)
	assert.Equal(t, ActionHold, outcome.Action)
	assert.Equal(t, "I will wait for a clearer setup before trading.", outcome.Reasoning)
}

func TestCycleSequentialDispatchOrder(t *testing.T) {
	var order []string
	reg := tool.NewRegistry()
	record := func(name string) tool.Capability {
		return func(_ context.Context, _ map[string]any) (any, error) {
			order = append(order, name)
			return "ok", nil
		}
	}
	require.NoError(t, reg.Register(&tool.Descriptor{Name: "first", Schema: tool.MustSchema(), Capability: record("first")}))
	require.NoError(t, reg.Register(&tool.Descriptor{Name: "second", Schema: tool.MustSchema(), Capability: record("second")}))
	reg.Seal()

	p := &scriptedProvider{steps: []scriptStep{
		{msg: assistantCalls(
			provider.NewToolCall("c1", "first", nil),
			provider.NewToolCall("c2", "second", nil),
		)},
		{msg: assistantText(`{"action":"hold","reasoning":"done"}`)},
	}}
	ctrl, err := NewController(ControllerOptions{
		Provider: p,
		Invoker:  tool.NewInvoker(reg),
		Registry: reg,
	})
	require.NoError(t, err)

	_, err = ctrl.RunCycle(context.Background(), NewConversation("sys", 50), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}
