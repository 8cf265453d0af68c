package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"arena/internal/gateway/provider"
	"arena/internal/logger"
	"arena/internal/pkg/jsonutil"
	"arena/internal/prompt"
	"arena/internal/tool"
)

// Decision actions the cycle can end with. A cycle that executed capital
// records the executed tool's name as its action instead.
const (
	ActionHold  = "hold"
	ActionError = "error"
)

// Claim words the model may use in its closing JSON. They are validated
// against what actually happened, never recorded as-is.
const (
	claimBuy  = "buy"
	claimSell = "sell"
)

const defaultMaxIterations = 10

// Outcome is the distilled result of one trading cycle.
type Outcome struct {
	Cycle             int
	Action            string
	Reasoning         string
	Parameters        map[string]any
	Result            string
	TradeExecuted     bool
	ToolCalls         int
	IterationLimitHit bool
}

// Controller runs a single trading cycle: it drives the model through the
// think/act loop until the model stops requesting tools or the iteration
// budget runs out.
type Controller struct {
	provider      provider.ModelProvider
	invoker       *tool.Invoker
	registry      *tool.Registry
	maxIterations int
	isCapitalTool func(name string) bool
	now           func() time.Time
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Provider      provider.ModelProvider
	Invoker       *tool.Invoker
	Registry      *tool.Registry
	MaxIterations int
	IsCapitalTool func(name string) bool
	Now           func() time.Time
}

// NewController wires a cycle controller.
func NewController(opts ControllerOptions) (*Controller, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("cycle controller requires a model provider")
	}
	if opts.Invoker == nil {
		return nil, fmt.Errorf("cycle controller requires a tool invoker")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("cycle controller requires a tool registry")
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaultMaxIterations
	}
	if opts.IsCapitalTool == nil {
		opts.IsCapitalTool = func(string) bool { return false }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		provider:      opts.Provider,
		invoker:       opts.Invoker,
		registry:      opts.Registry,
		maxIterations: opts.MaxIterations,
		isCapitalTool: opts.IsCapitalTool,
		now:           opts.Now,
	}, nil
}

// RunCycle executes trading cycle n on the given conversation. An inference
// failure aborts the cycle and is returned as an error together with an
// Outcome carrying the error action; tool failures are fed back to the model
// and never abort the cycle.
func (c *Controller) RunCycle(ctx context.Context, conv *Conversation, n int) (Outcome, error) {
	outcome := Outcome{Cycle: n, Action: ActionHold}
	conv.AppendUser(prompt.Cycle(n, c.now()))

	specs := c.registry.Specs()
	var lastAssistantText string
	for iteration := 1; iteration <= c.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		resp, err := c.provider.Chat(ctx, conv.Render(), specs)
		if err != nil {
			outcome.Action = ActionError
			outcome.Reasoning = fmt.Sprintf("inference failed: %v", err)
			return outcome, fmt.Errorf("cycle %d inference: %w", n, err)
		}
		conv.AppendAssistant(resp.Message)
		if content := strings.TrimSpace(resp.Message.Content); content != "" {
			lastAssistantText = content
		}

		if len(resp.Message.ToolCalls) == 0 {
			c.finishCycle(&outcome, resp.Message.Content)
			return outcome, nil
		}

		for _, call := range resp.Message.ToolCalls {
			if err := ctx.Err(); err != nil {
				return outcome, err
			}
			result := c.invoker.Dispatch(ctx, tool.CallRequest{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			})
			outcome.ToolCalls++
			if result.OK() && c.isCapitalTool(call.Function.Name) {
				outcome.TradeExecuted = true
				outcome.Action = call.Function.Name
				outcome.Parameters = call.Function.Arguments
				outcome.Result = result.Payload()
			}
			conv.AppendToolResult(call.ID, call.Function.Name, result.Payload())
		}
	}

	// Iteration budget exhausted: not an error, the cycle ends as a hold
	// unless a trade already went through. The model's last words, if any,
	// stand in for the missing final decision.
	outcome.IterationLimitHit = true
	if outcome.Reasoning == "" {
		if lastAssistantText != "" {
			outcome.Reasoning = lastAssistantText
		} else {
			outcome.Reasoning = fmt.Sprintf("tool iteration limit (%d) reached before a final decision", c.maxIterations)
		}
	}
	logger.Warnf("cycle %d hit the tool iteration limit (%d) after %d tool calls",
		n, c.maxIterations, outcome.ToolCalls)
	return outcome, nil
}

// finishCycle parses the model's closing message into the outcome. A reply
// that is not the expected JSON falls back to a hold with the raw text as
// reasoning.
func (c *Controller) finishCycle(outcome *Outcome, content string) {
	content = strings.TrimSpace(content)
	raw, ok := jsonutil.ExtractJSON(content)
	if !ok {
		outcome.Reasoning = content
		return
	}
	parsed := gjson.Parse(raw)
	// The claimed action is checked against what happened; the recorded
	// action is the executed tool's name, or hold.
	claimed := strings.ToLower(strings.TrimSpace(parsed.Get("action").String()))
	switch claimed {
	case claimBuy, claimSell:
		if !outcome.TradeExecuted {
			logger.Warnf("model claimed action %q without an executed order, recording hold", claimed)
		}
	case ActionHold, "":
	default:
		logger.Warnf("model returned unknown action %q, recording hold", claimed)
	}
	if reasoning := strings.TrimSpace(parsed.Get("reasoning").String()); reasoning != "" {
		outcome.Reasoning = reasoning
	} else {
		outcome.Reasoning = content
	}
	if params := parsed.Get("parameters"); params.IsObject() {
		decoded := map[string]any{}
		for k, v := range params.Map() {
			decoded[k] = v.Value()
		}
		if len(decoded) > 0 && outcome.Parameters == nil {
			outcome.Parameters = decoded
		}
	}
}
