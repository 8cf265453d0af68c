package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"arena/internal/logger"
	"arena/internal/pkg/text"
)

const argLogLimit = 512

// Invoker executes tool calls with uniform failure capture. It never lets a
// capability failure escape: every outcome is a CallResult.
type Invoker struct {
	registry *Registry
}

func NewInvoker(registry *Registry) *Invoker {
	return &Invoker{registry: registry}
}

// Dispatch resolves req.Name and invokes the capability. Lookup failures
// become unknown_tool results carrying the registered-name list, never a
// crash.
func (inv *Invoker) Dispatch(ctx context.Context, req CallRequest) CallResult {
	desc, err := inv.registry.Resolve(req.Name)
	if err != nil {
		var unknown *UnknownToolError
		if errors.As(err, &unknown) {
			logger.Warnf("tool dispatch: %v (args=%s)", err, compactArgs(req.Arguments))
			return failure(req, KindUnknownTool, err.Error(), "")
		}
		return failure(req, KindUnhandled, err.Error(), "")
	}
	return inv.Invoke(ctx, desc, req)
}

// Invoke validates arguments, calls the capability inside a recovery boundary
// and checks the result for JSON representability.
func (inv *Invoker) Invoke(ctx context.Context, desc *Descriptor, req CallRequest) (res CallResult) {
	defer func() {
		if rec := recover(); rec != nil {
			trace := string(debug.Stack())
			logger.Errorf("tool %s panicked: %v (args=%s)\n%s", desc.Name, rec, compactArgs(req.Arguments), trace)
			res = failure(req, KindUnhandled, fmt.Sprintf("tool %s panicked: %v", desc.Name, rec), trace)
		}
	}()

	args, err := desc.Schema.ValidateAndFill(req.Arguments)
	if err != nil {
		msg := fmt.Sprintf("invalid arguments for %s: %v", desc.Name, err)
		logger.Warnf("tool validation: %s (args=%s)", msg, compactArgs(req.Arguments))
		return failure(req, KindValidation, msg, "")
	}

	value, err := desc.Capability(ctx, args)
	if err != nil {
		kind := KindCollaborator
		msg := fmt.Sprintf("tool %s failed: %v", desc.Name, err)
		var classified *CollaboratorError
		if errors.As(err, &classified) && classified.Class != "" {
			msg = fmt.Sprintf("tool %s failed (%s): %v", desc.Name, classified.Class, classified.Err)
		}
		logger.Errorf("tool execution: %s (args=%s)", msg, compactArgs(args))
		return failure(req, kind, msg, "")
	}

	if _, err := json.Marshal(value); err != nil {
		msg := fmt.Sprintf("tool %s returned a non-JSON value: %v", desc.Name, err)
		logger.Errorf("tool serialization: %s (args=%s)", msg, compactArgs(args))
		return failure(req, KindSerialization, msg, "")
	}

	return CallResult{Request: req, Value: value}
}

func failure(req CallRequest, kind FailureKind, msg, trace string) CallResult {
	return CallResult{Request: req, Failure: &Failure{Kind: kind, Message: msg, Trace: trace}}
}

func compactArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return text.Truncate(string(b), argLogLimit)
}
