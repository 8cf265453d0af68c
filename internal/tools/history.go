package tools

import (
	"context"

	"arena/internal/store/decisionlog"
	"arena/internal/tool"
)

func registerHistory(reg *tool.Registry, deps Deps) error {
	store := deps.Decisions

	if err := reg.Register(&tool.Descriptor{
		Name:        "get_decision_history",
		Description: "Review your own recent trading decisions, newest first.",
		Schema: tool.MustSchema(
			tool.Param{Name: "limit", Type: "integer", Description: "Maximum decisions to return", Default: 20},
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			records, err := store.Recent(ctx, intArg(args, "limit", 20))
			if err != nil {
				return nil, historyErr(err)
			}
			if records == nil {
				records = []decisionlog.Record{}
			}
			return records, nil
		},
	}); err != nil {
		return err
	}

	return reg.Register(&tool.Descriptor{
		Name:        "get_performance_summary",
		Description: "Summarize your trading performance: decision counts per action, trades executed, and portfolio change since the first decision.",
		Schema:      tool.MustSchema(),
		Capability: func(ctx context.Context, _ map[string]any) (any, error) {
			summary, err := store.PerformanceSummary(ctx)
			if err != nil {
				return nil, historyErr(err)
			}
			return summary, nil
		},
	})
}

func historyErr(err error) error {
	return &tool.CollaboratorError{Class: "decision_log", Err: err}
}
