package tools

import (
	"context"
	"time"

	"arena/internal/tool"
)

func registerClock(reg *tool.Registry, deps Deps) error {
	return reg.Register(&tool.Descriptor{
		Name:        "get_current_datetime",
		Description: "Get the current date and time in UTC.",
		Schema:      tool.MustSchema(),
		Capability: func(_ context.Context, _ map[string]any) (any, error) {
			now := deps.now().UTC()
			return map[string]any{
				"iso":      now.Format(time.RFC3339),
				"date":     now.Format("2006-01-02"),
				"time":     now.Format("15:04:05"),
				"weekday":  now.Weekday().String(),
				"unix":     now.Unix(),
				"timezone": "UTC",
			}, nil
		},
	})
}
