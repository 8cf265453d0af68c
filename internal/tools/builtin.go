// Package tools registers the built-in tool surface the model can call:
// trading, market data, technical analysis, web research, history and clock.
package tools

import (
	"fmt"
	"time"

	"arena/internal/executor/paper"
	"arena/internal/market"
	"arena/internal/search"
	"arena/internal/store/decisionlog"
	"arena/internal/tool"
)

// Deps carries the collaborators the built-in tools delegate to.
type Deps struct {
	Broker    *paper.Broker
	Market    *market.Source
	FearGreed *market.FearGreedService
	Search    *search.Client
	Decisions *decisionlog.Store
	Now       func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// NewRegistry builds and seals the full built-in registry.
func NewRegistry(deps Deps) (*tool.Registry, error) {
	if deps.Broker == nil {
		return nil, fmt.Errorf("tools: broker is required")
	}
	if deps.Market == nil {
		return nil, fmt.Errorf("tools: market source is required")
	}
	if deps.Decisions == nil {
		return nil, fmt.Errorf("tools: decision store is required")
	}

	reg := tool.NewRegistry()
	for _, register := range []func(*tool.Registry, Deps) error{
		registerTrading,
		registerMarketData,
		registerAnalysis,
		registerResearch,
		registerHistory,
		registerClock,
	} {
		if err := register(reg, deps); err != nil {
			return nil, err
		}
	}
	reg.Seal()
	return reg, nil
}
