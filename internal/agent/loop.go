package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"arena/internal/logger"
	"arena/internal/profile"
	"arena/internal/prompt"
	"arena/internal/store/decisionlog"
)

// Notifier receives trade and failure events. Implementations must not block
// the loop; delivery failures are their own problem.
type Notifier interface {
	NotifyTrade(rec decisionlog.Record)
	NotifyError(cycle int, err error)
}

// PortfolioValuer prices the account for the per-cycle snapshot.
type PortfolioValuer func(ctx context.Context) (decimal.Decimal, error)

// LoopOptions configures the run loop.
type LoopOptions struct {
	Controller      *Controller
	Decisions       *decisionlog.Store
	Persona         *profile.Loader
	PortfolioValue  PortfolioValuer
	Notifier        Notifier
	Interval        time.Duration
	MaxCycles       int // 0 = unbounded
	ConversationCap int
	PromptRecent    int
}

// Loop owns the top-level cycle cadence: it rebuilds the system prompt,
// runs a cycle, records the decision, and sleeps until the next one.
// Cancellation is honored at cycle boundaries and between tool invocations,
// never mid-invocation; a cycle interrupted after an executed order still
// gets its decision record.
type Loop struct {
	controller     *Controller
	decisions      *decisionlog.Store
	persona        *profile.Loader
	portfolioValue PortfolioValuer
	notifier       Notifier
	interval       time.Duration
	maxCycles      int
	convCap        int
	promptRecent   int

	conv      *Conversation
	holdCount int
}

// NewLoop wires the run loop.
func NewLoop(opts LoopOptions) (*Loop, error) {
	if opts.Controller == nil {
		return nil, fmt.Errorf("run loop requires a cycle controller")
	}
	if opts.Decisions == nil {
		return nil, fmt.Errorf("run loop requires the decision log")
	}
	if opts.PortfolioValue == nil {
		return nil, fmt.Errorf("run loop requires a portfolio valuer")
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.PromptRecent <= 0 {
		opts.PromptRecent = 20
	}
	return &Loop{
		controller:     opts.Controller,
		decisions:      opts.Decisions,
		persona:        opts.Persona,
		portfolioValue: opts.PortfolioValue,
		notifier:       opts.Notifier,
		interval:       opts.Interval,
		maxCycles:      opts.MaxCycles,
		convCap:        opts.ConversationCap,
		promptRecent:   opts.PromptRecent,
	}, nil
}

// Run executes trading cycles until the context is canceled or the cycle
// budget is spent. A failed cycle is recorded and does not stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	startID, err := l.decisions.LastDecisionID(ctx)
	if err != nil {
		return fmt.Errorf("reading decision log head: %w", err)
	}
	logger.Infof("run loop starting (interval=%s, max_cycles=%d, resuming after decision #%d)",
		l.interval, l.maxCycles, startID)

	for cycle := 1; l.maxCycles == 0 || cycle <= l.maxCycles; cycle++ {
		if err := ctx.Err(); err != nil {
			logger.Infof("run loop stopping before cycle %d: %v", cycle, err)
			return nil
		}
		l.runOneCycle(ctx, cycle)
		if l.maxCycles > 0 && cycle == l.maxCycles {
			break
		}
		select {
		case <-ctx.Done():
			logger.Infof("run loop stopping after cycle %d", cycle)
			return nil
		case <-time.After(l.interval):
		}
	}
	logger.Infof("run loop finished after %d cycles", l.maxCycles)
	return nil
}

func (l *Loop) runOneCycle(ctx context.Context, cycle int) {
	l.refreshConversation(ctx)

	started := time.Now()
	outcome, err := l.controller.RunCycle(ctx, l.conv, cycle)
	if err != nil {
		if ctx.Err() != nil {
			// The broker may already have settled an order this cycle.
			// Persist the partial outcome before stopping.
			rec := l.record(context.Background(), outcome)
			logger.Infof("cycle %d interrupted: action=%s trade=%v decision=#%d",
				cycle, rec.Action, rec.TradeExecuted, rec.DecisionID)
			if rec.TradeExecuted && l.notifier != nil {
				l.notifier.NotifyTrade(rec)
			}
			return
		}
		logger.Errorf("cycle %d failed: %v", cycle, err)
		if l.notifier != nil {
			l.notifier.NotifyError(cycle, err)
		}
	}
	rec := l.record(ctx, outcome)
	logger.Infof("cycle %d done in %s: action=%s trade=%v tool_calls=%d decision=#%d",
		cycle, time.Since(started).Round(time.Millisecond),
		rec.Action, rec.TradeExecuted, rec.ToolCalls, rec.DecisionID)

	if rec.TradeExecuted {
		l.holdCount = 0
		if l.notifier != nil {
			l.notifier.NotifyTrade(rec)
		}
	} else {
		l.holdCount++
		logger.Warnf("cycle %d ended without a trade (%d consecutive)", cycle, l.holdCount)
	}
}

// refreshConversation rebuilds the system prompt from the current persona
// and recent decision history. The first call also creates the conversation.
func (l *Loop) refreshConversation(ctx context.Context) {
	var persona profile.Persona
	if l.persona != nil {
		persona = l.persona.Snapshot().Persona
	}
	recent, err := l.decisions.Recent(ctx, l.promptRecent)
	if err != nil {
		logger.Warnf("loading recent decisions for prompt: %v", err)
	}
	system := prompt.System(persona, recent)
	if l.conv == nil {
		l.conv = NewConversation(system, l.convCap)
		return
	}
	l.conv.SetSystem(system)
}

func (l *Loop) record(ctx context.Context, outcome Outcome) decisionlog.Record {
	rec := decisionlog.Record{
		Cycle:         outcome.Cycle,
		Action:        outcome.Action,
		Reasoning:     outcome.Reasoning,
		Parameters:    outcome.Parameters,
		Result:        outcome.Result,
		TradeExecuted: outcome.TradeExecuted,
		ToolCalls:     outcome.ToolCalls,
	}
	if value, err := l.portfolioValue(ctx); err != nil {
		logger.Warnf("pricing portfolio for decision record: %v", err)
	} else {
		rec.PortfolioValue = value
	}
	if err := l.decisions.Append(ctx, &rec); err != nil {
		logger.Errorf("appending decision record for cycle %d: %v", outcome.Cycle, err)
	}
	return rec
}
