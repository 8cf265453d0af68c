// Package prompt renders the system and per-cycle prompts.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"arena/internal/profile"
	"arena/internal/store/decisionlog"
)

const systemHeader = `You are an autonomous cryptocurrency trading agent managing a paper trading account.

Each cycle you should:
1. Review your account, open positions and recent decision history.
2. Gather market data and run the technical analysis you need.
3. Decide whether to buy, sell or hold, and execute at most a small number of well-reasoned trades.

Use the available tools to gather information before acting. Do not guess prices.

When you have finished, reply with a single JSON object and nothing else:
{"action": "buy" | "sell" | "hold", "reasoning": "<why>", "parameters": {<order details or empty>}}

Rules:
- Never risk more than a small fraction of the portfolio on a single position.
- Prefer holding over trading on weak or conflicting signals.
- Base every decision on data retrieved this cycle, not on memory of prices.`

// System renders the full system prompt from the persona and recent history.
func System(persona profile.Persona, recent []decisionlog.Record) string {
	var b strings.Builder
	b.WriteString(systemHeader)
	if fragment := persona.Render(); fragment != "" {
		b.WriteString("\n\nPersona:\n")
		b.WriteString(fragment)
	}
	if len(recent) > 0 {
		b.WriteString("\n\nYour most recent decisions (newest first):\n")
		for _, rec := range recent {
			fmt.Fprintf(&b, "#%d %s %s", rec.DecisionID, rec.Timestamp.Format("2006-01-02 15:04"), rec.Action)
			if rec.TradeExecuted {
				b.WriteString(" (trade executed)")
			}
			if reasoning := strings.TrimSpace(rec.Reasoning); reasoning != "" {
				fmt.Fprintf(&b, ": %s", firstLine(reasoning, 160))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Cycle renders the user prompt that opens trading cycle n.
func Cycle(n int, now time.Time) string {
	return fmt.Sprintf(
		"New trading cycle #%d. Current time: %s. Review your portfolio, analyze the market, and make a trading decision.",
		n, now.UTC().Format("2006-01-02 15:04:05 UTC"))
}

func firstLine(s string, max int) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
