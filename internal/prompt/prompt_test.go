package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arena/internal/profile"
	"arena/internal/store/decisionlog"
)

func TestSystemBarePrompt(t *testing.T) {
	got := System(profile.Persona{}, nil)
	assert.Contains(t, got, "autonomous cryptocurrency trading agent")
	assert.Contains(t, got, `{"action": "buy" | "sell" | "hold"`)
	assert.NotContains(t, got, "Persona:")
	assert.NotContains(t, got, "recent decisions")
}

func TestSystemIncludesPersonaAndHistory(t *testing.T) {
	persona := profile.Persona{Name: "Arena", RiskTolerance: "moderate"}
	recent := []decisionlog.Record{
		{
			DecisionID:    8,
			Timestamp:     time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
			Action:        "buy",
			Reasoning:     "RSI oversold\nmore detail below",
			TradeExecuted: true,
		},
		{DecisionID: 7, Action: "hold", Reasoning: "no edge"},
	}
	got := System(persona, recent)
	assert.Contains(t, got, "You are Arena.")
	assert.Contains(t, got, "#8 2026-05-01 12:00 buy (trade executed): RSI oversold")
	assert.NotContains(t, got, "more detail below")
	assert.Contains(t, got, "hold: no edge")
}

func TestSystemTruncatesLongReasoning(t *testing.T) {
	long := strings.Repeat("x", 400)
	got := System(profile.Persona{}, []decisionlog.Record{{DecisionID: 1, Action: "hold", Reasoning: long}})
	assert.Contains(t, got, strings.Repeat("x", 160)+"...")
	assert.NotContains(t, got, strings.Repeat("x", 161))
}

func TestCyclePrompt(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	got := Cycle(3, now)
	assert.Contains(t, got, "cycle #3")
	assert.Contains(t, got, "2026-05-01 09:30:00 UTC")
}
