package decisionlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func appendDecision(t *testing.T, store *Store, action string, value float64, traded bool) Record {
	t.Helper()
	rec := Record{
		Cycle:          1,
		Action:         action,
		Reasoning:      "test decision",
		PortfolioValue: decimal.NewFromFloat(value),
		TradeExecuted:  traded,
	}
	require.NoError(t, store.Append(context.Background(), &rec))
	return rec
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "decisions.db"))

	for i := 1; i <= 5; i++ {
		rec := appendDecision(t, store, "hold", 100000, false)
		assert.Equal(t, int64(i), rec.DecisionID)
	}

	last, err := store.LastDecisionID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), last)
}

func TestIDsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.db")

	store := openStore(t, path)
	appendDecision(t, store, "hold", 100000, false)
	appendDecision(t, store, "buy", 101000, true)
	require.NoError(t, store.Close())

	reopened := openStore(t, path)
	rec := appendDecision(t, reopened, "hold", 101500, false)
	assert.Equal(t, int64(3), rec.DecisionID)

	all, err := reopened.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, r := range all {
		assert.Equal(t, int64(i+1), r.DecisionID)
	}
}

func TestAppendRoundTripsFields(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "decisions.db"))

	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	rec := Record{
		Timestamp:      ts,
		Cycle:          7,
		Action:         "buy",
		Reasoning:      "oversold bounce",
		Parameters:     map[string]any{"symbol": "BTC/USD", "quantity": 0.25},
		Result:         `{"status":"filled"}`,
		PortfolioValue: decimal.RequireFromString("101234.56"),
		TradeExecuted:  true,
		ToolCalls:      4,
	}
	require.NoError(t, store.Append(context.Background(), &rec))

	all, err := store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)

	got := all[0]
	assert.Equal(t, rec.DecisionID, got.DecisionID)
	assert.True(t, ts.Equal(got.Timestamp))
	assert.Equal(t, 7, got.Cycle)
	assert.Equal(t, "buy", got.Action)
	assert.Equal(t, "oversold bounce", got.Reasoning)
	assert.Equal(t, "BTC/USD", got.Parameters["symbol"])
	assert.InDelta(t, 0.25, got.Parameters["quantity"], 1e-9)
	assert.Equal(t, `{"status":"filled"}`, got.Result)
	assert.True(t, decimal.RequireFromString("101234.56").Equal(got.PortfolioValue))
	assert.True(t, got.TradeExecuted)
	assert.Equal(t, 4, got.ToolCalls)
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "decisions.db"))

	for i := 0; i < 6; i++ {
		appendDecision(t, store, "hold", 100000, false)
	}

	recent, err := store.Recent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, int64(6), recent[0].DecisionID)
	assert.Equal(t, int64(5), recent[1].DecisionID)
	assert.Equal(t, int64(4), recent[2].DecisionID)

	// A nonsense limit falls back to the default window.
	recent, err = store.Recent(context.Background(), -1)
	require.NoError(t, err)
	assert.Len(t, recent, 6)
}

func TestPerformanceSummary(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "decisions.db"))

	appendDecision(t, store, "hold", 100000, false)
	appendDecision(t, store, "buy", 100000, true)
	appendDecision(t, store, "hold", 102500, false)
	appendDecision(t, store, "sell", 105000, true)

	sum, err := store.PerformanceSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, sum.TotalDecisions)
	assert.Equal(t, 2, sum.TradesExecuted)
	assert.Equal(t, map[string]int{"hold": 2, "buy": 1, "sell": 1}, sum.ActionCounts)
	assert.True(t, decimal.NewFromInt(100000).Equal(sum.FirstValue))
	assert.True(t, decimal.NewFromInt(105000).Equal(sum.LatestValue))
	assert.True(t, decimal.NewFromInt(5).Equal(sum.ChangePct))
	assert.False(t, sum.FirstDecisionAt.IsZero())
	assert.False(t, sum.LastDecisionAt.After(time.Now().Add(time.Minute)))
}

func TestPerformanceSummaryEmptyLog(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "decisions.db"))

	sum, err := store.PerformanceSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.TotalDecisions)
	assert.Equal(t, 0, sum.TradesExecuted)
	assert.Empty(t, sum.ActionCounts)
	assert.True(t, sum.ChangePct.IsZero())
}

func TestNewStoreRejectsEmptyPath(t *testing.T) {
	_, err := NewStore("  ")
	require.Error(t, err)
}
