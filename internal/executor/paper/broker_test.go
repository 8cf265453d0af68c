package paper

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedQuote(prices map[string]float64) QuoteFunc {
	return func(_ context.Context, symbol string) (decimal.Decimal, error) {
		price, ok := prices[symbol]
		if !ok {
			return decimal.Zero, quoteError(symbol)
		}
		return decimal.NewFromFloat(price), nil
	}
}

type quoteError string

func (e quoteError) Error() string { return "no quote for " + string(e) }

func newTestBroker(t *testing.T, prices map[string]float64, maxPct float64) *Broker {
	t.Helper()
	b, err := NewBroker(Config{
		StorePath:      filepath.Join(t.TempDir(), "paper.db"),
		StartingCash:   decimal.NewFromInt(100000),
		MaxPositionPct: maxPct,
	}, fixedQuote(prices))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBuyFillsAndSettles(t *testing.T) {
	b := newTestBroker(t, map[string]float64{"BTC/USD": 50000}, 0)
	ctx := context.Background()

	receipt, err := b.PlaceMarketOrder(ctx, "btc/usd", SideBuy, decimal.NewFromFloat(0.5))
	require.NoError(t, err)
	assert.Equal(t, "BTC/USD", receipt.Symbol)
	assert.Equal(t, StatusFilled, receipt.Status)
	assert.True(t, decimal.NewFromInt(25000).Equal(receipt.Notional))
	assert.NotEmpty(t, receipt.OrderID)
	assert.False(t, receipt.FilledAt.IsZero())

	acct, err := b.Account(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(75000).Equal(acct.Cash), "cash %s", acct.Cash)
	assert.True(t, decimal.NewFromInt(100000).Equal(acct.PortfolioValue))

	positions, err := b.Positions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	pos := positions[0]
	assert.Equal(t, "BTC/USD", pos.Symbol)
	assert.True(t, decimal.NewFromFloat(0.5).Equal(pos.Quantity))
	assert.True(t, decimal.NewFromInt(50000).Equal(pos.AvgEntryPrice))
	assert.True(t, decimal.NewFromInt(25000).Equal(pos.CostBasis))
}

func TestBuyAveragesEntryPrice(t *testing.T) {
	prices := map[string]float64{"ETH/USD": 2000}
	b := newTestBroker(t, prices, 0)
	ctx := context.Background()

	_, err := b.PlaceMarketOrder(ctx, "ETH/USD", SideBuy, decimal.NewFromInt(2))
	require.NoError(t, err)
	prices["ETH/USD"] = 3000
	_, err = b.PlaceMarketOrder(ctx, "ETH/USD", SideBuy, decimal.NewFromInt(2))
	require.NoError(t, err)

	positions, err := b.Positions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	// 2 @ 2000 + 2 @ 3000 = 4 @ 2500
	assert.True(t, decimal.NewFromInt(4).Equal(positions[0].Quantity))
	assert.True(t, decimal.NewFromInt(2500).Equal(positions[0].AvgEntryPrice))
	assert.True(t, decimal.NewFromInt(2000).Equal(positions[0].UnrealizedPnL))
}

func TestSellRealizesProportionally(t *testing.T) {
	prices := map[string]float64{"BTC/USD": 40000}
	b := newTestBroker(t, prices, 0)
	ctx := context.Background()

	_, err := b.PlaceMarketOrder(ctx, "BTC/USD", SideBuy, decimal.NewFromInt(2))
	require.NoError(t, err)

	prices["BTC/USD"] = 50000
	_, err = b.PlaceMarketOrder(ctx, "BTC/USD", SideSell, decimal.NewFromInt(1))
	require.NoError(t, err)

	positions, err := b.Positions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.True(t, decimal.NewFromInt(1).Equal(positions[0].Quantity))
	assert.True(t, decimal.NewFromInt(40000).Equal(positions[0].CostBasis))
	assert.True(t, decimal.NewFromInt(40000).Equal(positions[0].AvgEntryPrice))

	acct, err := b.Account(ctx)
	require.NoError(t, err)
	// 100000 - 80000 + 50000 cash, plus 1 BTC @ 50000.
	assert.True(t, decimal.NewFromInt(70000).Equal(acct.Cash), "cash %s", acct.Cash)
	assert.True(t, decimal.NewFromInt(120000).Equal(acct.PortfolioValue))
	assert.True(t, decimal.NewFromInt(20000).Equal(acct.TotalPnL))
	assert.True(t, decimal.NewFromInt(20).Equal(acct.TotalPnLPct))
}

func TestSellAllClosesPosition(t *testing.T) {
	b := newTestBroker(t, map[string]float64{"SOL/USD": 100}, 0)
	ctx := context.Background()

	_, err := b.PlaceMarketOrder(ctx, "SOL/USD", SideBuy, decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = b.PlaceMarketOrder(ctx, "SOL/USD", SideSell, decimal.NewFromInt(10))
	require.NoError(t, err)

	positions, err := b.Positions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions)

	acct, err := b.Account(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100000).Equal(acct.Cash))
}

func TestBuyRejectedOnInsufficientFunds(t *testing.T) {
	b := newTestBroker(t, map[string]float64{"BTC/USD": 50000}, 0)
	ctx := context.Background()

	_, err := b.PlaceMarketOrder(ctx, "BTC/USD", SideBuy, decimal.NewFromInt(3))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// The rejection is recorded, cash is untouched.
	orders, err := b.OrderHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, StatusRejected, orders[0].Status)

	acct, err := b.Account(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100000).Equal(acct.Cash))
}

func TestSellRejectedOnInsufficientQuantity(t *testing.T) {
	b := newTestBroker(t, map[string]float64{"BTC/USD": 50000}, 0)
	ctx := context.Background()

	_, err := b.PlaceMarketOrder(ctx, "BTC/USD", SideBuy, decimal.NewFromFloat(0.5))
	require.NoError(t, err)
	_, err = b.PlaceMarketOrder(ctx, "BTC/USD", SideSell, decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrInsufficientQuantity)
}

func TestBuyRejectedOverPositionCap(t *testing.T) {
	b := newTestBroker(t, map[string]float64{"BTC/USD": 50000}, 0.10)
	ctx := context.Background()

	// 0.5 BTC = 25000 notional, cap is 10% of the 100000 portfolio.
	_, err := b.PlaceMarketOrder(ctx, "BTC/USD", SideBuy, decimal.NewFromFloat(0.5))
	require.ErrorIs(t, err, ErrPositionLimit)

	_, err = b.PlaceMarketOrder(ctx, "BTC/USD", SideBuy, decimal.NewFromFloat(0.1))
	require.NoError(t, err)
}

func TestOrderValidation(t *testing.T) {
	b := newTestBroker(t, map[string]float64{"BTC/USD": 50000}, 0)
	ctx := context.Background()

	_, err := b.PlaceMarketOrder(ctx, "", SideBuy, decimal.NewFromInt(1))
	require.Error(t, err)
	_, err = b.PlaceMarketOrder(ctx, "BTC/USD", "short", decimal.NewFromInt(1))
	require.Error(t, err)
	_, err = b.PlaceMarketOrder(ctx, "BTC/USD", SideBuy, decimal.Zero)
	require.Error(t, err)
}

func TestOrderHistoryNewestFirst(t *testing.T) {
	b := newTestBroker(t, map[string]float64{"BTC/USD": 50000, "ETH/USD": 2000}, 0)
	ctx := context.Background()

	_, err := b.PlaceMarketOrder(ctx, "BTC/USD", SideBuy, decimal.NewFromFloat(0.1))
	require.NoError(t, err)
	_, err = b.PlaceMarketOrder(ctx, "ETH/USD", SideBuy, decimal.NewFromInt(1))
	require.NoError(t, err)

	orders, err := b.OrderHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ETH/USD", orders[0].Symbol)

	orders, err = b.OrderHistory(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestCancelOrder(t *testing.T) {
	b := newTestBroker(t, map[string]float64{"BTC/USD": 50000}, 0)
	ctx := context.Background()

	receipt, err := b.PlaceMarketOrder(ctx, "BTC/USD", SideBuy, decimal.NewFromFloat(0.1))
	require.NoError(t, err)

	// Market orders fill immediately, so cancellation must fail.
	_, err = b.CancelOrder(ctx, receipt.OrderID)
	require.ErrorIs(t, err, ErrOrderNotOpen)

	_, err = b.CancelOrder(ctx, "no-such-order")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestAccountSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.db")
	quote := fixedQuote(map[string]float64{"BTC/USD": 50000})
	cfg := Config{StorePath: path, StartingCash: decimal.NewFromInt(100000)}

	b, err := NewBroker(cfg, quote)
	require.NoError(t, err)
	_, err = b.PlaceMarketOrder(context.Background(), "BTC/USD", SideBuy, decimal.NewFromFloat(0.2))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	// Reopening must keep the ledger, not reseed cash.
	reopened, err := NewBroker(cfg, quote)
	require.NoError(t, err)
	defer reopened.Close()

	acct, err := reopened.Account(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(90000).Equal(acct.Cash), "cash %s", acct.Cash)

	positions, err := reopened.Positions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.True(t, decimal.NewFromFloat(0.2).Equal(positions[0].Quantity))
}
