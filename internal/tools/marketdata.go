package tools

import (
	"context"
	"fmt"

	"arena/internal/market"
	"arena/internal/tool"
)

func registerMarketData(reg *tool.Registry, deps Deps) error {
	src := deps.Market

	if err := reg.Register(&tool.Descriptor{
		Name:        "get_crypto_price",
		Description: "Get the current bid, ask and mid price for a trading pair.",
		Schema: tool.MustSchema(
			tool.Param{Name: "symbol", Type: "string", Description: "Trading pair like BTC/USD", Required: true},
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			symbol, err := requireString(args, "symbol")
			if err != nil {
				return nil, err
			}
			quote, err := src.LatestQuote(ctx, symbol)
			if err != nil {
				return nil, marketErr(err)
			}
			return quote, nil
		},
	}); err != nil {
		return err
	}

	return reg.Register(&tool.Descriptor{
		Name:        "get_crypto_bars",
		Description: "Get historical OHLCV candles for a trading pair.",
		Schema: tool.MustSchema(
			tool.Param{Name: "symbol", Type: "string", Description: "Trading pair like BTC/USD", Required: true},
			tool.Param{Name: "timeframe", Type: "string", Description: "Candle interval, e.g. 1Hour, 1Day, 15Min", Default: "1Hour"},
			tool.Param{Name: "limit", Type: "integer", Description: "Number of candles, max 1000", Default: 100},
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			symbol, err := requireString(args, "symbol")
			if err != nil {
				return nil, err
			}
			candles, timeframe, err := fetchCandles(ctx, src, symbol, stringArg(args, "timeframe"), intArg(args, "limit", 100))
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"symbol":    symbol,
				"timeframe": timeframe,
				"count":     len(candles),
				"bars":      candles,
			}, nil
		},
	})
}

// fetchCandles validates the timeframe and pulls history from the exchange.
func fetchCandles(ctx context.Context, src *market.Source, symbol, timeframe string, limit int) ([]market.Candle, string, error) {
	if timeframe == "" {
		timeframe = "1Hour"
	}
	interval, ok := market.NormalizeInterval(timeframe)
	if !ok {
		return nil, "", fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	candles, err := src.FetchHistory(ctx, symbol, interval, limit)
	if err != nil {
		return nil, "", marketErr(err)
	}
	return candles, timeframe, nil
}

func marketErr(err error) error {
	return &tool.CollaboratorError{Class: "market_data", Err: err}
}
