package tools

import (
	"context"

	"arena/internal/analysis/indicator"
	"arena/internal/tool"
)

func registerAnalysis(reg *tool.Registry, deps Deps) error {
	src := deps.Market

	symbolParam := tool.Param{Name: "symbol", Type: "string", Description: "Trading pair like BTC/USD", Required: true}
	timeframeParam := tool.Param{Name: "timeframe", Type: "string", Description: "Candle interval, e.g. 1Hour, 1Day", Default: "1Hour"}

	if err := reg.Register(&tool.Descriptor{
		Name:        "calculate_rsi",
		Description: "Calculate the RSI for a trading pair and report overbought/oversold state.",
		Schema: tool.MustSchema(
			symbolParam,
			tool.Param{Name: "period", Type: "integer", Description: "RSI lookback period", Default: 14},
			timeframeParam,
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			symbol, err := requireString(args, "symbol")
			if err != nil {
				return nil, err
			}
			period := intArg(args, "period", 14)
			candles, timeframe, err := fetchCandles(ctx, src, symbol, stringArg(args, "timeframe"), analysisBars(period))
			if err != nil {
				return nil, err
			}
			return indicator.RSI(symbol, timeframe, candles, period)
		},
	}); err != nil {
		return err
	}

	if err := reg.Register(&tool.Descriptor{
		Name:        "calculate_macd",
		Description: "Calculate the 12/26/9 MACD and report trend and crossovers.",
		Schema:      tool.MustSchema(symbolParam, timeframeParam),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			symbol, err := requireString(args, "symbol")
			if err != nil {
				return nil, err
			}
			candles, timeframe, err := fetchCandles(ctx, src, symbol, stringArg(args, "timeframe"), 200)
			if err != nil {
				return nil, err
			}
			return indicator.MACD(symbol, timeframe, candles)
		},
	}); err != nil {
		return err
	}

	if err := reg.Register(&tool.Descriptor{
		Name:        "calculate_moving_averages",
		Description: "Calculate SMA and EMA for one or more periods and compare price against them.",
		Schema: tool.MustSchema(
			symbolParam,
			tool.Param{Name: "periods", Type: "array", Description: "Lookback periods, e.g. [20, 50, 200]", Default: []any{20, 50, 200}},
			timeframeParam,
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			symbol, err := requireString(args, "symbol")
			if err != nil {
				return nil, err
			}
			periods := intSliceArg(args, "periods")
			longest := 200
			for _, p := range periods {
				if p > longest {
					longest = p
				}
			}
			candles, timeframe, err := fetchCandles(ctx, src, symbol, stringArg(args, "timeframe"), analysisBars(longest))
			if err != nil {
				return nil, err
			}
			return indicator.MovingAverages(symbol, timeframe, candles, periods)
		},
	}); err != nil {
		return err
	}

	if err := reg.Register(&tool.Descriptor{
		Name:        "calculate_bollinger_bands",
		Description: "Calculate Bollinger bands and report where price sits within them.",
		Schema: tool.MustSchema(
			symbolParam,
			tool.Param{Name: "period", Type: "integer", Description: "Band lookback period", Default: 20},
			tool.Param{Name: "std_dev", Type: "number", Description: "Standard deviation multiplier", Default: 2},
			timeframeParam,
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			symbol, err := requireString(args, "symbol")
			if err != nil {
				return nil, err
			}
			period := intArg(args, "period", 20)
			candles, timeframe, err := fetchCandles(ctx, src, symbol, stringArg(args, "timeframe"), analysisBars(period))
			if err != nil {
				return nil, err
			}
			return indicator.Bollinger(symbol, timeframe, candles, period, floatArg(args, "std_dev", 2))
		},
	}); err != nil {
		return err
	}

	if err := reg.Register(&tool.Descriptor{
		Name:        "get_price_momentum",
		Description: "Measure recent price momentum and volume trend.",
		Schema: tool.MustSchema(
			symbolParam,
			tool.Param{Name: "periods", Type: "integer", Description: "Number of candles to measure over", Default: 20},
			timeframeParam,
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			symbol, err := requireString(args, "symbol")
			if err != nil {
				return nil, err
			}
			periods := intArg(args, "periods", 20)
			candles, timeframe, err := fetchCandles(ctx, src, symbol, stringArg(args, "timeframe"), analysisBars(periods))
			if err != nil {
				return nil, err
			}
			return indicator.Momentum(symbol, timeframe, candles, periods)
		},
	}); err != nil {
		return err
	}

	return reg.Register(&tool.Descriptor{
		Name:        "get_support_resistance",
		Description: "Find recent support and resistance levels from swing highs and lows.",
		Schema: tool.MustSchema(
			symbolParam,
			tool.Param{Name: "timeframe", Type: "string", Description: "Candle interval", Default: "1Day"},
			tool.Param{Name: "lookback", Type: "integer", Description: "Number of candles to scan", Default: 50},
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			symbol, err := requireString(args, "symbol")
			if err != nil {
				return nil, err
			}
			lookback := intArg(args, "lookback", 50)
			candles, timeframe, err := fetchCandles(ctx, src, symbol, stringArg(args, "timeframe"), analysisBars(lookback))
			if err != nil {
				return nil, err
			}
			return indicator.SupportResistance(symbol, timeframe, candles, lookback)
		},
	})
}

// analysisBars pads the fetch so the longest lookback has warmup data.
func analysisBars(period int) int {
	bars := period*3 + 10
	if bars < 100 {
		bars = 100
	}
	if bars > 1000 {
		bars = 1000
	}
	return bars
}
