package tools

import (
	"context"

	"arena/internal/tool"
)

func registerResearch(reg *tool.Registry, deps Deps) error {
	client := deps.Search

	if err := reg.Register(&tool.Descriptor{
		Name:        "search_crypto_news",
		Description: "Search recent cryptocurrency news for a topic or asset.",
		Schema: tool.MustSchema(
			tool.Param{Name: "query", Type: "string", Description: "What to search for", Required: true},
			tool.Param{Name: "max_results", Type: "integer", Description: "Maximum results", Default: 5},
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			query, err := requireString(args, "query")
			if err != nil {
				return nil, err
			}
			resp, err := client.CryptoNews(ctx, query, intArg(args, "max_results", 5))
			if err != nil {
				return nil, searchErr(err)
			}
			return resp, nil
		},
	}); err != nil {
		return err
	}

	if err := reg.Register(&tool.Descriptor{
		Name:        "get_market_sentiment",
		Description: "Get overall market sentiment: the crypto Fear & Greed index plus recent sentiment headlines for a symbol.",
		Schema: tool.MustSchema(
			tool.Param{Name: "symbol", Type: "string", Description: "Asset to gauge sentiment for, e.g. BTC", Required: true},
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			symbol, err := requireString(args, "symbol")
			if err != nil {
				return nil, err
			}
			out := map[string]any{"symbol": symbol}
			if deps.FearGreed != nil {
				if fg, err := deps.FearGreed.Current(ctx); err == nil {
					out["fear_greed"] = fg
				} else {
					out["fear_greed_error"] = err.Error()
				}
			}
			if client.Enabled() {
				resp, err := client.CryptoNews(ctx, symbol+" market sentiment", 3)
				if err != nil {
					out["news_error"] = err.Error()
				} else {
					out["headlines"] = resp.Results
					if resp.Answer != "" {
						out["summary"] = resp.Answer
					}
				}
			}
			return out, nil
		},
	}); err != nil {
		return err
	}

	if err := reg.Register(&tool.Descriptor{
		Name:        "search_technical_analysis",
		Description: "Search for current technical analysis commentary on a symbol.",
		Schema: tool.MustSchema(
			tool.Param{Name: "symbol", Type: "string", Description: "Asset symbol, e.g. BTC", Required: true},
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			symbol, err := requireString(args, "symbol")
			if err != nil {
				return nil, err
			}
			resp, err := client.TechnicalAnalysis(ctx, symbol)
			if err != nil {
				return nil, searchErr(err)
			}
			return resp, nil
		},
	}); err != nil {
		return err
	}

	return reg.Register(&tool.Descriptor{
		Name:        "search_general_web",
		Description: "Run a general web search.",
		Schema: tool.MustSchema(
			tool.Param{Name: "query", Type: "string", Description: "What to search for", Required: true},
			tool.Param{Name: "max_results", Type: "integer", Description: "Maximum results", Default: 5},
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			query, err := requireString(args, "query")
			if err != nil {
				return nil, err
			}
			resp, err := client.GeneralWeb(ctx, query, intArg(args, "max_results", 5))
			if err != nil {
				return nil, searchErr(err)
			}
			return resp, nil
		},
	})
}

func searchErr(err error) error {
	return &tool.CollaboratorError{Class: "search", Err: err}
}
