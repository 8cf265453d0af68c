package tools

import (
	"context"

	"github.com/shopspring/decimal"

	"arena/internal/executor/paper"
	"arena/internal/tool"
)

func registerTrading(reg *tool.Registry, deps Deps) error {
	broker := deps.Broker

	if err := reg.Register(&tool.Descriptor{
		Name:        "get_account_info",
		Description: "Get the account summary: cash, buying power, portfolio value and total PnL.",
		Schema:      tool.MustSchema(),
		Capability: func(ctx context.Context, _ map[string]any) (any, error) {
			snap, err := broker.Account(ctx)
			if err != nil {
				return nil, brokerErr(err)
			}
			return snap, nil
		},
	}); err != nil {
		return err
	}

	if err := reg.Register(&tool.Descriptor{
		Name:        "get_positions",
		Description: "List all open positions with current price, market value and unrealized PnL.",
		Schema:      tool.MustSchema(),
		Capability: func(ctx context.Context, _ map[string]any) (any, error) {
			positions, err := broker.Positions(ctx)
			if err != nil {
				return nil, brokerErr(err)
			}
			if positions == nil {
				// Keep the JSON payload an array, not null.
				positions = []paper.PositionSnapshot{}
			}
			return positions, nil
		},
	}); err != nil {
		return err
	}

	if err := reg.Register(&tool.Descriptor{
		Name:        "place_crypto_order",
		Description: "Place a market order on the paper account. Returns the fill receipt.",
		Schema: tool.MustSchema(
			tool.Param{Name: "symbol", Type: "string", Description: "Trading pair like BTC/USD", Required: true},
			tool.Param{Name: "side", Type: "string", Description: "Order side", Required: true, Enum: []any{"buy", "sell"}},
			tool.Param{Name: "quantity", Type: "number", Description: "Asset quantity to trade", Required: true},
			tool.Param{Name: "order_type", Type: "string", Description: "Order type", Default: "market", Enum: []any{"market"}},
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			symbol, err := requireString(args, "symbol")
			if err != nil {
				return nil, err
			}
			side, err := requireString(args, "side")
			if err != nil {
				return nil, err
			}
			quantity := decimal.NewFromFloat(floatArg(args, "quantity", 0))
			receipt, err := broker.PlaceMarketOrder(ctx, symbol, side, quantity)
			if err != nil {
				return nil, brokerErr(err)
			}
			return receipt, nil
		},
	}); err != nil {
		return err
	}

	if err := reg.Register(&tool.Descriptor{
		Name:        "get_order_history",
		Description: "List recent orders, newest first.",
		Schema: tool.MustSchema(
			tool.Param{Name: "limit", Type: "integer", Description: "Maximum number of orders", Default: 10},
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			orders, err := broker.OrderHistory(ctx, intArg(args, "limit", 10))
			if err != nil {
				return nil, brokerErr(err)
			}
			return orders, nil
		},
	}); err != nil {
		return err
	}

	return reg.Register(&tool.Descriptor{
		Name:        "cancel_order",
		Description: "Cancel an open order by its order id.",
		Schema: tool.MustSchema(
			tool.Param{Name: "order_id", Type: "string", Description: "Order id returned by place_crypto_order", Required: true},
		),
		Capability: func(ctx context.Context, args map[string]any) (any, error) {
			orderID, err := requireString(args, "order_id")
			if err != nil {
				return nil, err
			}
			receipt, err := broker.CancelOrder(ctx, orderID)
			if err != nil {
				return nil, brokerErr(err)
			}
			return receipt, nil
		},
	})
}

func brokerErr(err error) error {
	return &tool.CollaboratorError{Class: "broker", Err: err}
}
