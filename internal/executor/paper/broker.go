// Package paper implements a simulated brokerage backed by SQLite.
// Market orders fill immediately at the current quote; account state
// survives restarts.
package paper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	applog "arena/internal/logger"
)

// Order sides and statuses on the wire.
const (
	SideBuy  = "buy"
	SideSell = "sell"

	StatusFilled   = "filled"
	StatusRejected = "rejected"
	StatusCanceled = "canceled"
)

var (
	// ErrInsufficientFunds is returned when a buy would overdraw cash.
	ErrInsufficientFunds = errors.New("insufficient cash for order")
	// ErrInsufficientQuantity is returned when a sell exceeds the held quantity.
	ErrInsufficientQuantity = errors.New("insufficient position quantity for order")
	// ErrPositionLimit is returned when a buy would exceed the per-symbol exposure cap.
	ErrPositionLimit = errors.New("order exceeds max position size")
	// ErrOrderNotOpen is returned when canceling an order that already reached
	// a terminal status.
	ErrOrderNotOpen = errors.New("order is not open")
	// ErrOrderNotFound is returned when the order id is unknown.
	ErrOrderNotFound = errors.New("order not found")
)

// QuoteFunc resolves the current mid price for a symbol like "BTC/USD".
type QuoteFunc func(ctx context.Context, symbol string) (decimal.Decimal, error)

// Config controls the simulated account.
type Config struct {
	StorePath      string
	StartingCash   decimal.Decimal
	MaxPositionPct float64 // 0 disables the cap
}

// Broker is the simulated brokerage. All mutating calls serialize on a
// single mutex; SQLite handles persistence.
type Broker struct {
	mu     sync.Mutex
	db     *gorm.DB
	quote  QuoteFunc
	maxPct decimal.Decimal
}

// NewBroker opens (or seeds) the paper account database.
func NewBroker(cfg Config, quote QuoteFunc) (*Broker, error) {
	path := strings.TrimSpace(cfg.StorePath)
	if path == "" {
		return nil, fmt.Errorf("paper broker: store path is required")
	}
	if quote == nil {
		return nil, fmt.Errorf("paper broker: quote source is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&accountModel{}, &positionModel{}, &orderModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)

	b := &Broker{db: db, quote: quote, maxPct: decimal.NewFromFloat(cfg.MaxPositionPct)}
	if err := b.seedAccount(cfg.StartingCash); err != nil {
		return nil, err
	}
	return b, nil
}

// Close closes the underlying database connection.
func (b *Broker) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (b *Broker) seedAccount(starting decimal.Decimal) error {
	var acct accountModel
	err := b.db.First(&acct, "id = ?", 1).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if starting.IsZero() || starting.IsNegative() {
		starting = decimal.NewFromInt(100000)
	}
	now := time.Now().UnixMilli()
	acct = accountModel{
		ID:            1,
		Cash:          starting.String(),
		StartingCash:  starting.String(),
		CreatedAtUnix: now,
		UpdatedAtUnix: now,
	}
	applog.Infof("paper broker: seeding new account with %s USD", starting.String())
	return b.db.Create(&acct).Error
}

// AccountSnapshot mirrors a brokerage account summary.
type AccountSnapshot struct {
	Cash           decimal.Decimal `json:"cash"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	BuyingPower    decimal.Decimal `json:"buying_power"`
	StartingCash   decimal.Decimal `json:"starting_cash"`
	TotalPnL       decimal.Decimal `json:"total_pnl"`
	TotalPnLPct    decimal.Decimal `json:"total_pnl_pct"`
}

// PositionSnapshot is one open holding priced at the current quote.
type PositionSnapshot struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPct decimal.Decimal `json:"unrealized_pnl_pct"`
}

// OrderReceipt records one order, filled or rejected.
type OrderReceipt struct {
	OrderID   string          `json:"order_id"`
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"`
	OrderType string          `json:"order_type"`
	Quantity  decimal.Decimal `json:"quantity"`
	FillPrice decimal.Decimal `json:"fill_price"`
	Notional  decimal.Decimal `json:"notional"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	FilledAt  time.Time       `json:"filled_at,omitempty"`
}

// Account returns the account priced at current quotes.
func (b *Broker) Account(ctx context.Context) (AccountSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accountLocked(ctx)
}

func (b *Broker) accountLocked(ctx context.Context) (AccountSnapshot, error) {
	var acct accountModel
	if err := b.db.WithContext(ctx).First(&acct, "id = ?", 1).Error; err != nil {
		return AccountSnapshot{}, err
	}
	cash := mustDecimal(acct.Cash)
	starting := mustDecimal(acct.StartingCash)

	positions, err := b.positionsLocked(ctx)
	if err != nil {
		return AccountSnapshot{}, err
	}
	portfolio := cash
	for _, p := range positions {
		portfolio = portfolio.Add(p.MarketValue)
	}
	snap := AccountSnapshot{
		Cash:           cash,
		PortfolioValue: portfolio,
		BuyingPower:    cash,
		StartingCash:   starting,
		TotalPnL:       portfolio.Sub(starting),
	}
	if starting.IsPositive() {
		snap.TotalPnLPct = snap.TotalPnL.Div(starting).Mul(decimal.NewFromInt(100)).Round(4)
	}
	return snap, nil
}

// Positions returns all open holdings priced at current quotes.
func (b *Broker) Positions(ctx context.Context) ([]PositionSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.positionsLocked(ctx)
}

func (b *Broker) positionsLocked(ctx context.Context) ([]PositionSnapshot, error) {
	var models []positionModel
	if err := b.db.WithContext(ctx).Order("symbol ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]PositionSnapshot, 0, len(models))
	for _, m := range models {
		qty := mustDecimal(m.Quantity)
		if qty.IsZero() {
			continue
		}
		price, err := b.quote(ctx, m.Symbol)
		if err != nil {
			return nil, fmt.Errorf("pricing position %s: %w", m.Symbol, err)
		}
		entry := mustDecimal(m.AvgEntryPrice)
		cost := mustDecimal(m.CostBasis)
		value := qty.Mul(price)
		pnl := value.Sub(cost)
		pos := PositionSnapshot{
			Symbol:        m.Symbol,
			Quantity:      qty,
			AvgEntryPrice: entry,
			CurrentPrice:  price,
			MarketValue:   value,
			CostBasis:     cost,
			UnrealizedPnL: pnl,
		}
		if cost.IsPositive() {
			pos.UnrealizedPct = pnl.Div(cost).Mul(decimal.NewFromInt(100)).Round(4)
		}
		out = append(out, pos)
	}
	return out, nil
}

// PortfolioValue returns cash plus the marked value of all positions.
func (b *Broker) PortfolioValue(ctx context.Context) (decimal.Decimal, error) {
	snap, err := b.Account(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.PortfolioValue, nil
}

// PlaceMarketOrder fills a market order at the current quote and settles it
// against cash and positions in one transaction.
func (b *Broker) PlaceMarketOrder(ctx context.Context, symbol, side string, quantity decimal.Decimal) (OrderReceipt, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	side = strings.ToLower(strings.TrimSpace(side))
	if symbol == "" {
		return OrderReceipt{}, fmt.Errorf("symbol is required")
	}
	if side != SideBuy && side != SideSell {
		return OrderReceipt{}, fmt.Errorf("side must be %q or %q, got %q", SideBuy, SideSell, side)
	}
	if !quantity.IsPositive() {
		return OrderReceipt{}, fmt.Errorf("quantity must be positive, got %s", quantity.String())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	price, err := b.quote(ctx, symbol)
	if err != nil {
		return OrderReceipt{}, fmt.Errorf("quoting %s: %w", symbol, err)
	}
	notional := quantity.Mul(price)

	receipt := OrderReceipt{
		OrderID:   uuid.NewString(),
		Symbol:    symbol,
		Side:      side,
		OrderType: "market",
		Quantity:  quantity,
		FillPrice: price,
		Notional:  notional,
		Status:    StatusFilled,
		CreatedAt: time.Now(),
	}

	err = b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acct accountModel
		if err := tx.First(&acct, "id = ?", 1).Error; err != nil {
			return err
		}
		cash := mustDecimal(acct.Cash)

		var pos positionModel
		posErr := tx.First(&pos, "symbol = ?", symbol).Error
		if posErr != nil && !errors.Is(posErr, gorm.ErrRecordNotFound) {
			return posErr
		}
		held := decimal.Zero
		cost := decimal.Zero
		if posErr == nil {
			held = mustDecimal(pos.Quantity)
			cost = mustDecimal(pos.CostBasis)
		}

		switch side {
		case SideBuy:
			if notional.GreaterThan(cash) {
				return fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, notional.Round(2), cash.Round(2))
			}
			if err := b.checkPositionCap(cash, held.Mul(price), notional); err != nil {
				return err
			}
			cash = cash.Sub(notional)
			held = held.Add(quantity)
			cost = cost.Add(notional)
		case SideSell:
			if quantity.GreaterThan(held) {
				return fmt.Errorf("%w: selling %s, holding %s %s", ErrInsufficientQuantity, quantity, held, symbol)
			}
			// Reduce cost basis proportionally; realized PnL flows into cash.
			ratio := quantity.Div(held)
			cash = cash.Add(notional)
			cost = cost.Sub(cost.Mul(ratio))
			held = held.Sub(quantity)
		}

		now := time.Now().UnixMilli()
		avg := decimal.Zero
		if held.IsPositive() {
			avg = cost.Div(held)
		}
		if held.IsZero() {
			if posErr == nil {
				if err := tx.Delete(&positionModel{}, "symbol = ?", symbol).Error; err != nil {
					return err
				}
			}
		} else {
			record := positionModel{
				Symbol:        symbol,
				Quantity:      held.String(),
				AvgEntryPrice: avg.String(),
				CostBasis:     cost.String(),
				UpdatedAtUnix: now,
			}
			if posErr == nil {
				record.ID = pos.ID
				if err := tx.Save(&record).Error; err != nil {
					return err
				}
			} else if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&accountModel{}).Where("id = ?", 1).Updates(map[string]any{
			"cash":       cash.String(),
			"updated_at": now,
		}).Error; err != nil {
			return err
		}
		return tx.Create(newOrderModel(receipt)).Error
	})
	if err != nil {
		rejErr := b.recordRejected(ctx, receipt, err)
		if rejErr != nil {
			applog.Warnf("paper broker: failed to record rejected order: %v", rejErr)
		}
		return OrderReceipt{}, err
	}
	receipt.FilledAt = receipt.CreatedAt
	applog.Infof("paper broker: filled %s %s %s @ %s (notional %s)",
		side, quantity.String(), symbol, price.Round(2).String(), notional.Round(2).String())
	return receipt, nil
}

// checkPositionCap enforces the per-symbol exposure limit against the
// portfolio value at order time.
func (b *Broker) checkPositionCap(cash, heldValue, notional decimal.Decimal) error {
	if !b.maxPct.IsPositive() {
		return nil
	}
	portfolio := cash.Add(heldValue)
	if !portfolio.IsPositive() {
		return nil
	}
	limit := portfolio.Mul(b.maxPct)
	exposure := heldValue.Add(notional)
	if exposure.GreaterThan(limit) {
		return fmt.Errorf("%w: exposure %s would exceed limit %s (%s%% of portfolio)",
			ErrPositionLimit, exposure.Round(2), limit.Round(2),
			b.maxPct.Mul(decimal.NewFromInt(100)).Round(1))
	}
	return nil
}

func (b *Broker) recordRejected(ctx context.Context, receipt OrderReceipt, cause error) error {
	receipt.Status = StatusRejected
	model := newOrderModel(receipt)
	detail, _ := json.Marshal(map[string]string{"reason": cause.Error()})
	model.Detail = datatypes.JSON(detail)
	return b.db.WithContext(ctx).Create(model).Error
}

func newOrderModel(r OrderReceipt) *orderModel {
	m := &orderModel{
		OrderID:       r.OrderID,
		Symbol:        r.Symbol,
		Side:          r.Side,
		OrderType:     r.OrderType,
		Quantity:      r.Quantity.String(),
		FillPrice:     r.FillPrice.String(),
		Notional:      r.Notional.String(),
		Status:        r.Status,
		CreatedAtUnix: r.CreatedAt.UnixMilli(),
	}
	if r.Status == StatusFilled {
		m.FilledAtUnix = r.CreatedAt.UnixMilli()
	}
	return m
}

// OrderHistory lists the most recent orders, newest first.
func (b *Broker) OrderHistory(ctx context.Context, limit int) ([]OrderReceipt, error) {
	if limit <= 0 || limit > 500 {
		limit = 10
	}
	var models []orderModel
	if err := b.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]OrderReceipt, 0, len(models))
	for _, m := range models {
		out = append(out, orderModelToReceipt(m))
	}
	return out, nil
}

// CancelOrder cancels an order by id. Market orders fill immediately, so
// this only succeeds for orders that somehow remain open.
func (b *Broker) CancelOrder(ctx context.Context, orderID string) (OrderReceipt, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return OrderReceipt{}, fmt.Errorf("order_id is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var m orderModel
	err := b.db.WithContext(ctx).First(&m, "order_uuid = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderReceipt{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return OrderReceipt{}, err
	}
	if m.Status == StatusFilled || m.Status == StatusRejected || m.Status == StatusCanceled {
		return orderModelToReceipt(m), fmt.Errorf("%w: %s is %s", ErrOrderNotOpen, orderID, m.Status)
	}
	if err := b.db.WithContext(ctx).Model(&orderModel{}).
		Where("order_uuid = ?", orderID).
		Update("status", StatusCanceled).Error; err != nil {
		return OrderReceipt{}, err
	}
	m.Status = StatusCanceled
	return orderModelToReceipt(m), nil
}

func orderModelToReceipt(m orderModel) OrderReceipt {
	return OrderReceipt{
		OrderID:   m.OrderID,
		Symbol:    m.Symbol,
		Side:      m.Side,
		OrderType: m.OrderType,
		Quantity:  mustDecimal(m.Quantity),
		FillPrice: mustDecimal(m.FillPrice),
		Notional:  mustDecimal(m.Notional),
		Status:    m.Status,
		CreatedAt: millisToTime(m.CreatedAtUnix),
		FilledAt:  millisToTime(m.FilledAtUnix),
	}
}

func mustDecimal(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
