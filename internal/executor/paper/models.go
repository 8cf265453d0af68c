package paper

import (
	"time"

	"gorm.io/datatypes"
)

type accountModel struct {
	ID            int64  `gorm:"column:id;primaryKey"`
	Cash          string `gorm:"column:cash"`
	StartingCash  string `gorm:"column:starting_cash"`
	CreatedAtUnix int64  `gorm:"column:created_at"`
	UpdatedAtUnix int64  `gorm:"column:updated_at"`
}

func (accountModel) TableName() string { return "paper_account" }

type positionModel struct {
	ID            int64  `gorm:"column:id;primaryKey"`
	Symbol        string `gorm:"column:symbol;uniqueIndex"`
	Quantity      string `gorm:"column:quantity"`
	AvgEntryPrice string `gorm:"column:avg_entry_price"`
	CostBasis     string `gorm:"column:cost_basis"`
	UpdatedAtUnix int64  `gorm:"column:updated_at"`
}

func (positionModel) TableName() string { return "paper_positions" }

type orderModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	OrderID       string         `gorm:"column:order_uuid;uniqueIndex"`
	Symbol        string         `gorm:"column:symbol;index"`
	Side          string         `gorm:"column:side"`
	OrderType     string         `gorm:"column:order_type"`
	Quantity      string         `gorm:"column:quantity"`
	FillPrice     string         `gorm:"column:fill_price"`
	Notional      string         `gorm:"column:notional"`
	Status        string         `gorm:"column:status;index"`
	Detail        datatypes.JSON `gorm:"column:detail"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
	FilledAtUnix  int64          `gorm:"column:filled_at"`
}

func (orderModel) TableName() string { return "paper_orders" }

func millisToTime(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(v)
}
