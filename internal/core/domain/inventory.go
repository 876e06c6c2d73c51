package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InventoryItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Category     string          `json:"category,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// UnitProfit is the margin earned on a single unit at current prices.
func (i InventoryItem) UnitProfit() decimal.Decimal {
	return i.SellingPrice.Sub(i.CostPrice)
}

func (i InventoryItem) InStock() bool {
	return i.Quantity > 0
}
