package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is immutable once recorded. ItemName and UnitPrice are copied from
// the inventory item at sale time so later edits never rewrite history.
type Sale struct {
	ID           string          `json:"id"`
	ItemID       string          `json:"item_id"`
	ItemName     string          `json:"item_name"`
	QuantitySold int             `json:"quantity_sold"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Profit       decimal.Decimal `json:"profit"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewSale snapshots item into a sale of quantity units.
func NewSale(id string, item InventoryItem, quantity int, at time.Time) Sale {
	q := decimal.NewFromInt(int64(quantity))
	return Sale{
		ID:           id,
		ItemID:       item.ID,
		ItemName:     item.Name,
		QuantitySold: quantity,
		UnitPrice:    item.SellingPrice,
		TotalAmount:  item.SellingPrice.Mul(q),
		Profit:       item.UnitProfit().Mul(q),
		CreatedAt:    at,
	}
}
