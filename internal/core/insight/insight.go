// Package insight computes the dashboard analytics from a state snapshot.
// Nothing here checks the tier; callers gate the pro figures.
package insight

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/bizdesk/internal/core/calc"
	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/store"
)

const (
	LowMarginPercent = 15
	OtherCategory    = "Others"
	TopSellerLimit   = 5
	ProfitItemLimit  = 8
	TrendDays        = 7
	window           = 30 * 24 * time.Hour
)

var lowMargin = decimal.NewFromInt(LowMarginPercent)

type Basic struct {
	TodayRevenue    decimal.Decimal `json:"today_revenue"`
	TodaySalesCount int             `json:"today_sales_count"`
	TotalUnits      int             `json:"total_units"`
	TopItemToday    *calc.ItemSales `json:"top_item_today,omitempty"`
}

type DayProfit struct {
	Day    time.Time       `json:"day"`
	Label  string          `json:"label"`
	Profit decimal.Decimal `json:"profit"`
	Sales  int             `json:"sales"`
}

type ItemProfit struct {
	ItemID string          `json:"item_id"`
	Name   string          `json:"name"`
	Profit decimal.Decimal `json:"profit"`
	Sold   int             `json:"sold"`
	Margin decimal.Decimal `json:"margin"`
	Stock  int             `json:"stock"`
}

type CategoryUnits struct {
	Category string `json:"category"`
	Units    int    `json:"units"`
}

type Pro struct {
	MonthlyRevenue decimal.Decimal        `json:"monthly_revenue"`
	MonthlyProfit  decimal.Decimal        `json:"monthly_profit"`
	Transactions   int                    `json:"transactions"`
	AvgSaleValue   decimal.Decimal        `json:"avg_sale_value"`
	ProfitTrend    []DayProfit            `json:"profit_trend"`
	TopSellers     []calc.ItemSales       `json:"top_sellers"`
	ProfitByItem   []ItemProfit           `json:"profit_by_item"`
	LowStock       []domain.InventoryItem `json:"low_stock"`
	LowMargin      []domain.InventoryItem `json:"low_margin"`
	Categories     []CategoryUnits        `json:"categories"`
}

func ComputeBasic(st store.State, now time.Time) Basic {
	today := calc.TodaysSales(st.Sales, now)
	b := Basic{
		TodayRevenue:    calc.TotalRevenue(today),
		TodaySalesCount: len(today),
		TotalUnits:      calc.TotalUnits(st.Inventory),
	}

	// First item to reach the highest count wins a tie.
	sold := calc.UnitsByItem(today)
	topID, topUnits := "", 0
	for _, s := range today {
		if sold[s.ItemID] > topUnits {
			topID, topUnits = s.ItemID, sold[s.ItemID]
		}
	}
	if item, ok := st.Item(topID); ok {
		b.TopItemToday = &calc.ItemSales{Item: item, TotalSold: topUnits}
	}
	return b
}

func ComputePro(st store.State, now time.Time, lowStockThreshold int) Pro {
	monthly := calc.SalesBetween(st.Sales, now.Add(-window), now.Add(time.Nanosecond))
	p := Pro{
		MonthlyRevenue: calc.TotalRevenue(monthly),
		MonthlyProfit:  calc.TotalProfit(monthly),
		Transactions:   len(monthly),
		AvgSaleValue:   decimal.Zero,
		ProfitTrend:    profitTrend(st.Sales, now),
		TopSellers:     calc.TopSellingItems(st.Inventory, st.Sales, TopSellerLimit),
		ProfitByItem:   profitByItem(st.Inventory, st.Sales),
		LowStock:       calc.LowStockItems(st.Inventory, lowStockThreshold),
		Categories:     categories(st.Inventory),
	}
	if p.Transactions > 0 {
		p.AvgSaleValue = p.MonthlyRevenue.DivRound(decimal.NewFromInt(int64(p.Transactions)), 2)
	}
	// A free item has no meaningful margin and is never flagged.
	for _, it := range st.Inventory {
		if it.CostPrice.IsZero() {
			continue
		}
		if calc.ProfitMargin(it.CostPrice, it.SellingPrice).LessThan(lowMargin) {
			p.LowMargin = append(p.LowMargin, it)
		}
	}
	return p
}

// profitTrend covers the last TrendDays calendar days, oldest first, today last.
func profitTrend(sales []domain.Sale, now time.Time) []DayProfit {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	out := make([]DayProfit, 0, TrendDays)
	for i := TrendDays - 1; i >= 0; i-- {
		start := today.AddDate(0, 0, -i)
		day := calc.SalesBetween(sales, start, start.AddDate(0, 0, 1))
		out = append(out, DayProfit{
			Day:    start,
			Label:  start.Format("2 Jan"),
			Profit: calc.TotalProfit(day),
			Sales:  len(day),
		})
	}
	return out
}

func profitByItem(items []domain.InventoryItem, sales []domain.Sale) []ItemProfit {
	profit := make(map[string]decimal.Decimal)
	for _, s := range sales {
		profit[s.ItemID] = profit[s.ItemID].Add(s.Profit)
	}
	sold := calc.UnitsByItem(sales)

	out := make([]ItemProfit, 0, len(items))
	for _, it := range items {
		out = append(out, ItemProfit{
			ItemID: it.ID,
			Name:   it.Name,
			Profit: profit[it.ID],
			Sold:   sold[it.ID],
			Margin: calc.ProfitMargin(it.CostPrice, it.SellingPrice).Round(2),
			Stock:  it.Quantity,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Profit.GreaterThan(out[j].Profit)
	})
	if len(out) > ProfitItemLimit {
		out = out[:ProfitItemLimit]
	}
	return out
}

// categories sums stock units per category in first-seen order.
func categories(items []domain.InventoryItem) []CategoryUnits {
	idx := make(map[string]int)
	var out []CategoryUnits
	for _, it := range items {
		name := it.Category
		if name == "" {
			name = OtherCategory
		}
		i, ok := idx[name]
		if !ok {
			i = len(out)
			idx[name] = i
			out = append(out, CategoryUnits{Category: name})
		}
		out[i].Units += it.Quantity
	}
	return out
}
