// Package calc holds the pure arithmetic and filtering helpers shared by
// the services, insights and reports.
package calc

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/bizdesk/internal/core/domain"
)

const DefaultLowStockThreshold = 10

var hundred = decimal.NewFromInt(100)

// ItemSales pairs an inventory item with the units sold across a set of sales.
type ItemSales struct {
	Item      domain.InventoryItem `json:"item"`
	TotalSold int                  `json:"total_sold"`
}

func CalculateProfit(costPrice, sellingPrice decimal.Decimal, quantity int) decimal.Decimal {
	return sellingPrice.Sub(costPrice).Mul(decimal.NewFromInt(int64(quantity)))
}

// ProfitMargin is the markup over cost in percent. A zero cost has no
// meaningful markup and reports zero.
func ProfitMargin(costPrice, sellingPrice decimal.Decimal) decimal.Decimal {
	if costPrice.IsZero() {
		return decimal.Zero
	}
	return sellingPrice.Sub(costPrice).Div(costPrice).Mul(hundred)
}

func TodaysSales(sales []domain.Sale, now time.Time) []domain.Sale {
	var out []domain.Sale
	for _, s := range sales {
		if domain.SameDay(s.CreatedAt, now) {
			out = append(out, s)
		}
	}
	return out
}

// SalesBetween returns sales with from <= createdAt < to.
func SalesBetween(sales []domain.Sale, from, to time.Time) []domain.Sale {
	var out []domain.Sale
	for _, s := range sales {
		if !s.CreatedAt.Before(from) && s.CreatedAt.Before(to) {
			out = append(out, s)
		}
	}
	return out
}

func TotalRevenue(sales []domain.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.TotalAmount)
	}
	return total
}

func TotalProfit(sales []domain.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.Profit)
	}
	return total
}

func TotalUnits(items []domain.InventoryItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// UnitsByItem sums quantitySold per item id.
func UnitsByItem(sales []domain.Sale) map[string]int {
	m := make(map[string]int)
	for _, s := range sales {
		m[s.ItemID] += s.QuantitySold
	}
	return m
}

func LowStockItems(items []domain.InventoryItem, threshold int) []domain.InventoryItem {
	var out []domain.InventoryItem
	for _, it := range items {
		if it.Quantity < threshold {
			out = append(out, it)
		}
	}
	return out
}

// TopSellingItems ranks every current item by units sold, highest first,
// and keeps at most limit entries. Ties keep inventory order.
func TopSellingItems(items []domain.InventoryItem, sales []domain.Sale, limit int) []ItemSales {
	sold := UnitsByItem(sales)
	ranked := make([]ItemSales, 0, len(items))
	for _, it := range items {
		ranked = append(ranked, ItemSales{Item: it, TotalSold: sold[it.ID]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalSold > ranked[j].TotalSold
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// MostRecentSales returns up to n sales, newest first.
func MostRecentSales(sales []domain.Sale, n int) []domain.Sale {
	out := make([]domain.Sale, len(sales))
	copy(out, sales)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func GenerateID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FormatCurrency renders amount as Indian rupees with lakh/crore grouping,
// e.g. 1234567.5 -> "₹12,34,567.50".
func FormatCurrency(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	intPart, frac, _ := strings.Cut(rounded.Abs().StringFixed(2), ".")

	var b strings.Builder
	if rounded.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString("₹")
	b.WriteString(groupIndian(intPart))
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	return strings.Join(groups, ",") + "," + tail
}

// FormatDate renders t the way the en-IN locale prints a short date with time.
func FormatDate(t time.Time) string {
	return t.Format("2 Jan 2006, 03:04 pm")
}

// FormatDay renders the calendar day only.
func FormatDay(t time.Time) string {
	return t.Format("2 Jan 2006")
}
