// Package report renders the downloadable exports: the free CSV of recent
// sales, the pro business report and per-sale receipts.
package report

import (
	"embed"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/bizdesk/internal/core/calc"
	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/insight"
)

const CSVSaleLimit = 10

var csvHeader = []string{"Date", "Item", "Quantity", "Revenue", "Profit"}

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"currency": calc.FormatCurrency,
	"datetime": calc.FormatDate,
	"inc":      func(i int) int { return i + 1 },
	"mul":      mulUnits,
	"rating":   rating,
}).ParseFS(templateFS, "templates/*.html.tmpl"))

var (
	excellentDay = decimal.NewFromInt(1000)
	goodDay      = decimal.NewFromInt(500)
	growthMark   = decimal.NewFromInt(10000)
)

// CSVFileName is the download name for a CSV generated at now.
func CSVFileName(now time.Time) string {
	return fmt.Sprintf("basic-report-%s.csv", now.Format("2006-01-02"))
}

// WriteCSV writes the most recent sales, newest first. Fields are quoted
// where needed so item names may contain commas.
func WriteCSV(w io.Writer, sales []domain.Sale) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range calc.MostRecentSales(sales, CSVSaleLimit) {
		row := []string{
			s.CreatedAt.Format("02/01/2006"),
			s.ItemName,
			fmt.Sprint(s.QuantitySold),
			s.TotalAmount.StringFixed(2),
			s.Profit.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", s.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type BusinessReport struct {
	BusinessName string
	OwnerName    string
	GeneratedAt  time.Time
	Insights     insight.Pro
}

func (r BusinessReport) ReportDate() string {
	return r.GeneratedAt.Format("2 January 2006")
}

func (r BusinessReport) Recommendations() []string {
	out := []string{"Focus on promoting your top-selling items to maximize revenue."}
	if n := len(r.Insights.LowStock); n > 0 {
		out = append(out, fmt.Sprintf("Restock %d low-stock items immediately.", n))
	} else {
		out = append(out, "Maintain current stock levels.")
	}
	out = append(out, fmt.Sprintf("Your average sale value is %s. Consider bundling products to increase it.",
		calc.FormatCurrency(r.Insights.AvgSaleValue.Round(0))))
	if r.Insights.MonthlyProfit.GreaterThan(growthMark) {
		out = append(out, "Consider expanding your product range.")
	} else {
		out = append(out, "Focus on high-margin items to boost profitability.")
	}
	return out
}

// FileName is the download name of the rendered report.
func (r BusinessReport) FileName() string {
	return fmt.Sprintf("business-report-%s.html", r.GeneratedAt.Format("2006-01-02"))
}

// WriteBusinessReport renders a self-contained HTML document.
func WriteBusinessReport(w io.Writer, r BusinessReport) error {
	if r.BusinessName == "" {
		r.BusinessName = "Your Business"
	}
	if r.OwnerName == "" {
		r.OwnerName = "Business Owner"
	}
	return templates.ExecuteTemplate(w, "business_report.html.tmpl", r)
}

type Receipt struct {
	BusinessName string
	Sale         domain.Sale
}

func (r Receipt) Number() string {
	return ReceiptNumber(r.Sale.ID)
}

// ReceiptNumber is the last six characters of the sale id.
func ReceiptNumber(saleID string) string {
	if len(saleID) <= 6 {
		return saleID
	}
	return saleID[len(saleID)-6:]
}

func WriteReceipt(w io.Writer, r Receipt) error {
	if r.BusinessName == "" {
		r.BusinessName = "Your Business Store"
	}
	return templates.ExecuteTemplate(w, "receipt.html.tmpl", r)
}

func rating(profit decimal.Decimal) string {
	switch {
	case profit.GreaterThan(excellentDay):
		return "Excellent"
	case profit.GreaterThan(goodDay):
		return "Good"
	default:
		return "Needs Improvement"
	}
}

func mulUnits(price decimal.Decimal, n int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(n)))
}
