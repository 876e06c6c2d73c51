package service

import (
	"fmt"
	"io"
	"time"

	"github.com/rl1809/bizdesk/internal/core/calc"
	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/gate"
	"github.com/rl1809/bizdesk/internal/core/insight"
	"github.com/rl1809/bizdesk/internal/core/report"
	"github.com/rl1809/bizdesk/internal/core/store"
)

type InsightService struct {
	store             *store.Store
	gate              *gate.Gate
	lowStockThreshold int
	now               func() time.Time
}

func NewInsightService(st *store.Store, g *gate.Gate, lowStockThreshold int) *InsightService {
	if lowStockThreshold <= 0 {
		lowStockThreshold = calc.DefaultLowStockThreshold
	}
	return &InsightService{
		store:             st,
		gate:              g,
		lowStockThreshold: lowStockThreshold,
		now:               time.Now,
	}
}

func (s *InsightService) Basic() insight.Basic {
	return insight.ComputeBasic(s.store.Snapshot(), s.now())
}

// Pro returns a *gate.PaywallError on the free tier.
func (s *InsightService) Pro() (insight.Pro, error) {
	return gate.Run(s.gate, gate.PremiumAnalytics, func() (insight.Pro, error) {
		return insight.ComputePro(s.store.Snapshot(), s.now(), s.lowStockThreshold), nil
	})
}

// LowStock is free on every tier; the dashboard shows it as an alert.
func (s *InsightService) LowStock() []domain.InventoryItem {
	return calc.LowStockItems(s.store.Snapshot().Inventory, s.lowStockThreshold)
}

// WriteCSV streams the basic sales export and returns its file name.
func (s *InsightService) WriteCSV(w io.Writer) (string, error) {
	if err := report.WriteCSV(w, s.store.Snapshot().Sales); err != nil {
		return "", err
	}
	return report.CSVFileName(s.now()), nil
}

// WriteBusinessReport renders the pro report for user. Nothing is written on
// the free tier.
func (s *InsightService) WriteBusinessReport(w io.Writer, user domain.User) (string, error) {
	return gate.Run(s.gate, gate.AdvancedReports, func() (string, error) {
		now := s.now()
		r := report.BusinessReport{
			BusinessName: user.BusinessName,
			OwnerName:    user.OwnerName,
			GeneratedAt:  now,
			Insights:     insight.ComputePro(s.store.Snapshot(), now, s.lowStockThreshold),
		}
		if err := report.WriteBusinessReport(w, r); err != nil {
			return "", fmt.Errorf("render business report: %w", err)
		}
		return r.FileName(), nil
	})
}

func (s *InsightService) WriteReceipt(w io.Writer, saleID, businessName string) error {
	sale, ok := s.store.Snapshot().Sale(saleID)
	if !ok {
		return ErrSaleNotFound
	}
	return report.WriteReceipt(w, report.Receipt{BusinessName: businessName, Sale: sale})
}
