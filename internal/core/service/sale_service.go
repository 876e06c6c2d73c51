package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/bizdesk/internal/core/calc"
	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/store"
	"github.com/rl1809/bizdesk/internal/obs"
	"github.com/rl1809/bizdesk/internal/port"
)

const saleIdempotencyTTL = 24 * time.Hour

type SaleService struct {
	store   *store.Store
	cache   port.CacheRepository
	metrics *obs.Metrics
	now     func() time.Time
}

func NewSaleService(st *store.Store, cache port.CacheRepository, metrics *obs.Metrics) *SaleService {
	return &SaleService{
		store:   st,
		cache:   cache,
		metrics: metrics,
		now:     time.Now,
	}
}

// RecordSale sells quantity units of itemID. The stock check, the sale record
// and the stock decrement happen under one store lock, so concurrent callers
// can never oversell. A non-empty requestID makes the call idempotent: a
// replay of an accepted request returns ErrDuplicateRequest.
func (s *SaleService) RecordSale(ctx context.Context, requestID, itemID string, quantity int) (domain.Sale, error) {
	if quantity <= 0 {
		s.metrics.SaleRejected("invalid_quantity")
		return domain.Sale{}, ErrInvalidQuantity
	}

	idempotencyKey := ""
	if requestID != "" {
		idempotencyKey = fmt.Sprintf("sale:%s", requestID)
		ok, err := s.cache.SetIdempotency(ctx, idempotencyKey, saleIdempotencyTTL)
		if err != nil {
			return domain.Sale{}, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			s.metrics.SaleRejected("duplicate")
			return domain.Sale{}, ErrDuplicateRequest
		}
	}

	var sale domain.Sale
	err := s.store.Transact(func(cur store.State) ([]store.Action, error) {
		item, ok := cur.Item(itemID)
		if !ok {
			return nil, ErrItemNotFound
		}
		if item.Quantity < quantity {
			return nil, fmt.Errorf("%w: %d requested, %d available", ErrInsufficientStock, quantity, item.Quantity)
		}
		sale = domain.NewSale(calc.GenerateID(), item, quantity, s.now())
		return []store.Action{
			store.AddSale{Sale: sale},
			store.UpdateInventoryAfterSale{ItemID: item.ID, QuantitySold: quantity},
		}, nil
	})
	if err != nil {
		s.metrics.SaleRejected(rejectReason(err))
		if idempotencyKey != "" {
			// Nothing was applied, so the same request may be sent again.
			if cerr := s.cache.ClearIdempotency(ctx, idempotencyKey); cerr != nil {
				obs.Logger.Warn("idempotency_clear_failed", "key", idempotencyKey, "error", cerr)
			}
		}
		return domain.Sale{}, err
	}

	s.metrics.SaleRecorded()
	obs.Logger.Info("sale_recorded",
		"sale_id", sale.ID,
		"item_id", sale.ItemID,
		"quantity", sale.QuantitySold,
		"total", sale.TotalAmount.String(),
	)
	return sale, nil
}

func (s *SaleService) Get(id string) (domain.Sale, error) {
	sale, ok := s.store.Snapshot().Sale(id)
	if !ok {
		return domain.Sale{}, ErrSaleNotFound
	}
	return sale, nil
}

// List returns up to limit sales, newest first. A negative limit returns all.
func (s *SaleService) List(limit int) []domain.Sale {
	return calc.MostRecentSales(s.store.Snapshot().Sales, limit)
}

// Today returns the sales made on now's calendar day.
func (s *SaleService) Today() []domain.Sale {
	return calc.TodaysSales(s.store.Snapshot().Sales, s.now())
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "other"
	}
}
