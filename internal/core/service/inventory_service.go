package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/bizdesk/internal/core/calc"
	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/store"
)

type ItemInput struct {
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Category     string          `json:"category"`
}

func (in ItemInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return invalid("name", "is required")
	case in.Quantity < 0:
		return invalid("quantity", "must not be negative")
	case in.CostPrice.IsNegative():
		return invalid("cost_price", "must not be negative")
	case in.SellingPrice.IsNegative():
		return invalid("selling_price", "must not be negative")
	}
	return nil
}

type InventoryService struct {
	store *store.Store
	now   func() time.Time
}

func NewInventoryService(st *store.Store) *InventoryService {
	return &InventoryService{store: st, now: time.Now}
}

func (s *InventoryService) Add(in ItemInput) (domain.InventoryItem, error) {
	if err := in.validate(); err != nil {
		return domain.InventoryItem{}, err
	}
	now := s.now()
	item := domain.InventoryItem{
		ID:           calc.GenerateID(),
		Name:         strings.TrimSpace(in.Name),
		Quantity:     in.Quantity,
		CostPrice:    in.CostPrice,
		SellingPrice: in.SellingPrice,
		Category:     strings.TrimSpace(in.Category),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.store.Dispatch(store.AddInventoryItem{Item: item})
	return item, nil
}

// Update replaces every editable field of id, keeping its creation time.
func (s *InventoryService) Update(id string, in ItemInput) (domain.InventoryItem, error) {
	if err := in.validate(); err != nil {
		return domain.InventoryItem{}, err
	}
	var updated domain.InventoryItem
	err := s.store.Transact(func(cur store.State) ([]store.Action, error) {
		existing, ok := cur.Item(id)
		if !ok {
			return nil, fmt.Errorf("update %s: %w", id, ErrItemNotFound)
		}
		updated = existing
		updated.Name = strings.TrimSpace(in.Name)
		updated.Quantity = in.Quantity
		updated.CostPrice = in.CostPrice
		updated.SellingPrice = in.SellingPrice
		updated.Category = strings.TrimSpace(in.Category)
		updated.UpdatedAt = s.now()
		return []store.Action{store.UpdateInventoryItem{Item: updated}}, nil
	})
	return updated, err
}

// Delete removes the item. Past sales keep their own snapshot of it.
func (s *InventoryService) Delete(id string) error {
	return s.store.Transact(func(cur store.State) ([]store.Action, error) {
		if _, ok := cur.Item(id); !ok {
			return nil, fmt.Errorf("delete %s: %w", id, ErrItemNotFound)
		}
		return []store.Action{store.DeleteInventoryItem{ID: id}}, nil
	})
}

func (s *InventoryService) Get(id string) (domain.InventoryItem, error) {
	item, ok := s.store.Snapshot().Item(id)
	if !ok {
		return domain.InventoryItem{}, ErrItemNotFound
	}
	return item, nil
}

func (s *InventoryService) List() []domain.InventoryItem {
	return s.store.Snapshot().Inventory
}
