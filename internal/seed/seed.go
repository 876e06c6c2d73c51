// Package seed builds an initial store.State from a YAML file. Dates in the
// file are relative to load time so a demo dataset never goes stale.
package seed

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rl1809/bizdesk/internal/core/calc"
	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/store"
)

// File is the on-disk layout.
type File struct {
	Tier      string     `yaml:"tier"`
	Inventory []Item     `yaml:"inventory"`
	Sales     []Sale     `yaml:"sales"`
	Contacts  []Contact  `yaml:"contacts"`
	Reminders []Reminder `yaml:"reminders"`
}

type Item struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Quantity     int    `yaml:"quantity"`
	CostPrice    string `yaml:"cost_price"`
	SellingPrice string `yaml:"selling_price"`
	Category     string `yaml:"category"`
}

// Sale references an inventory item by id and is priced from it.
type Sale struct {
	ItemID   string        `yaml:"item_id"`
	Quantity int           `yaml:"quantity"`
	Ago      time.Duration `yaml:"ago"`
}

type Contact struct {
	Name    string `yaml:"name"`
	Phone   string `yaml:"phone"`
	Type    string `yaml:"type"`
	Email   string `yaml:"email"`
	Address string `yaml:"address"`
}

// Reminder is due at load time plus DueIn. A negative DueIn is overdue.
type Reminder struct {
	Title          string        `yaml:"title"`
	Description    string        `yaml:"description"`
	RecipientName  string        `yaml:"recipient_name"`
	RecipientPhone string        `yaml:"recipient_phone"`
	DueIn          time.Duration `yaml:"due_in"`
	Completed      bool          `yaml:"completed"`
}

func LoadFile(path string, now time.Time) (store.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return store.State{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Load(f, now)
}

func Load(r io.Reader, now time.Time) (store.State, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return store.State{}, fmt.Errorf("decode seed: %w", err)
	}
	return file.Build(now)
}

// Build converts the file into a State, assigning ids where missing.
func (f File) Build(now time.Time) (store.State, error) {
	st := store.NewState()
	switch domain.Tier(f.Tier) {
	case "", domain.TierFree:
	case domain.TierPro:
		st.UserTier = domain.TierPro
	default:
		return store.State{}, fmt.Errorf("unknown tier %q", f.Tier)
	}

	items := make(map[string]domain.InventoryItem, len(f.Inventory))
	for i, in := range f.Inventory {
		item, err := in.build(now)
		if err != nil {
			return store.State{}, fmt.Errorf("inventory[%d]: %w", i, err)
		}
		if _, dup := items[item.ID]; dup {
			return store.State{}, fmt.Errorf("inventory[%d]: duplicate id %q", i, item.ID)
		}
		items[item.ID] = item
		st.Inventory = append(st.Inventory, item)
	}

	for i, in := range f.Sales {
		item, ok := items[in.ItemID]
		if !ok {
			return store.State{}, fmt.Errorf("sales[%d]: unknown item %q", i, in.ItemID)
		}
		if in.Quantity <= 0 {
			return store.State{}, fmt.Errorf("sales[%d]: quantity must be positive", i)
		}
		st.Sales = append(st.Sales, domain.NewSale(calc.GenerateID(), item, in.Quantity, now.Add(-in.Ago)))
	}

	for i, in := range f.Contacts {
		t := domain.ContactType(in.Type)
		if in.Name == "" || in.Phone == "" || !t.Valid() {
			return store.State{}, fmt.Errorf("contacts[%d]: name, phone and a valid type are required", i)
		}
		st.Contacts = append(st.Contacts, domain.Contact{
			ID:        calc.GenerateID(),
			Name:      in.Name,
			Phone:     in.Phone,
			Type:      t,
			Email:     in.Email,
			Address:   in.Address,
			CreatedAt: now,
		})
	}

	for i, in := range f.Reminders {
		if in.Title == "" {
			return store.State{}, fmt.Errorf("reminders[%d]: title is required", i)
		}
		st.Reminders = append(st.Reminders, domain.Reminder{
			ID:             calc.GenerateID(),
			Title:          in.Title,
			Description:    in.Description,
			RecipientName:  in.RecipientName,
			RecipientPhone: in.RecipientPhone,
			DueDate:        now.Add(in.DueIn),
			IsCompleted:    in.Completed,
			CreatedAt:      now,
		})
	}
	return st, nil
}

func (in Item) build(now time.Time) (domain.InventoryItem, error) {
	if in.Name == "" {
		return domain.InventoryItem{}, fmt.Errorf("name is required")
	}
	if in.Quantity < 0 {
		return domain.InventoryItem{}, fmt.Errorf("quantity must not be negative")
	}
	cost, err := decimal.NewFromString(in.CostPrice)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("cost_price: %w", err)
	}
	price, err := decimal.NewFromString(in.SellingPrice)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("selling_price: %w", err)
	}
	id := in.ID
	if id == "" {
		id = calc.GenerateID()
	}
	return domain.InventoryItem{
		ID:           id,
		Name:         in.Name,
		Quantity:     in.Quantity,
		CostPrice:    cost,
		SellingPrice: price,
		Category:     in.Category,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
