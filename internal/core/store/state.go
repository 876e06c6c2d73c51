package store

import "github.com/rl1809/bizdesk/internal/core/domain"

// State is the single aggregate root. Sequences keep insertion order.
type State struct {
	Inventory []domain.InventoryItem `json:"inventory"`
	Sales     []domain.Sale          `json:"sales"`
	Contacts  []domain.Contact       `json:"contacts"`
	Reminders []domain.Reminder      `json:"reminders"`
	UserTier  domain.Tier            `json:"user_tier"`
}

func NewState() State {
	return State{UserTier: domain.TierFree}
}

// Clone copies every sequence so the result shares no backing arrays with s.
func (s State) Clone() State {
	return State{
		Inventory: cloneSlice(s.Inventory),
		Sales:     cloneSlice(s.Sales),
		Contacts:  cloneSlice(s.Contacts),
		Reminders: cloneSlice(s.Reminders),
		UserTier:  s.UserTier,
	}
}

func (s State) Item(id string) (domain.InventoryItem, bool) {
	for _, it := range s.Inventory {
		if it.ID == id {
			return it, true
		}
	}
	return domain.InventoryItem{}, false
}

func (s State) Sale(id string) (domain.Sale, bool) {
	for _, sale := range s.Sales {
		if sale.ID == id {
			return sale, true
		}
	}
	return domain.Sale{}, false
}

func (s State) Contact(id string) (domain.Contact, bool) {
	for _, c := range s.Contacts {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Contact{}, false
}

func (s State) Reminder(id string) (domain.Reminder, bool) {
	for _, r := range s.Reminders {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Reminder{}, false
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// The helpers below never mutate their input; each returns a fresh slice.

func appendUnique[T any](in []T, v T, id func(T) string) []T {
	for _, existing := range in {
		if id(existing) == id(v) {
			return in
		}
	}
	out := make([]T, len(in), len(in)+1)
	copy(out, in)
	return append(out, v)
}

func replaceByID[T any](in []T, v T, id func(T) string) []T {
	out := make([]T, len(in))
	for i, existing := range in {
		if id(existing) == id(v) {
			out[i] = v
		} else {
			out[i] = existing
		}
	}
	return out
}

func removeByID[T any](in []T, target string, id func(T) string) []T {
	out := make([]T, 0, len(in))
	for _, existing := range in {
		if id(existing) != target {
			out = append(out, existing)
		}
	}
	return out
}

func itemID(v domain.InventoryItem) string { return v.ID }
func saleID(v domain.Sale) string          { return v.ID }
func contactID(v domain.Contact) string    { return v.ID }
func reminderID(v domain.Reminder) string  { return v.ID }
