package store

import "github.com/rl1809/bizdesk/internal/core/domain"

// Action is the closed set of state transitions. The unexported apply
// method keeps implementations inside this package.
type Action interface {
	Type() string
	apply(State) State
}

const (
	TypeAddInventoryItem         = "ADD_INVENTORY_ITEM"
	TypeUpdateInventoryItem      = "UPDATE_INVENTORY_ITEM"
	TypeDeleteInventoryItem      = "DELETE_INVENTORY_ITEM"
	TypeAddSale                  = "ADD_SALE"
	TypeUpdateInventoryAfterSale = "UPDATE_INVENTORY_AFTER_SALE"
	TypeAddContact               = "ADD_CONTACT"
	TypeUpdateContact            = "UPDATE_CONTACT"
	TypeDeleteContact            = "DELETE_CONTACT"
	TypeAddReminder              = "ADD_REMINDER"
	TypeUpdateReminder           = "UPDATE_REMINDER"
	TypeDeleteReminder           = "DELETE_REMINDER"
	TypeUpgradeToPro             = "UPGRADE_TO_PRO"
	TypeDowngradeToFree          = "DOWNGRADE_TO_FREE"
)

type AddInventoryItem struct{ Item domain.InventoryItem }

func (AddInventoryItem) Type() string { return TypeAddInventoryItem }
func (a AddInventoryItem) apply(s State) State {
	s.Inventory = appendUnique(s.Inventory, a.Item, itemID)
	return s
}

type UpdateInventoryItem struct{ Item domain.InventoryItem }

func (UpdateInventoryItem) Type() string { return TypeUpdateInventoryItem }
func (a UpdateInventoryItem) apply(s State) State {
	s.Inventory = replaceByID(s.Inventory, a.Item, itemID)
	return s
}

type DeleteInventoryItem struct{ ID string }

func (DeleteInventoryItem) Type() string { return TypeDeleteInventoryItem }
func (a DeleteInventoryItem) apply(s State) State {
	s.Inventory = removeByID(s.Inventory, a.ID, itemID)
	return s
}

type AddSale struct{ Sale domain.Sale }

func (AddSale) Type() string { return TypeAddSale }
func (a AddSale) apply(s State) State {
	s.Sales = appendUnique(s.Sales, a.Sale, saleID)
	return s
}

// UpdateInventoryAfterSale subtracts QuantitySold without checking stock.
// Callers that need the no-oversell guarantee go through Store.Transact.
type UpdateInventoryAfterSale struct {
	ItemID       string
	QuantitySold int
}

func (UpdateInventoryAfterSale) Type() string { return TypeUpdateInventoryAfterSale }
func (a UpdateInventoryAfterSale) apply(s State) State {
	out := make([]domain.InventoryItem, len(s.Inventory))
	for i, it := range s.Inventory {
		if it.ID == a.ItemID {
			it.Quantity -= a.QuantitySold
		}
		out[i] = it
	}
	s.Inventory = out
	return s
}

type AddContact struct{ Contact domain.Contact }

func (AddContact) Type() string { return TypeAddContact }
func (a AddContact) apply(s State) State {
	s.Contacts = appendUnique(s.Contacts, a.Contact, contactID)
	return s
}

type UpdateContact struct{ Contact domain.Contact }

func (UpdateContact) Type() string { return TypeUpdateContact }
func (a UpdateContact) apply(s State) State {
	s.Contacts = replaceByID(s.Contacts, a.Contact, contactID)
	return s
}

type DeleteContact struct{ ID string }

func (DeleteContact) Type() string { return TypeDeleteContact }
func (a DeleteContact) apply(s State) State {
	s.Contacts = removeByID(s.Contacts, a.ID, contactID)
	return s
}

type AddReminder struct{ Reminder domain.Reminder }

func (AddReminder) Type() string { return TypeAddReminder }
func (a AddReminder) apply(s State) State {
	s.Reminders = appendUnique(s.Reminders, a.Reminder, reminderID)
	return s
}

type UpdateReminder struct{ Reminder domain.Reminder }

func (UpdateReminder) Type() string { return TypeUpdateReminder }
func (a UpdateReminder) apply(s State) State {
	s.Reminders = replaceByID(s.Reminders, a.Reminder, reminderID)
	return s
}

type DeleteReminder struct{ ID string }

func (DeleteReminder) Type() string { return TypeDeleteReminder }
func (a DeleteReminder) apply(s State) State {
	s.Reminders = removeByID(s.Reminders, a.ID, reminderID)
	return s
}

type UpgradeToPro struct{}

func (UpgradeToPro) Type() string { return TypeUpgradeToPro }
func (UpgradeToPro) apply(s State) State {
	s.UserTier = domain.TierPro
	return s
}

type DowngradeToFree struct{}

func (DowngradeToFree) Type() string { return TypeDowngradeToFree }
func (DowngradeToFree) apply(s State) State {
	s.UserTier = domain.TierFree
	return s
}
