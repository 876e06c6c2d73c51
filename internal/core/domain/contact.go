package domain

import "time"

type ContactType string

const (
	ContactTypeSupplier ContactType = "supplier"
	ContactTypeCustomer ContactType = "customer"
)

func (t ContactType) Valid() bool {
	return t == ContactTypeSupplier || t == ContactTypeCustomer
}

type Contact struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone"`
	Type      ContactType `json:"type"`
	Email     string      `json:"email,omitempty"`
	Address   string      `json:"address,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
