package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/bizdesk/internal/core/calc"
	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/store"
)

type ContactInput struct {
	Name    string             `json:"name"`
	Phone   string             `json:"phone"`
	Type    domain.ContactType `json:"type"`
	Email   string             `json:"email"`
	Address string             `json:"address"`
}

func (in ContactInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return invalid("name", "is required")
	case strings.TrimSpace(in.Phone) == "":
		return invalid("phone", "is required")
	case !in.Type.Valid():
		return invalid("type", "must be supplier or customer")
	}
	return nil
}

type ContactService struct {
	store *store.Store
	now   func() time.Time
}

func NewContactService(st *store.Store) *ContactService {
	return &ContactService{store: st, now: time.Now}
}

func (s *ContactService) Add(in ContactInput) (domain.Contact, error) {
	if err := in.validate(); err != nil {
		return domain.Contact{}, err
	}
	c := domain.Contact{
		ID:        calc.GenerateID(),
		Name:      strings.TrimSpace(in.Name),
		Phone:     strings.TrimSpace(in.Phone),
		Type:      in.Type,
		Email:     strings.TrimSpace(in.Email),
		Address:   strings.TrimSpace(in.Address),
		CreatedAt: s.now(),
	}
	s.store.Dispatch(store.AddContact{Contact: c})
	return c, nil
}

func (s *ContactService) Update(id string, in ContactInput) (domain.Contact, error) {
	if err := in.validate(); err != nil {
		return domain.Contact{}, err
	}
	var updated domain.Contact
	err := s.store.Transact(func(cur store.State) ([]store.Action, error) {
		existing, ok := cur.Contact(id)
		if !ok {
			return nil, fmt.Errorf("update %s: %w", id, ErrContactNotFound)
		}
		updated = domain.Contact{
			ID:        existing.ID,
			Name:      strings.TrimSpace(in.Name),
			Phone:     strings.TrimSpace(in.Phone),
			Type:      in.Type,
			Email:     strings.TrimSpace(in.Email),
			Address:   strings.TrimSpace(in.Address),
			CreatedAt: existing.CreatedAt,
		}
		return []store.Action{store.UpdateContact{Contact: updated}}, nil
	})
	return updated, err
}

func (s *ContactService) Delete(id string) error {
	return s.store.Transact(func(cur store.State) ([]store.Action, error) {
		if _, ok := cur.Contact(id); !ok {
			return nil, fmt.Errorf("delete %s: %w", id, ErrContactNotFound)
		}
		return []store.Action{store.DeleteContact{ID: id}}, nil
	})
}

// List returns contacts of type t, or every contact when t is empty.
func (s *ContactService) List(t domain.ContactType) []domain.Contact {
	all := s.store.Snapshot().Contacts
	if t == "" {
		return all
	}
	var out []domain.Contact
	for _, c := range all {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}
