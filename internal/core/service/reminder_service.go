package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/bizdesk/internal/core/calc"
	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/store"
)

type ReminderInput struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	RecipientName  string    `json:"recipient_name"`
	RecipientPhone string    `json:"recipient_phone"`
	DueDate        time.Time `json:"due_date"`
}

func (in ReminderInput) validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return invalid("title", "is required")
	case strings.TrimSpace(in.RecipientName) == "":
		return invalid("recipient_name", "is required")
	case strings.TrimSpace(in.RecipientPhone) == "":
		return invalid("recipient_phone", "is required")
	case in.DueDate.IsZero():
		return invalid("due_date", "is required")
	}
	return nil
}

// ReminderView is a reminder with its status derived at read time.
type ReminderView struct {
	domain.Reminder
	Status domain.ReminderStatus `json:"status"`
}

type ReminderSummary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Overdue   int `json:"overdue"`
	DueToday  int `json:"due_today"`
	Completed int `json:"completed"`
}

type ReminderService struct {
	store *store.Store
	now   func() time.Time
}

func NewReminderService(st *store.Store) *ReminderService {
	return &ReminderService{store: st, now: time.Now}
}

func (s *ReminderService) Add(in ReminderInput) (domain.Reminder, error) {
	if err := in.validate(); err != nil {
		return domain.Reminder{}, err
	}
	r := domain.Reminder{
		ID:             calc.GenerateID(),
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		RecipientName:  strings.TrimSpace(in.RecipientName),
		RecipientPhone: strings.TrimSpace(in.RecipientPhone),
		DueDate:        in.DueDate,
		CreatedAt:      s.now(),
	}
	s.store.Dispatch(store.AddReminder{Reminder: r})
	return r, nil
}

// Update edits the fields of id. Completion is left alone; see ToggleComplete.
func (s *ReminderService) Update(id string, in ReminderInput) (domain.Reminder, error) {
	if err := in.validate(); err != nil {
		return domain.Reminder{}, err
	}
	return s.modify(id, func(r *domain.Reminder) {
		r.Title = strings.TrimSpace(in.Title)
		r.Description = strings.TrimSpace(in.Description)
		r.RecipientName = strings.TrimSpace(in.RecipientName)
		r.RecipientPhone = strings.TrimSpace(in.RecipientPhone)
		r.DueDate = in.DueDate
	})
}

func (s *ReminderService) ToggleComplete(id string) (domain.Reminder, error) {
	return s.modify(id, func(r *domain.Reminder) {
		r.IsCompleted = !r.IsCompleted
	})
}

func (s *ReminderService) modify(id string, fn func(*domain.Reminder)) (domain.Reminder, error) {
	var updated domain.Reminder
	err := s.store.Transact(func(cur store.State) ([]store.Action, error) {
		existing, ok := cur.Reminder(id)
		if !ok {
			return nil, fmt.Errorf("update %s: %w", id, ErrReminderNotFound)
		}
		updated = existing
		fn(&updated)
		return []store.Action{store.UpdateReminder{Reminder: updated}}, nil
	})
	return updated, err
}

func (s *ReminderService) Delete(id string) error {
	return s.store.Transact(func(cur store.State) ([]store.Action, error) {
		if _, ok := cur.Reminder(id); !ok {
			return nil, fmt.Errorf("delete %s: %w", id, ErrReminderNotFound)
		}
		return []store.Action{store.DeleteReminder{ID: id}}, nil
	})
}

func (s *ReminderService) List() []ReminderView {
	now := s.now()
	reminders := s.store.Snapshot().Reminders
	out := make([]ReminderView, 0, len(reminders))
	for _, r := range reminders {
		out = append(out, ReminderView{Reminder: r, Status: r.Status(now)})
	}
	return out
}

func (s *ReminderService) Summary() ReminderSummary {
	var sum ReminderSummary
	for _, v := range s.List() {
		sum.Total++
		switch v.Status {
		case domain.ReminderStatusCompleted:
			sum.Completed++
			continue
		case domain.ReminderStatusOverdue:
			sum.Overdue++
		case domain.ReminderStatusToday:
			sum.DueToday++
		}
		sum.Pending++
	}
	return sum
}
