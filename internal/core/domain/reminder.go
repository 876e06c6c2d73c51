package domain

import "time"

type ReminderStatus string

const (
	ReminderStatusCompleted ReminderStatus = "completed"
	ReminderStatusOverdue   ReminderStatus = "overdue"
	ReminderStatusToday     ReminderStatus = "today"
	ReminderStatusUpcoming  ReminderStatus = "upcoming"
)

type Reminder struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	RecipientName  string    `json:"recipient_name"`
	RecipientPhone string    `json:"recipient_phone"`
	DueDate        time.Time `json:"due_date"`
	IsCompleted    bool      `json:"is_completed"`
	CreatedAt      time.Time `json:"created_at"`
}

// Status is derived, never stored. Overdue wins over today when the due
// time has already passed.
func (r Reminder) Status(now time.Time) ReminderStatus {
	switch {
	case r.IsCompleted:
		return ReminderStatusCompleted
	case r.DueDate.Before(now):
		return ReminderStatusOverdue
	case SameDay(r.DueDate, now):
		return ReminderStatusToday
	default:
		return ReminderStatusUpcoming
	}
}

// SameDay compares calendar days in b's location.
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
