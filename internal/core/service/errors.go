package service

import (
	"errors"

	"github.com/rl1809/bizdesk/internal/core/domain"
)

var (
	ErrDuplicateRequest   = errors.New("duplicate request")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrItemNotFound       = errors.New("item not found")
	ErrSaleNotFound       = errors.New("sale not found")
	ErrContactNotFound    = errors.New("contact not found")
	ErrReminderNotFound   = errors.New("reminder not found")
	ErrAlreadyPro         = errors.New("account is already on the pro tier")
	ErrPaymentInFlight    = errors.New("a payment is already in progress")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrCorruptSession     = errors.New("corrupt session record")
	ErrCorruptUsers       = errors.New("corrupt users record")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError rejects malformed input before any state changes.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a local rejection the user can fix by
// changing the input: bad fields, oversell, unknown item, duplicate email or
// malformed payment details.
func IsValidation(err error) bool {
	var ve *ValidationError
	var pe *domain.PaymentValidationError
	switch {
	case errors.As(err, &ve), errors.As(err, &pe):
		return true
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrEmailExists):
		return true
	}
	return false
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrSaleNotFound) ||
		errors.Is(err, ErrContactNotFound) ||
		errors.Is(err, ErrReminderNotFound)
}
