package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodNetBanking PaymentMethod = "netbanking"
)

// PaymentDetails carries whatever the chosen method needs. Fields that do
// not belong to Method are ignored.
type PaymentDetails struct {
	Method         PaymentMethod `json:"method"`
	CardNumber     string        `json:"card_number,omitempty"`
	ExpiryDate     string        `json:"expiry_date,omitempty"`
	CVV            string        `json:"cvv,omitempty"`
	CardholderName string        `json:"cardholder_name,omitempty"`
	UPIID          string        `json:"upi_id,omitempty"`
	BankCode       string        `json:"bank_code,omitempty"`
}

type Bank struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var supportedBanks = []Bank{
	{Code: "sbi", Name: "State Bank of India"},
	{Code: "hdfc", Name: "HDFC Bank"},
	{Code: "icici", Name: "ICICI Bank"},
	{Code: "axis", Name: "Axis Bank"},
	{Code: "kotak", Name: "Kotak Mahindra Bank"},
	{Code: "pnb", Name: "Punjab National Bank"},
	{Code: "bob", Name: "Bank of Baroda"},
	{Code: "canara", Name: "Canara Bank"},
	{Code: "union", Name: "Union Bank of India"},
	{Code: "indian", Name: "Indian Bank"},
	{Code: "yes", Name: "Yes Bank"},
	{Code: "idbi", Name: "IDBI Bank"},
}

func SupportedBanks() []Bank {
	out := make([]Bank, len(supportedBanks))
	copy(out, supportedBanks)
	return out
}

func IsSupportedBank(code string) bool {
	for _, b := range supportedBanks {
		if b.Code == code {
			return true
		}
	}
	return false
}

// PaymentValidationError is a local rejection of malformed payment input.
// Message is shown to the user verbatim.
type PaymentValidationError struct {
	Method  PaymentMethod
	Message string
}

func (e *PaymentValidationError) Error() string {
	return e.Message
}

// Validate checks the input shape for Method. It never contacts a gateway.
func (d PaymentDetails) Validate() error {
	invalid := func(msg string) error {
		return &PaymentValidationError{Method: d.Method, Message: msg}
	}

	switch d.Method {
	case PaymentMethodCard:
		if len(strings.ReplaceAll(d.CardNumber, " ", "")) < 16 {
			return invalid("Please enter a valid card number")
		}
		if len(d.ExpiryDate) < 5 {
			return invalid("Please enter a valid expiry date")
		}
		if len(d.CVV) < 3 {
			return invalid("Please enter a valid CVV")
		}
		if len(strings.TrimSpace(d.CardholderName)) < 2 {
			return invalid("Please enter cardholder name")
		}
	case PaymentMethodUPI:
		if len(strings.TrimSpace(d.UPIID)) < 3 {
			return invalid("Please enter a valid UPI ID")
		}
	case PaymentMethodNetBanking:
		if !IsSupportedBank(d.BankCode) {
			return invalid("Please select a bank")
		}
	default:
		return invalid("Invalid payment method")
	}
	return nil
}

// Masked returns the details with card secrets removed, safe for logs.
func (d PaymentDetails) Masked() PaymentDetails {
	m := d
	if n := strings.ReplaceAll(d.CardNumber, " ", ""); len(n) >= 4 {
		m.CardNumber = n[:4] + "..."
	}
	m.CVV = ""
	return m
}

type Charge struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	CustomerID  string
	Details     PaymentDetails
}

type PaymentReceipt struct {
	PaymentID string          `json:"payment_id"`
	OrderID   string          `json:"order_id"`
	Method    PaymentMethod   `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// DeclineError is a processor-side refusal of a well-formed charge. Reason
// is shown to the user verbatim and the charge may be retried.
type DeclineError struct {
	Method PaymentMethod
	Reason string
}

func (e *DeclineError) Error() string {
	return "payment declined: " + e.Reason
}
