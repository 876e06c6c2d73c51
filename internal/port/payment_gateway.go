package port

import (
	"context"

	"github.com/rl1809/bizdesk/internal/core/domain"
)

type PaymentGateway interface {
	// Charge blocks until the processor answers or ctx is done. A declined
	// charge is an error, never a zero receipt.
	Charge(ctx context.Context, charge domain.Charge) (domain.PaymentReceipt, error)
}
