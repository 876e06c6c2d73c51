// Package payment holds the PaymentGateway implementations.
package payment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/port"
)

var _ port.PaymentGateway = (*Sandbox)(nil)

const DefaultSuccessRate = 0.95

var defaultDelays = map[domain.PaymentMethod]time.Duration{
	domain.PaymentMethodCard:       2 * time.Second,
	domain.PaymentMethodUPI:        1500 * time.Millisecond,
	domain.PaymentMethodNetBanking: 2500 * time.Millisecond,
}

var declineReasons = map[domain.PaymentMethod][]string{
	domain.PaymentMethodCard: {
		"Payment declined by test bank",
		"Insufficient test funds",
		"Test card expired",
		"Test network timeout",
		"Invalid test card details",
		"Test transaction limit exceeded",
	},
	domain.PaymentMethodUPI: {
		"Test UPI ID not found",
		"Test transaction declined",
		"Test daily limit exceeded",
		"Test UPI service unavailable",
		"Invalid test UPI PIN",
	},
	domain.PaymentMethodNetBanking: {
		"Test bank service unavailable",
		"Invalid test credentials",
		"Test transaction timeout",
		"Test daily limit exceeded",
		"Test account temporarily blocked",
	},
}

// Test cards that always decline, regardless of the success rate.
var failureCards = map[string]string{
	"4000000000000002": "Payment declined by test bank",
	"4000000000000069": "Test card expired",
}

var idPrefixes = map[domain.PaymentMethod][2]string{
	domain.PaymentMethodCard:       {"pay_test_", "order_test_"},
	domain.PaymentMethodUPI:        {"upi_test_", "order_upi_test_"},
	domain.PaymentMethodNetBanking: {"nb_test_", "order_nb_test_"},
}

const suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

type Option func(*Sandbox)

func WithSuccessRate(p float64) Option {
	return func(s *Sandbox) { s.successRate = p }
}

// WithDelay overrides the simulated latency of one method.
func WithDelay(method domain.PaymentMethod, d time.Duration) Option {
	return func(s *Sandbox) { s.delays[method] = d }
}

// WithRand replaces the random source, mostly for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Sandbox) { s.rng = r }
}

// Sandbox simulates a processor: a fixed per-method latency followed by a
// random outcome. No money moves and nothing leaves the process.
type Sandbox struct {
	successRate float64
	delays      map[domain.PaymentMethod]time.Duration
	now         func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSandbox(opts ...Option) *Sandbox {
	s := &Sandbox{
		successRate: DefaultSuccessRate,
		delays:      make(map[domain.PaymentMethod]time.Duration, len(defaultDelays)),
		now:         time.Now,
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for m, d := range defaultDelays {
		s.delays[m] = d
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Charge rejects malformed details at once. Otherwise it waits the method's
// latency, or until ctx is done, and then succeeds or declines.
func (s *Sandbox) Charge(ctx context.Context, charge domain.Charge) (domain.PaymentReceipt, error) {
	details := charge.Details
	if err := details.Validate(); err != nil {
		return domain.PaymentReceipt{}, err
	}

	timer := time.NewTimer(s.delays[details.Method])
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return domain.PaymentReceipt{}, ctx.Err()
	case <-timer.C:
	}

	if details.Method == domain.PaymentMethodCard {
		if reason, ok := failureCards[strings.ReplaceAll(details.CardNumber, " ", "")]; ok {
			return domain.PaymentReceipt{}, &domain.DeclineError{Method: details.Method, Reason: reason}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() >= s.successRate {
		reasons := declineReasons[details.Method]
		return domain.PaymentReceipt{}, &domain.DeclineError{
			Method: details.Method,
			Reason: reasons[s.rng.IntN(len(reasons))],
		}
	}

	ms := s.now().UnixMilli()
	prefix := idPrefixes[details.Method]
	return domain.PaymentReceipt{
		PaymentID: fmt.Sprintf("%s%d_%s", prefix[0], ms, s.suffixLocked(9)),
		OrderID:   fmt.Sprintf("%s%d", prefix[1], ms),
		Method:    details.Method,
		Amount:    charge.Amount,
		Currency:  charge.Currency,
	}, nil
}

func (s *Sandbox) suffixLocked(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[s.rng.IntN(len(suffixAlphabet))]
	}
	return string(b)
}
