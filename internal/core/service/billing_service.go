package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/store"
	"github.com/rl1809/bizdesk/internal/obs"
	"github.com/rl1809/bizdesk/internal/port"
)

const upgradeLockKey = "payment:upgrade"

var proFeatures = []string{
	"Advanced Analytics & Charts",
	"Profit/Loss Analysis",
	"Monthly Trend Graphs",
	"Top 5 Products Analysis",
	"Smart Business Tips",
	"PDF Report Downloads",
	"Automated Reminders",
	"Priority Support",
}

type Plan struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Features []string        `json:"features"`
	Banks    []domain.Bank   `json:"banks"`
}

type BillingConfig struct {
	Price    decimal.Decimal
	Currency string
	LockTTL  time.Duration
}

type BillingService struct {
	store   *store.Store
	gateway port.PaymentGateway
	cache   port.CacheRepository
	metrics *obs.Metrics
	cfg     BillingConfig
}

func NewBillingService(st *store.Store, gateway port.PaymentGateway, cache port.CacheRepository, metrics *obs.Metrics, cfg BillingConfig) *BillingService {
	return &BillingService{
		store:   st,
		gateway: gateway,
		cache:   cache,
		metrics: metrics,
		cfg:     cfg,
	}
}

func (s *BillingService) Plan() Plan {
	return Plan{
		Name:     "Premium",
		Price:    s.cfg.Price,
		Currency: s.cfg.Currency,
		Features: append([]string(nil), proFeatures...),
		Banks:    domain.SupportedBanks(),
	}
}

func (s *BillingService) Tier() domain.Tier {
	return s.store.Tier()
}

// Upgrade charges the pro price and flips the tier on success. Input errors
// come back as *domain.PaymentValidationError without touching the gateway,
// declines as *domain.DeclineError. Only one upgrade may be in flight at a
// time, and a cancelled ctx never changes the tier.
func (s *BillingService) Upgrade(ctx context.Context, customerID string, details domain.PaymentDetails) (domain.PaymentReceipt, error) {
	method := string(details.Method)
	if s.store.Tier().IsPro() {
		return domain.PaymentReceipt{}, ErrAlreadyPro
	}
	if err := details.Validate(); err != nil {
		s.metrics.Payment(method, "invalid")
		return domain.PaymentReceipt{}, err
	}

	token := uuid.NewString()
	ok, err := s.cache.AcquireLock(ctx, upgradeLockKey, token, s.cfg.LockTTL)
	if err != nil {
		return domain.PaymentReceipt{}, fmt.Errorf("acquire payment lock: %w", err)
	}
	if !ok {
		return domain.PaymentReceipt{}, ErrPaymentInFlight
	}
	defer func() {
		if err := s.cache.ReleaseLock(context.WithoutCancel(ctx), upgradeLockKey, token); err != nil {
			obs.Logger.Warn("payment_lock_release_failed", "error", err)
		}
	}()
	// Another upgrade may have finished between the first check and the lock.
	if s.store.Tier().IsPro() {
		return domain.PaymentReceipt{}, ErrAlreadyPro
	}

	receipt, err := s.gateway.Charge(ctx, domain.Charge{
		Amount:      s.cfg.Price,
		Currency:    s.cfg.Currency,
		Description: "Premium Subscription",
		CustomerID:  customerID,
		Details:     details,
	})
	if err != nil {
		var decline *domain.DeclineError
		switch {
		case ctx.Err() != nil:
			s.metrics.Payment(method, "cancelled")
			obs.Logger.Info("payment_cancelled", "method", method)
			return domain.PaymentReceipt{}, ctx.Err()
		case errors.As(err, &decline):
			s.metrics.Payment(method, "declined")
			obs.Logger.Info("payment_declined", "method", method, "reason", decline.Reason)
		default:
			s.metrics.Payment(method, "error")
			obs.Logger.Error("payment_failed", "method", method, "error", err)
		}
		return domain.PaymentReceipt{}, err
	}

	s.store.Dispatch(store.UpgradeToPro{})
	s.metrics.Payment(method, "success")
	obs.Logger.Info("tier_upgraded",
		"payment_id", receipt.PaymentID,
		"order_id", receipt.OrderID,
		"method", method,
		"details", details.Masked(),
	)
	return receipt, nil
}

// Downgrade returns the account to the free tier. Nothing calls it except the
// administrative endpoint.
func (s *BillingService) Downgrade() {
	s.store.Dispatch(store.DowngradeToFree{})
	obs.Logger.Info("tier_downgraded")
}
