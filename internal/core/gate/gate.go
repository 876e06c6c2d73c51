// Package gate decides whether a named feature may run for the current tier.
package gate

import (
	"errors"
	"fmt"

	"github.com/rl1809/bizdesk/internal/core/domain"
)

type Feature string

const (
	PremiumAnalytics Feature = "Premium Analytics"
	AdvancedReports  Feature = "Advanced PDF Reports"
	ProfitAnalysis   Feature = "Profit Analysis"
	SmartTips        Feature = "Smart Business Tips"
)

var proOnly = map[Feature]bool{
	PremiumAnalytics: true,
	AdvancedReports:  true,
	ProfitAnalysis:   true,
	SmartTips:        true,
}

// ProOnly reports whether f needs the pro tier. Unknown features are free.
func (f Feature) ProOnly() bool {
	return proOnly[f]
}

// PaywallError is returned instead of running a pro-only feature on the free
// tier. Callers should offer the upgrade and not retry the feature.
type PaywallError struct {
	Feature Feature
}

func (e *PaywallError) Error() string {
	return fmt.Sprintf("paywall: %q requires the pro tier", string(e.Feature))
}

// AsPaywall unwraps err to a *PaywallError if it carries one.
func AsPaywall(err error) (*PaywallError, bool) {
	var pe *PaywallError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

type TierReader interface {
	Tier() domain.Tier
}

type Option func(*Gate)

// WithPaywallHook registers fn to be called on every paywall hit.
func WithPaywallHook(fn func(Feature)) Option {
	return func(g *Gate) { g.onPaywall = fn }
}

type Gate struct {
	tiers     TierReader
	onPaywall func(Feature)
}

func New(tiers TierReader, opts ...Option) *Gate {
	g := &Gate{tiers: tiers}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check returns nil when f may run now, or a *PaywallError.
func (g *Gate) Check(f Feature) error {
	if !f.ProOnly() || g.tiers.Tier().IsPro() {
		return nil
	}
	if g.onPaywall != nil {
		g.onPaywall(f)
	}
	return &PaywallError{Feature: f}
}

// Run executes fn only if f is available. On the free tier fn is never
// called and the zero value is returned with a *PaywallError.
func Run[T any](g *Gate, f Feature, fn func() (T, error)) (T, error) {
	if err := g.Check(f); err != nil {
		var zero T
		return zero, err
	}
	return fn()
}
