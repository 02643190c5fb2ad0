// Package auth implements the entitlement gate: credential verification and
// active-subscription checks for every authenticated surface.
package auth

import (
	"errors"
	"fmt"
	"time"

	"xc-gate/work/logger"
	"xc-gate/work/metrics"
	"xc-gate/work/store"
)

// Rejection sentinels. Unknown username and wrong password intentionally
// collapse into the same ErrInvalidCredentials so the response carries no
// username-enumeration oracle. Suspended and no-subscription are distinct
// messages — matching the long-standing upstream behavior — even though that
// reveals account existence once the password is already correct.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrNoSubscription     = errors.New("no active subscription")
)

// AccountStore is the account/entitlement read surface the gate depends on.
type AccountStore interface {
	GetSubscriberByUsername(username string) (*store.SubscriberRow, error)
	GetActiveEntitlement(subscriberID string, now time.Time) (*store.EntitlementRow, error)
}

// Stamper records last-authenticated timestamps without blocking the caller.
type Stamper interface {
	StampLastAuth(subscriberID string)
}

// Gate validates subscriber credentials and entitlement state.
type Gate struct {
	accounts AccountStore
	stamper  Stamper // may be nil
	now      func() time.Time
}

// New creates an entitlement gate. stamper may be nil when last-auth
// stamping is not wanted (tests).
func New(accounts AccountStore, stamper Stamper) *Gate {
	return &Gate{
		accounts: accounts,
		stamper:  stamper,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewAt creates a gate with a fixed clock. Test hook.
func NewAt(accounts AccountStore, stamper Stamper, now func() time.Time) *Gate {
	return &Gate{accounts: accounts, stamper: stamper, now: now}
}

// Authenticate runs the full check sequence:
//
//  1. subscriber lookup by exact username
//  2. exact secret comparison
//  3. account status must be active
//  4. an active entitlement with ends_at >= now must exist (inclusive)
//  5. stamp last-auth, best effort
//
// On success both the subscriber and the entitlement are returned. On
// rejection one of the package sentinels is returned; any other error is a
// backend failure the router maps to its generic 500/auth:0 shape.
func (g *Gate) Authenticate(username, secret string) (*store.SubscriberRow, *store.EntitlementRow, error) {
	sub, err := g.accounts.GetSubscriberByUsername(username)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("backend_error").Inc()
		return nil, nil, fmt.Errorf("subscriber lookup: %w", err)
	}
	if sub == nil {
		metrics.AuthAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, nil, ErrInvalidCredentials
	}

	if sub.Password != secret {
		metrics.AuthAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, nil, ErrInvalidCredentials
	}

	if sub.Status != "active" {
		metrics.AuthAttempts.WithLabelValues("suspended").Inc()
		return nil, nil, ErrAccountSuspended
	}

	ent, err := g.accounts.GetActiveEntitlement(sub.ID, g.now())
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("backend_error").Inc()
		return nil, nil, fmt.Errorf("entitlement lookup: %w", err)
	}
	if ent == nil {
		metrics.AuthAttempts.WithLabelValues("no_subscription").Inc()
		return nil, nil, ErrNoSubscription
	}

	// Best effort; a failed stamp never fails the request.
	if g.stamper != nil {
		g.stamper.StampLastAuth(sub.ID)
	}

	metrics.AuthAttempts.WithLabelValues("ok").Inc()
	logger.Debug("{auth - Authenticate} %s authenticated, package %s", username, ent.PackageName)
	return sub, ent, nil
}

// IsRejection reports whether err is one of the gate's rejection sentinels
// as opposed to a backend failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrAccountSuspended) ||
		errors.Is(err, ErrNoSubscription)
}

// RejectionMessage maps a rejection sentinel to its client-facing message.
func RejectionMessage(err error) string {
	switch {
	case errors.Is(err, ErrAccountSuspended):
		return "Account suspended"
	case errors.Is(err, ErrNoSubscription):
		return "No active subscription"
	default:
		return "Invalid username or password"
	}
}
