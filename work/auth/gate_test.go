package auth

import (
	"errors"
	"testing"
	"time"

	"xc-gate/work/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- stub account store ------------------------------------------------

type stubAccounts struct {
	subscribers  map[string]*store.SubscriberRow
	entitlements map[string]*store.EntitlementRow
	failWith     error
}

func (s *stubAccounts) GetSubscriberByUsername(username string) (*store.SubscriberRow, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.subscribers[username], nil
}

func (s *stubAccounts) GetActiveEntitlement(subscriberID string, now time.Time) (*store.EntitlementRow, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	ent := s.entitlements[subscriberID]
	if ent == nil || ent.EndsAt.Before(now) {
		return nil, nil
	}
	return ent, nil
}

type stubStamper struct {
	stamped []string
}

func (s *stubStamper) StampLastAuth(subscriberID string) {
	s.stamped = append(s.stamped, subscriberID)
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func activeAccounts() *stubAccounts {
	return &stubAccounts{
		subscribers: map[string]*store.SubscriberRow{
			"alice": {ID: "sub-1", Username: "alice", Password: "s3cret", Status: "active", MaxConnections: 2},
			"mallory": {
				ID: "sub-2", Username: "mallory", Password: "pw", Status: "banned",
			},
		},
		entitlements: map[string]*store.EntitlementRow{
			"sub-1": {
				ID: "ent-1", SubscriberID: "sub-1", Status: "active",
				EndsAt:      fixedNow().Add(30 * 24 * time.Hour),
				PackageName: "Gold", MaxConnections: 3,
				OutputFormats: []string{"m3u8", "ts"},
			},
		},
	}
}

// ---------- tests ---------------------------------------------------------------

func TestAuthenticateSuccess(t *testing.T) {
	stamper := &stubStamper{}
	gate := NewAt(activeAccounts(), stamper, fixedNow)

	sub, ent, err := gate.Authenticate("alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub.ID)
	assert.Equal(t, "Gold", ent.PackageName)
	assert.Equal(t, []string{"sub-1"}, stamper.stamped)
}

// Unknown username and wrong password must be indistinguishable.
func TestAuthenticateUniformRejection(t *testing.T) {
	gate := NewAt(activeAccounts(), nil, fixedNow)

	_, _, errUnknown := gate.Authenticate("nobody", "whatever")
	_, _, errWrongPw := gate.Authenticate("alice", "wrong")

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
	assert.Equal(t, RejectionMessage(errUnknown), RejectionMessage(errWrongPw))
}

func TestAuthenticateCaseSensitiveUsername(t *testing.T) {
	gate := NewAt(activeAccounts(), nil, fixedNow)

	_, _, err := gate.Authenticate("Alice", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateSuspended(t *testing.T) {
	gate := NewAt(activeAccounts(), nil, fixedNow)

	_, _, err := gate.Authenticate("mallory", "pw")
	assert.ErrorIs(t, err, ErrAccountSuspended)
	assert.Equal(t, "Account suspended", RejectionMessage(err))
}

func TestAuthenticateNoSubscription(t *testing.T) {
	accounts := activeAccounts()
	delete(accounts.entitlements, "sub-1")
	gate := NewAt(accounts, nil, fixedNow)

	_, _, err := gate.Authenticate("alice", "s3cret")
	assert.ErrorIs(t, err, ErrNoSubscription)
}

// An entitlement ending exactly now still authorizes; one second past, not.
func TestAuthenticateExpiryBoundary(t *testing.T) {
	accounts := activeAccounts()
	accounts.entitlements["sub-1"].EndsAt = fixedNow()
	gate := NewAt(accounts, nil, fixedNow)

	_, ent, err := gate.Authenticate("alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, fixedNow(), ent.EndsAt)

	accounts.entitlements["sub-1"].EndsAt = fixedNow().Add(-time.Second)
	_, _, err = gate.Authenticate("alice", "s3cret")
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestAuthenticateBackendFailure(t *testing.T) {
	accounts := activeAccounts()
	accounts.failWith = errors.New("store unreachable")
	gate := NewAt(accounts, nil, fixedNow)

	_, _, err := gate.Authenticate("alice", "s3cret")
	require.Error(t, err)
	assert.False(t, IsRejection(err))
}

func TestIsRejection(t *testing.T) {
	assert.True(t, IsRejection(ErrInvalidCredentials))
	assert.True(t, IsRejection(ErrAccountSuspended))
	assert.True(t, IsRejection(ErrNoSubscription))
	assert.False(t, IsRejection(errors.New("boom")))
	assert.False(t, IsRejection(nil))
}
