package otp

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoActiveCode occurs when no live verification code exists for the identity.
	ErrNoActiveCode = errors.New("no active verification code")

	// ErrCodeExpired occurs when the active code is past its expiry window.
	ErrCodeExpired = errors.New("verification code expired")

	// ErrCodeInvalid occurs when the submitted code does not match the active one.
	ErrCodeInvalid = errors.New("verification code mismatch")

	// ErrAttemptsExceeded occurs once the attempt budget is spent. The code is
	// dead from then on, correct submissions included.
	ErrAttemptsExceeded = errors.New("verification attempts exceeded")

	// ErrDeliveryFailure occurs when the SMS dispatch fails. The code is still
	// persisted so the caller can offer a resend.
	ErrDeliveryFailure = errors.New("verification code delivery failed")
)

// Code is a short-lived verification artifact bound to one identity.
type Code struct {
	IdentityID string
	Value      string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Attempts   int
	Consumed   bool
}

// Store keeps at most one code per identity. Put replaces whatever code was
// active before, which is how issuing invalidates the prior code.
type Store interface {
	Put(ctx context.Context, code Code) error
	// Get returns ErrNoActiveCode when nothing is stored for the identity.
	Get(ctx context.Context, identityID string) (Code, error)
	Update(ctx context.Context, code Code) error
}
