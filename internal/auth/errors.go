package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyRegistered indicates the phone number already has an identity.
	ErrAlreadyRegistered = errors.New("phone already registered")

	// ErrUnknownIdentity indicates no identity exists for the phone number.
	ErrUnknownIdentity = errors.New("unknown identity")

	// ErrInvalidCredentials indicates the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotVerified indicates the identity has not completed phone verification.
	ErrNotVerified = errors.New("phone not verified")

	// ErrWeakPassword indicates the password fails the minimum length policy.
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	// ErrInsufficientRole indicates the token's role does not satisfy the
	// requirement of the operation.
	ErrInsufficientRole = errors.New("insufficient role")

	// ErrRateLimited is the sentinel matched by errors.Is for RateLimitedError.
	ErrRateLimited = errors.New("too many attempts")
)

// RateLimitedError carries the retry-after hint alongside the throttle outcome.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

// Is makes errors.Is(err, ErrRateLimited) match.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
