package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/gatherly/gatherly/internal/sms"
)

// Config carries the issuance knobs.
type Config struct {
	CodeLength  int
	TTL         time.Duration
	MaxAttempts int
	SMSTimeout  time.Duration
}

// Issuer generates, stores and validates one-time verification codes.
// Issue and Validate serialize per identity so the attempt counter and the
// single-active-code invariant hold under concurrent requests.
type Issuer struct {
	store  Store
	sender sms.Sender
	logger *slog.Logger
	cfg    Config
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewIssuer builds an issuer over the provided store and SMS port.
func NewIssuer(store Store, sender sms.Sender, cfg Config, logger *slog.Logger) *Issuer {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 6
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.SMSTimeout <= 0 {
		cfg.SMSTimeout = 5 * time.Second
	}
	return &Issuer{
		store:  store,
		sender: sender,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the internal clock, used in tests.
func (i *Issuer) WithClock(clock func() time.Time) {
	if clock != nil {
		i.now = clock
	}
}

// Issue creates a fresh code for the identity, replacing any prior active
// code, then dispatches it over SMS. The per-identity lock covers only the
// store write; the SMS call runs outside it with its own timeout, and a
// dispatch failure surfaces as ErrDeliveryFailure while the code stays
// persisted.
func (i *Issuer) Issue(ctx context.Context, identityID, phone string) error {
	value, err := randomCode(i.cfg.CodeLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	now := i.now().UTC()
	code := Code{
		IdentityID: identityID,
		Value:      value,
		IssuedAt:   now,
		ExpiresAt:  now.Add(i.cfg.TTL),
	}

	lock := i.lockFor(identityID)
	lock.Lock()
	err = i.store.Put(ctx, code)
	lock.Unlock()
	if err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, i.cfg.SMSTimeout)
	defer cancel()
	body := fmt.Sprintf("Your Gatherly verification code is %s. It expires in %d minutes.",
		value, int(i.cfg.TTL.Minutes()))
	if err := i.sender.Send(sendCtx, phone, body); err != nil {
		if i.logger != nil {
			i.logger.Warn("sms dispatch failed", "identity_id", identityID, "error", err)
		}
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}
	return nil
}

// Validate checks a submitted code against the active one. It consumes the
// code on the first exact match and burns one attempt on every mismatch.
func (i *Issuer) Validate(ctx context.Context, identityID, submitted string) error {
	lock := i.lockFor(identityID)
	lock.Lock()
	defer lock.Unlock()

	code, err := i.store.Get(ctx, identityID)
	if err != nil {
		return err
	}
	if code.Consumed {
		return ErrNoActiveCode
	}
	if i.now().UTC().After(code.ExpiresAt) {
		return ErrCodeExpired
	}
	if code.Attempts >= i.cfg.MaxAttempts {
		return ErrAttemptsExceeded
	}

	if subtle.ConstantTimeCompare([]byte(code.Value), []byte(submitted)) != 1 {
		code.Attempts++
		if err := i.store.Update(ctx, code); err != nil {
			return fmt.Errorf("record attempt: %w", err)
		}
		if code.Attempts >= i.cfg.MaxAttempts {
			return ErrAttemptsExceeded
		}
		return ErrCodeInvalid
	}

	code.Consumed = true
	if err := i.store.Update(ctx, code); err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	return nil
}

func (i *Issuer) lockFor(identityID string) *sync.Mutex {
	i.mu.Lock()
	defer i.mu.Unlock()
	lock, ok := i.locks[identityID]
	if !ok {
		lock = &sync.Mutex{}
		i.locks[identityID] = lock
	}
	return lock
}

func randomCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
