package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatherly/gatherly/internal/identity"
	"github.com/gatherly/gatherly/internal/otp"
	"github.com/gatherly/gatherly/internal/ratelimit"
	"github.com/gatherly/gatherly/internal/token"
)

const minPasswordLength = 8

// Session is the outcome of a successful login or phone verification.
type Session struct {
	Token     string `json:"access_token"`
	ExpiresIn int64  `json:"expires_in"`
}

// Service orchestrates registration, phone verification and login over the
// identity store, the OTP issuer and the token service.
type Service struct {
	repo          identity.Repository
	codes         *otp.Issuer
	tokens        *token.Service
	loginLimiter  ratelimit.Limiter
	resendLimiter ratelimit.Limiter
	logger        *slog.Logger
	now           func() time.Time

	// dummyHash keeps the unknown-phone path as slow as a real compare so
	// login timing does not reveal whether a number is registered.
	dummyHash []byte
}

// NewService wires the orchestrator.
func NewService(repo identity.Repository, codes *otp.Issuer, tokens *token.Service,
	loginLimiter, resendLimiter ratelimit.Limiter, logger *slog.Logger) *Service {
	dummy, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	return &Service{
		repo:          repo,
		codes:         codes,
		tokens:        tokens,
		loginLimiter:  loginLimiter,
		resendLimiter: resendLimiter,
		logger:        logger,
		now:           time.Now,
		dummyHash:     dummy,
	}
}

// Register creates a new unverified identity and issues its first
// verification code. When the code was stored but the SMS dispatch failed,
// the identity is still returned alongside otp.ErrDeliveryFailure so the
// caller can suggest a resend.
func (s *Service) Register(ctx context.Context, phone, password string) (identity.User, error) {
	normalized, err := identity.NormalizePhone(phone)
	if err != nil {
		return identity.User{}, err
	}
	if len(password) < minPasswordLength {
		return identity.User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return identity.User{}, err
	}

	user := identity.User{
		ID:           uuid.NewString(),
		Phone:        normalized,
		PasswordHash: hash,
		Role:         identity.RoleStandard,
		Status:       identity.StatusUnverified,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, identity.ErrDuplicatePhone) {
			return identity.User{}, ErrAlreadyRegistered
		}
		return identity.User{}, err
	}

	issueErr := s.codes.Issue(ctx, user.ID, user.Phone)
	user.PasswordHash = nil
	return user, issueErr
}

// VerifyPhone validates the submitted code, flips the identity to verified
// and mints a session token so the client does not need to log in again.
// OTP failures propagate unchanged.
func (s *Service) VerifyPhone(ctx context.Context, phone, code string) (Session, error) {
	normalized, err := identity.NormalizePhone(phone)
	if err != nil {
		return Session{}, ErrUnknownIdentity
	}
	user, err := s.repo.FindByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Session{}, ErrUnknownIdentity
		}
		return Session{}, err
	}

	if err := s.codes.Validate(ctx, user.ID, code); err != nil {
		return Session{}, err
	}

	if user.Status == identity.StatusUnverified {
		err := s.repo.UpdateStatus(ctx, user.ID, identity.StatusUnverified, identity.StatusVerified)
		if err != nil && !errors.Is(err, identity.ErrNotFound) {
			return Session{}, err
		}
		// ErrNotFound here means another request already flipped the status.
	}

	return s.mint(user.ID, user.Role)
}

// Login checks credentials and returns a session token. Attempts are counted
// per phone number; once the window is full the call fails with
// RateLimitedError before touching the store.
func (s *Service) Login(ctx context.Context, phone, password string) (Session, error) {
	normalized, err := identity.NormalizePhone(phone)
	if err != nil {
		normalized = phone
	}

	if err := s.throttle(ctx, s.loginLimiter, "login", normalized); err != nil {
		return Session{}, err
	}

	user, err := s.repo.FindByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			// Burn a hash compare so this path is not measurably faster.
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return Session{}, ErrUnknownIdentity
		}
		return Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if user.Status != identity.StatusVerified {
		return Session{}, ErrNotVerified
	}

	return s.mint(user.ID, user.Role)
}

// ResendCode issues a fresh verification code for an unverified identity,
// invalidating the previous one. Throttled per phone number.
func (s *Service) ResendCode(ctx context.Context, phone string) error {
	normalized, err := identity.NormalizePhone(phone)
	if err != nil {
		return ErrUnknownIdentity
	}

	if err := s.throttle(ctx, s.resendLimiter, "resend", normalized); err != nil {
		return err
	}

	user, err := s.repo.FindByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return ErrUnknownIdentity
		}
		return err
	}
	if user.Status == identity.StatusVerified {
		// Nothing to verify; do not send SMS to verified numbers.
		return nil
	}

	return s.codes.Issue(ctx, user.ID, user.Phone)
}

func (s *Service) mint(identityID string, role identity.Role) (Session, error) {
	tok, err := s.tokens.Mint(identityID, role)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: tok, ExpiresIn: int64(s.tokens.TTL().Seconds())}, nil
}

// throttle consults the limiter and fails closed on threshold, open on
// limiter infrastructure errors.
func (s *Service) throttle(ctx context.Context, limiter ratelimit.Limiter, op, key string) error {
	if limiter == nil {
		return nil
	}
	res, err := limiter.Allow(ctx, key)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("rate limiter unavailable", "op", op, "error", err)
		}
		return nil
	}
	if !res.Allowed {
		return &RateLimitedError{RetryAfter: res.RetryAfter}
	}
	return nil
}
