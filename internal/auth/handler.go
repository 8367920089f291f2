package auth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/gatherly/gatherly/internal/identity"
	"github.com/gatherly/gatherly/internal/otp"
)

// Credential and verification failures all map to the same client-facing
// messages so responses do not reveal whether a phone number is registered.
const (
	msgBadCredentials = "invalid phone number or password"
	msgBadCode        = "invalid or expired verification code"
	msgCodeRequested  = "if the number is registered, a verification code has been sent"
)

// Handler exposes the authentication flows over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler builds the auth handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type registerRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Register creates an account and triggers the first verification SMS.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.svc.Register(c.UserContext(), req.Phone, req.Password)
	switch {
	case err == nil:
		return registered(c, user, true)
	case errors.Is(err, otp.ErrDeliveryFailure):
		// The account exists; the client should ask for a resend.
		return registered(c, user, false)
	case errors.Is(err, identity.ErrInvalidPhone), errors.Is(err, ErrWeakPassword):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAlreadyRegistered):
		return fiber.NewError(http.StatusConflict, ErrAlreadyRegistered.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "registration failed")
	}
}

func registered(c *fiber.Ctx, user identity.User, codeSent bool) error {
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user_id":   user.ID,
		"phone":     user.Phone,
		"status":    user.Status,
		"code_sent": codeSent,
	})
}

type verifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// Verify validates the submitted code and returns a session token.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	session, err := h.svc.VerifyPhone(c.UserContext(), req.Phone, req.Code)
	switch {
	case err == nil:
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"access_token": session.Token,
			"token_type":   "bearer",
			"expires_in":   session.ExpiresIn,
		})
	case errors.Is(err, ErrUnknownIdentity),
		errors.Is(err, otp.ErrNoActiveCode),
		errors.Is(err, otp.ErrCodeExpired),
		errors.Is(err, otp.ErrCodeInvalid),
		errors.Is(err, otp.ErrAttemptsExceeded):
		return fiber.NewError(http.StatusBadRequest, msgBadCode)
	default:
		return fiber.NewError(http.StatusInternalServerError, "verification failed")
	}
}

type resendRequest struct {
	Phone string `json:"phone"`
}

// Resend issues a fresh verification code, replacing the previous one.
func (h *Handler) Resend(c *fiber.Ctx) error {
	var req resendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	err := h.svc.ResendCode(c.UserContext(), req.Phone)
	var limited *RateLimitedError
	switch {
	case err == nil, errors.Is(err, ErrUnknownIdentity):
		// Same response either way, so the endpoint cannot be used to probe
		// which numbers are registered.
		return c.Status(http.StatusOK).JSON(fiber.Map{"message": msgCodeRequested})
	case errors.As(err, &limited):
		return tooManyRequests(c, limited)
	case errors.Is(err, otp.ErrDeliveryFailure):
		return fiber.NewError(http.StatusBadGateway, "could not send verification code, please retry")
	default:
		return fiber.NewError(http.StatusInternalServerError, "resend failed")
	}
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login checks credentials and returns a session token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	session, err := h.svc.Login(c.UserContext(), req.Phone, req.Password)
	var limited *RateLimitedError
	switch {
	case err == nil:
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"access_token": session.Token,
			"token_type":   "bearer",
			"expires_in":   session.ExpiresIn,
		})
	case errors.As(err, &limited):
		return tooManyRequests(c, limited)
	case errors.Is(err, ErrUnknownIdentity), errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(http.StatusUnauthorized, msgBadCredentials)
	case errors.Is(err, ErrNotVerified):
		return fiber.NewError(http.StatusForbidden, "phone number not verified")
	default:
		return fiber.NewError(http.StatusInternalServerError, "login failed")
	}
}

func tooManyRequests(c *fiber.Ctx, limited *RateLimitedError) error {
	seconds := int(limited.RetryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
	return fiber.NewError(http.StatusTooManyRequests, "too many attempts, try again later")
}
