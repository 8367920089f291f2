package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gatherly/gatherly/internal/auth"
	"github.com/gatherly/gatherly/internal/identity"
)

const identityContextKey = "identity_context"

// Authenticate validates the bearer token through the authorization guard and
// stores the resolved identity context for downstream handlers.
func Authenticate(guard *auth.Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])

		authCtx, err := guard.Authorize(c.UserContext(), tokenStr, "")
		if err != nil {
			// One message for every rejection: expired, forged and unknown
			// tokens are indistinguishable to the caller.
			return fiber.NewError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(identityContextKey, authCtx)
		return c.Next()
	}
}

// RequireRole rejects requests whose token role does not satisfy the
// requirement. Must run after Authenticate.
func RequireRole(required identity.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authCtx, ok := IdentityFromCtx(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		if !authCtx.Claims.Role.Satisfies(required) {
			return fiber.NewError(http.StatusForbidden, auth.ErrInsufficientRole.Error())
		}
		return c.Next()
	}
}

// IdentityFromCtx returns the identity context stored by Authenticate.
func IdentityFromCtx(c *fiber.Ctx) (auth.Context, bool) {
	authCtx, ok := c.Locals(identityContextKey).(auth.Context)
	return authCtx, ok
}
