package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/gatherly/gatherly/internal/ratelimit"
)

// ThrottlePerIP limits requests per client IP using the provided limiter.
// It complements the per-phone throttling inside the auth service and
// fails open when the limiter backend is unavailable.
func ThrottlePerIP(limiter ratelimit.Limiter, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}
		res, err := limiter.Allow(c.UserContext(), c.IP())
		if err != nil {
			if logger != nil {
				logger.Warn("ip throttle unavailable", "error", err)
			}
			return c.Next()
		}
		if !res.Allowed {
			seconds := int(res.RetryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
