package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gatherly/gatherly/internal/auth"
)

// RegisterAuthRoutes wires registration, verification and login endpoints.
// The extra middlewares (audit log, IP throttle) apply to the whole group.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, middlewares ...fiber.Handler) {
	group := r.Group("/auth")
	for _, mw := range middlewares {
		if mw != nil {
			group.Use(mw)
		}
	}
	group.Post("/register", h.Register)
	group.Post("/verify", h.Verify)
	group.Post("/resend", h.Resend)
	group.Post("/login", h.Login)
}
