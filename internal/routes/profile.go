package routes

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/gatherly/gatherly/internal/identity"
	"github.com/gatherly/gatherly/internal/middleware"
)

// RegisterProfileRoutes wires endpoints about the authenticated identity.
func RegisterProfileRoutes(r fiber.Router) {
	r.Get("/me", func(c *fiber.Ctx) error {
		authCtx, ok := middleware.IdentityFromCtx(c)
		if !ok {
			return c.SendStatus(http.StatusUnauthorized)
		}
		user := authCtx.User
		return c.JSON(fiber.Map{
			"user_id":    user.ID,
			"phone":      user.Phone,
			"role":       user.Role,
			"status":     user.Status,
			"created_at": user.CreatedAt,
		})
	})
}

// RegisterAdminRoutes wires admin-only identity management endpoints.
func RegisterAdminRoutes(r fiber.Router, repo identity.Repository) {
	admin := r.Group("/admin", middleware.RequireRole(identity.RoleAdmin))

	admin.Get("/identities", func(c *fiber.Ctx) error {
		offset, _ := strconv.Atoi(c.Query("offset", "0"))
		limit, _ := strconv.Atoi(c.Query("limit", "100"))
		if limit <= 0 || limit > 100 {
			limit = 100
		}
		if offset < 0 {
			offset = 0
		}

		users, err := repo.List(c.UserContext(), offset, limit)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, "listing failed")
		}

		out := make([]fiber.Map, 0, len(users))
		for _, user := range users {
			out = append(out, fiber.Map{
				"user_id":    user.ID,
				"phone":      user.Phone,
				"role":       user.Role,
				"status":     user.Status,
				"created_at": user.CreatedAt,
			})
		}
		return c.JSON(fiber.Map{"identities": out, "offset": offset, "limit": limit})
	})
}
