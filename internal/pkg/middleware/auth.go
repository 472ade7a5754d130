package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MarcoHauser/LancerDesk/internal/pkg/usercontext"
)

// RequireAdmin ensures the authenticated user is an admin and returns JSON 403 otherwise.
func RequireAdmin(c *fiber.Ctx) error {
	if isAdmin, ok := c.Locals(usercontext.KeyIsAdmin).(bool); !ok || !isAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "admin access required",
		})
	}
	return c.Next()
}
