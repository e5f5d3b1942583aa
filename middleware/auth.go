package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts the player identity headers set by the
// gateway and attaches them to the request context. Secured paths
// (under /s/) reject requests without an identity.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		username := c.Get("X-User-Name")
		rolesStr := c.Get("X-User-Roles")

		if strings.HasPrefix(c.Path(), "/s/") && userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(rolesStr, ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals("user_id", userID)
		c.Locals("username", username)
		c.Locals("user_roles", roles)
		return c.Next()
	}
}

// IsAdmin reports whether the request carries the admin role.
func IsAdmin(c *fiber.Ctx) bool {
	roles, _ := c.Locals("user_roles").([]string)
	for _, r := range roles {
		if r == "admin" {
			return true
		}
	}
	return false
}
