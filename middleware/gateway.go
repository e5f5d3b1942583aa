package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GatewayAuthMiddleware validates the shared Bearer token the gateway
// attaches to every forwarded request.
func GatewayAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("MATCH_SERVICE_TOKEN")
	if expectedToken == "" {
		log.Fatal("❌ MATCH_SERVICE_TOKEN is not set — service cannot authenticate the gateway")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != expectedToken {
			log.Printf("🚫 [GATEWAY_AUTH] invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}
		return c.Next()
	}
}
