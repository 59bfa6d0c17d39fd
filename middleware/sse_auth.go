// middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"merchant-onboarding-system/services"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware validates `token` and `device_id` from query params via
// the platform auth service. The browser EventSource API cannot set
// headers, so the SSE route cannot rely on the gateway-injected user
// context the way other secured routes do.
//
// Usage:
//
//	app.Get("/s/me/rewards/stream", middleware.SSEAuthMiddleware(authClient), rewardService.StreamMyRewardsSSE)
func SSEAuthMiddleware(authClient *services.AuthServiceClient) func(*fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		deviceID := strings.TrimSpace(c.Query("device_id"))

		if accessToken == "" || deviceID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or device_id in query",
			})
		}

		resp, err := authClient.ValidateToken(accessToken, deviceID)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed for device %s: %v", deviceID, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		// Same context keys UserContextMiddleware sets, so handlers behind
		// either middleware read identity the same way.
		c.Locals("user_id", resp.MerchantID)
		c.Locals("user_roles", resp.Roles)
		c.Locals("device_id", resp.DeviceID)

		return c.Next()
	}
}
