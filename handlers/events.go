// handlers/events.go
package handlers

import (
	"merchant-onboarding-system/middleware"
	"merchant-onboarding-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEventRoutes(app *fiber.App, eventService *services.EventService) {
	// Event ingestion — called service-to-service by the platform webhook
	// relay, authenticated by the global gateway middleware alone.
	app.Post("/events", eventService.IngestEvent)

	// 🔐 Merchant actions — require user context from the gateway
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Post("/s/tasks/:id/skip", eventService.SkipTask)
}
