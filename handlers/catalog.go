// handlers/catalog.go
package handlers

import (
	"merchant-onboarding-system/middleware"
	"merchant-onboarding-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCatalogRoutes(app *fiber.App, catalogService *services.CatalogService) {
	// 🔓 Public catalog reads — no user context, but still behind gateway auth
	app.Get("/games", catalogService.GetAllGames)
	app.Get("/games/:id", catalogService.GetGameByID)
	app.Get("/missions/:id", catalogService.GetMissionByID)

	// 🔒 Admin catalog management
	admin := app.Group("/s/admin", middleware.UserContextMiddleware())

	admin.Post("/games", catalogService.CreateGame)
	admin.Patch("/games/:id", catalogService.UpdateGame)
	admin.Delete("/games/:id", catalogService.DeleteGame)

	admin.Post("/games/:id/missions", catalogService.CreateMission)
	admin.Patch("/missions/:id", catalogService.UpdateMission)
	admin.Delete("/missions/:id", catalogService.DeleteMission)

	admin.Post("/missions/:id/tasks", catalogService.CreateTask)
	admin.Patch("/tasks/:task_id", catalogService.UpdateTask)
	admin.Delete("/tasks/:task_id", catalogService.DeleteTask)

	admin.Post("/event-types", catalogService.CreateCatalogEvent)
	admin.Get("/event-types", catalogService.GetCatalogEvents)
	admin.Patch("/event-types/:id", catalogService.SetCatalogEventActive)

	admin.Post("/reward-types", catalogService.CreateRewardType)
	admin.Get("/reward-types", catalogService.GetRewardTypes)
	admin.Post("/missions/:id/rewards", catalogService.CreateReward)
	admin.Delete("/rewards/:reward_id", catalogService.DeleteReward)
}
