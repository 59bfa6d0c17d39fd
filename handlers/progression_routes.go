// handlers/progression_routes.go
package handlers

import (
	"merchant-onboarding-system/middleware"
	"merchant-onboarding-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(
	app *fiber.App,
	progressService *services.ProgressService,
	rewardService *services.RewardService,
	leaderboardService *services.LeaderboardService,
	authClient *services.AuthServiceClient,
) {
	// 🔓 Public leaderboard read
	app.Get("/games/:id/leaderboard", leaderboardService.GetLeaderboard)

	// 🔐 Merchant dashboard — require user context (userID, roles)
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/s/me/summary", progressService.GetMySummary)
	secured.Get("/s/me/games/:id/progress", progressService.GetMyGameProgress)
	secured.Get("/s/me/events", progressService.GetMyEventHistory)
	secured.Get("/s/me/games/:id/rank", leaderboardService.GetMyRank)

	secured.Get("/s/me/rewards", rewardService.GetMyRewards)
	secured.Get("/s/me/rewards/counts", rewardService.GetMyRewardCounts)
	secured.Post("/s/me/rewards/:id/claim", rewardService.ClaimReward)
	secured.Patch("/s/me/rewards/:id/viewed", rewardService.MarkRewardAsViewed)
	secured.Patch("/s/me/rewards/viewed", rewardService.MarkAllRewardsAsViewed)

	// SSE stream authenticates via query params against the auth service,
	// since EventSource cannot send gateway headers.
	app.Get("/s/me/rewards/stream", middleware.SSEAuthMiddleware(authClient), rewardService.StreamMyRewardsSSE)

	// 🔒 Admin
	admin := app.Group("/s/admin", middleware.UserContextMiddleware())
	admin.Get("/players/search", progressService.SearchPlayers)
}
