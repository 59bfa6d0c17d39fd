package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"merchant-onboarding-system/engine"
	"merchant-onboarding-system/handlers"
	"merchant-onboarding-system/middleware"
	"merchant-onboarding-system/models"
	"merchant-onboarding-system/services"
	"merchant-onboarding-system/store"
	"merchant-onboarding-system/utils"
	"merchant-onboarding-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024, // 32MB — catalog images only
	})

	// 🔐 GLOBAL: only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token, X-User-ID, X-User-Roles, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Game{},
		&models.CatalogEvent{},
		&models.Mission{},
		&models.Task{},
		&models.Player{},
		&models.TaskProgress{},
		&models.MissionProgress{},
		&models.RewardType{},
		&models.Reward{},
		&models.PlayerReward{},
		&models.LeaderboardEntry{},
		&models.EventLog{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Processing engine over the gorm-backed ports
	eng := engine.New(
		store.NewCatalog(db),
		store.NewPlayers(db),
		store.NewProgress(db),
		store.NewRewards(db),
		store.NewLeaderboard(db),
		store.NewEventLog(db),
	)

	eventService := services.NewEventService(eng)
	catalogService := services.NewCatalogService(db)
	progressService := services.NewProgressService(db)
	rewardService := services.NewRewardService(db)
	leaderboardService := services.NewLeaderboardService(db)

	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("ONBOARDING_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("ONBOARDING_SERVICE_TOKEN environment variable not set")
	}
	authClient := services.NewAuthServiceClient(authServiceURL, serviceToken)

	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	merchantSync := workers.NewMerchantSyncWorker(db, syncServiceURL, "/api/v1/public/merchants", serviceToken)
	merchantSync.Start(ctx)

	// Activity pull is optional; push-mode deployments POST /events instead.
	if os.Getenv("ACTIVITY_POLL_ENABLED") == "true" {
		pollClient := workers.NewEventPollClient(eng)
		go workers.PollActivity(ctx, pollClient, 10*time.Second)
	}

	services.StartMaintenanceScheduler(leaderboardService, rewardService)

	handlers.SetupEventRoutes(app, eventService)
	handlers.SetupCatalogRoutes(app, catalogService)
	handlers.SetupProgressionRoutes(app, progressService, rewardService, leaderboardService, authClient)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Merchant Sync Worker running")
	log.Println("✅ Maintenance scheduler running (ranks every 5m, reward expiry hourly)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
