package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"game-match-system/events"
	"game-match-system/handlers"
	"game-match-system/middleware"
	"game-match-system/models"
	"game-match-system/services"
	"game-match-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("⚠️  invalid %s=%q, using default %.2f", key, v, def)
	}
	return def
}

func envSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
		log.Printf("⚠️  invalid %s=%q, using default %s", key, v, def)
	}
	return def
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// Only gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())
	app.Use(middleware.UserContextMiddleware())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("⚠️  ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	origins := strings.Split(allowedOrigins, ",")
	for i, o := range origins {
		origins[i] = strings.TrimSpace(o)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.GameHistory{},
		&models.GameHistoryResult{},
		&models.Tournament{},
		&models.TournamentParticipant{},
		&models.BracketMatch{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	hub := events.NewHub()
	financialService := services.NewFinancialService(db, envFloat("PLATFORM_COMMISSION_RATE", services.DefaultCommissionRate))
	roomService := services.NewRoomService(db, financialService, hub)
	roomService.MatchmakingTimeout = envSeconds("MATCHMAKING_TIMEOUT_SECONDS", services.DefaultMatchmakingTimeout)
	roomService.RematchWindow = envSeconds("REMATCH_WINDOW_SECONDS", services.DefaultRematchWindow)
	tournamentService := services.NewTournamentService(db, financialService, hub)
	tournamentService.RegistrationWindow = envSeconds("TOURNAMENT_REGISTRATION_SECONDS", services.DefaultRegistrationWindow)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go workers.NewWithdrawalProcessor(db).Run(ctx)
	services.StartMaintenanceScheduler(roomService, tournamentService)

	handlers.SetupRoomRoutes(app, roomService)
	handlers.SetupTournamentRoutes(app, tournamentService)
	handlers.SetupFinancialRoutes(app, financialService)
	handlers.SetupWebsocket(app, hub, roomService, tournamentService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Withdrawal processor running")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", strings.Join(origins, ","))

	<-ctx.Done()
	log.Println("Shutting down server...")
}
