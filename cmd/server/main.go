package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/triviaduel/backend/internal/api"
	"github.com/triviaduel/backend/internal/config"
	"github.com/triviaduel/backend/internal/database"
	"github.com/triviaduel/backend/internal/game"
	"github.com/triviaduel/backend/internal/lobby"
	"github.com/triviaduel/backend/internal/middleware"
	"github.com/triviaduel/backend/internal/migrations"
	"github.com/triviaduel/backend/internal/redis"
	"github.com/triviaduel/backend/internal/trivia"
	"github.com/triviaduel/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// Wire the game engine: lobby store + lock, question provider, pub/sub
	lobbies := lobby.NewStore(rdb)
	locks := lobby.NewLocker(rdb)
	questions := trivia.NewClient(cfg.TriviaAPIURL, cfg.TriviaAPITokenURL, cfg.TriviaAPIQuestionAmount)
	pubsub := ws.NewPubSub(rdb)
	repo := game.NewRepository(db)
	engine := game.NewEngine(lobbies, locks, questions, pubsub, repo, cfg)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg))

	// Initialize API handlers
	api.SetupRoutes(router, db, lobbies, questions, engine, pubsub, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Trivia Duel server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
