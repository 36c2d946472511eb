package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/triviaduel/backend/internal/api/handlers"
	"github.com/triviaduel/backend/internal/config"
	"github.com/triviaduel/backend/internal/game"
	"github.com/triviaduel/backend/internal/lobby"
	"github.com/triviaduel/backend/internal/trivia"
	"github.com/triviaduel/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	router *gin.Engine,
	db *sqlx.DB,
	lobbies *lobby.Store,
	questions *trivia.Client,
	engine *game.Engine,
	pubsub *ws.PubSub,
	cfg *config.Config,
) {
	auth := handlers.AuthMiddleware(cfg)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", handlers.HealthCheck)

		users := apiGroup.Group("/users")
		{
			users.POST("/register/", handlers.Register(db))
			users.POST("/login/", handlers.Login(db, cfg))
			users.GET("/leaderboard/", auth, handlers.Leaderboard(db))
		}

		triviaGroup := apiGroup.Group("/trivia", auth)
		{
			triviaGroup.POST("/lobbies/", handlers.CreateLobby(lobbies, cfg))
			triviaGroup.GET("/lobbies/", handlers.ListLobbies(lobbies))
			triviaGroup.POST("/lobbies/:name/join/", handlers.JoinLobby(lobbies, cfg))

			triviaGroup.GET("/training/", handlers.TrainingQuestions(questions, cfg))
			triviaGroup.POST("/training/", handlers.SaveTraining(db))

			triviaGroup.GET("/history/", handlers.History(db))
		}
	}

	// The websocket handshake authenticates with the join token itself.
	router.GET("/ws/trivia/lobbies/:name", ws.HandleLobbySocket(engine, lobbies, pubsub, cfg))
}
