package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Lobby settings
	LobbyExpireSeconds      int
	LobbyTokenExpireSeconds int

	// Game settings
	GameMaxDurationSeconds int
	GameRankGain           int

	// Per-difficulty question limits
	QuestionMaxDurationSeconds map[string]int
	QuestionDifficultyDamage   map[string]int

	// Trivia question provider
	TriviaAPIURL            string
	TriviaAPITokenURL       string
	TriviaAPIQuestionAmount int

	// Security
	SecretKey string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/triviaduel?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Lobby settings
		LobbyExpireSeconds:      getEnvInt("LOBBY_EXPIRE_SECONDS", 120),
		LobbyTokenExpireSeconds: getEnvInt("LOBBY_TOKEN_EXPIRE_SECONDS", 5),

		// Game settings
		GameMaxDurationSeconds: getEnvInt("GAME_MAX_DURATION_SECONDS", 300),
		GameRankGain:           getEnvInt("GAME_RANK_GAIN", 20),

		QuestionMaxDurationSeconds: map[string]int{
			"easy":   getEnvInt("QUESTION_MAX_DURATION_SECONDS_EASY", 10),
			"medium": getEnvInt("QUESTION_MAX_DURATION_SECONDS_MEDIUM", 15),
			"hard":   getEnvInt("QUESTION_MAX_DURATION_SECONDS_HARD", 20),
		},
		QuestionDifficultyDamage: map[string]int{
			"easy":   getEnvInt("QUESTION_DIFFICULTY_DAMAGE_EASY", 10),
			"medium": getEnvInt("QUESTION_DIFFICULTY_DAMAGE_MEDIUM", 20),
			"hard":   getEnvInt("QUESTION_DIFFICULTY_DAMAGE_HARD", 30),
		},

		// Trivia question provider
		TriviaAPIURL:            getEnv("TRIVIA_API_URL", "https://opentdb.com/api.php"),
		TriviaAPITokenURL:       getEnv("TRIVIA_API_TOKEN_URL", "https://opentdb.com/api_token.php?command=request"),
		TriviaAPIQuestionAmount: getEnvInt("TRIVIA_API_QUESTION_AMOUNT", 10),

		// Security
		SecretKey: getEnv("SECRET_KEY", "change-me-in-production"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
