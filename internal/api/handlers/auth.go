package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/triviaduel/backend/internal/config"
	"github.com/triviaduel/backend/internal/models"
)

// Register creates a new user account with the starting rank
func Register(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
			return
		}

		username := strings.TrimSpace(req.Username)
		if username == "" || len(username) > 150 || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
			return
		}

		var exists bool
		if err := db.Get(&exists, `SELECT EXISTS (SELECT 1 FROM users WHERE username=$1)`, username); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if exists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username already taken"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		var user models.User
		err = db.Get(&user,
			`INSERT INTO users (username, password, rank, created_at) VALUES ($1, $2, $3, NOW())
			 RETURNING id, username, password, rank, created_at`,
			username, string(hash), models.UserStartingRank)
		if err != nil {
			log.Printf("[AUTH] failed to create user %s: %v", username, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "username already taken"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": user.ID, "username": user.Username, "rank": user.Rank})
	}
}

// Login validates credentials and issues a bearer JWT
func Login(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
			return
		}

		var user models.User
		err := db.Get(&user, `SELECT id, username, password, rank, created_at FROM users WHERE username=$1`, req.Username)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		exp := time.Now().Add(24 * time.Hour)
		claims := jwt.MapClaims{"user_id": user.ID, "username": user.Username, "exp": exp.Unix()}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(cfg.SecretKey))
		if err != nil {
			log.Printf("[AUTH] failed to sign token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": signed, "user": gin.H{"id": user.ID, "username": user.Username, "rank": user.Rank}})
	}
}

// AuthMiddleware validates bearer JWT and sets user_id/username in context
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(cfg.SecretKey), nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userIDf, ok := claims["user_id"].(float64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		username, _ := claims["username"].(string)

		c.Set("user_id", int64(userIDf))
		c.Set("username", username)
		c.Next()
	}
}

// Leaderboard returns the top users ordered by rank
func Leaderboard(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rows []struct {
			Username string `db:"username" json:"username"`
			Rank     int    `db:"rank" json:"rank"`
		}
		if err := db.Select(&rows, `SELECT username, rank FROM users ORDER BY rank DESC, username ASC LIMIT 50`); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch leaderboard"})
			return
		}

		c.JSON(http.StatusOK, rows)
	}
}

// identity pulls the authenticated user out of the gin context.
func identity(c *gin.Context) (int64, string, bool) {
	idVal, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, "", false
	}
	nameVal, _ := c.Get("username")
	username, _ := nameVal.(string)
	return idVal.(int64), username, true
}
