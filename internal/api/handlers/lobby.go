package handlers

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/triviaduel/backend/internal/config"
	"github.com/triviaduel/backend/internal/lobby"
	"github.com/triviaduel/backend/internal/models"
)

var lobbyNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,100}$`)

// LobbyStore is the slice of the lobby store the admission endpoints need.
type LobbyStore interface {
	Create(ctx context.Context, l *models.Lobby, ttl time.Duration) error
	Get(ctx context.Context, name string) (*models.Lobby, error)
	List(ctx context.Context, ranked *bool) ([]*models.Lobby, error)
}

// CreateLobby creates a WAITING lobby with a pre-join expiration and
// returns a join token for the caller
func CreateLobby(lobbies LobbyStore, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, username, ok := identity(c)
		if !ok {
			return
		}

		var req struct {
			Name   string `json:"name"`
			Ranked bool   `json:"ranked"`
		}
		if err := c.BindJSON(&req); err != nil || !lobbyNameRe.MatchString(req.Name) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lobby name"})
			return
		}

		l := models.NewLobby(req.Name, req.Ranked)
		ttl := time.Duration(cfg.LobbyExpireSeconds) * time.Second
		if err := lobbies.Create(c.Request.Context(), l, ttl); err != nil {
			if err == lobby.ErrExists {
				c.JSON(http.StatusBadRequest, gin.H{"error": "lobby already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		token, err := lobby.GenerateToken(userID, username, req.Name, cfg.SecretKey,
			time.Duration(cfg.LobbyTokenExpireSeconds)*time.Second)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"token": token})
	}
}

// ListLobbies lists live lobbies, optionally filtered by the ranked flag
func ListLobbies(lobbies LobbyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ranked *bool
		switch c.Query("ranked") {
		case "true", "True":
			v := true
			ranked = &v
		case "false", "False":
			v := false
			ranked = &v
		}

		all, err := lobbies.List(c.Request.Context(), ranked)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list lobbies"})
			return
		}

		out := make([]gin.H, 0, len(all))
		for _, l := range all {
			out = append(out, gin.H{
				"name":         l.Name,
				"ranked":       l.Ranked,
				"player_count": len(l.Users),
			})
		}

		c.JSON(http.StatusOK, out)
	}
}

// JoinLobby mints a join token for an existing lobby. No state is mutated;
// occupancy is claimed when the websocket attaches.
func JoinLobby(lobbies LobbyStore, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, username, ok := identity(c)
		if !ok {
			return
		}

		name := c.Param("name")
		l, err := lobbies.Get(c.Request.Context(), name)
		if err != nil {
			if err == lobby.ErrNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "lobby not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if len(l.Users) > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Lobby is full"})
			return
		}
		if _, joined := l.Users[userID]; joined {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Already joined the lobby"})
			return
		}

		token, err := lobby.GenerateToken(userID, username, name, cfg.SecretKey,
			time.Duration(cfg.LobbyTokenExpireSeconds)*time.Second)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}
