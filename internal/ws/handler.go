package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/triviaduel/backend/internal/config"
	"github.com/triviaduel/backend/internal/game"
	"github.com/triviaduel/backend/internal/lobby"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin checks happen in the CORS middleware
	},
}

// Client represents one player's websocket connection to a lobby.
type Client struct {
	conn      *websocket.Conn
	lobbyName string
	userID    int64
	username  string
	engine    *game.Engine
	sub       *redis.PubSub
	send      chan []byte
	closeOnce sync.Once
}

// HandleLobbySocket is the websocket endpoint per player. The raw query
// string is the join token; every check of the handshake happens before
// the upgrade so failures are plain HTTP denials.
func HandleLobbySocket(engine *game.Engine, lobbies *lobby.Store, pubsub *PubSub, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		rawToken := c.Request.URL.RawQuery

		l, err := lobbies.Get(c.Request.Context(), name)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "lobby not found"})
			return
		}
		if len(l.Users) > 1 {
			c.JSON(http.StatusForbidden, gin.H{"error": "lobby is full"})
			return
		}

		claims, err := lobby.ParseToken(rawToken, cfg.SecretKey)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.LobbyName != name {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token not valid for this lobby"})
			return
		}
		if _, ok := l.Users[claims.ID]; ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "already in lobby"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		// The subscription must exist before Join so this socket sees its
		// own game.prepare broadcast.
		ctx := context.Background()
		client := &Client{
			conn:      conn,
			lobbyName: name,
			userID:    claims.ID,
			username:  claims.Username,
			engine:    engine,
			sub:       pubsub.Subscribe(ctx, name),
			send:      make(chan []byte, 64),
		}

		if err := engine.Join(ctx, name, claims.ID, claims.Username); err != nil {
			log.Printf("[WS] join %s denied for user %d: %v", name, claims.ID, err)
			client.sub.Close()
			conn.Close()
			return
		}

		go client.writePump()
		go client.subscribePump()
		go client.readPump()
	}
}

// readPump reads client messages until the socket drops, then runs the
// disconnect transition.
func (c *Client) readPump() {
	defer func() {
		c.engine.Disconnect(context.Background(), c.lobbyName, c.userID)
		c.sub.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] read error for user %d in %s: %v", c.userID, c.lobbyName, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg clientMessage) {
	ctx := context.Background()

	switch msg.Type {
	case "game.ready":
		if err := c.engine.Ready(ctx, c.lobbyName, c.userID); err != nil {
			log.Printf("[WS] ready failed for user %d in %s: %v", c.userID, c.lobbyName, err)
		}

	case "question.answered":
		if err := c.engine.Answer(ctx, c.lobbyName, c.userID, msg.Answer); err != nil {
			log.Printf("[WS] answer failed for user %d in %s: %v", c.userID, c.lobbyName, err)
		}

	case "fifty.request":
		incorrect, ok := c.engine.FiftyFifty(ctx, c.lobbyName, c.userID, msg.Answers)
		if !ok {
			return
		}
		data, _ := json.Marshal(fiftyResponseMessage{
			Type:             "fifty.response",
			IncorrectAnswers: incorrect,
		})
		c.enqueue(data)

	default:
		// Protocol violations are silently ignored.
	}
}

// subscribePump forwards group events to this socket, projected for this
// recipient. After game.end is delivered the server closes the connection.
func (c *Client) subscribePump() {
	for msg := range c.sub.Channel() {
		payload, terminal, err := projectEvent([]byte(msg.Payload), c.userID)
		if err != nil {
			log.Printf("[WS] bad event on %s: %v", c.lobbyName, err)
			continue
		}
		if payload != nil {
			c.enqueue(payload)
		}
		if terminal {
			c.closeSend()
			return
		}
	}
}

// writePump writes messages to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Drained after game.end; say goodbye properly.
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for user %d in %s: %v", c.userID, c.lobbyName, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] send buffer full for user %d in %s, dropping message", c.userID, c.lobbyName)
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}
