package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/triviaduel/backend/internal/config"
	"github.com/triviaduel/backend/internal/lobby"
	"github.com/triviaduel/backend/internal/models"
)

type fakeLobbyStore struct {
	lobbies map[string]*models.Lobby
}

func newFakeLobbyStore() *fakeLobbyStore {
	return &fakeLobbyStore{lobbies: make(map[string]*models.Lobby)}
}

func (s *fakeLobbyStore) Create(_ context.Context, l *models.Lobby, _ time.Duration) error {
	if _, ok := s.lobbies[l.Name]; ok {
		return lobby.ErrExists
	}
	s.lobbies[l.Name] = l
	return nil
}

func (s *fakeLobbyStore) Get(_ context.Context, name string) (*models.Lobby, error) {
	l, ok := s.lobbies[name]
	if !ok {
		return nil, lobby.ErrNotFound
	}
	return l, nil
}

func (s *fakeLobbyStore) List(_ context.Context, ranked *bool) ([]*models.Lobby, error) {
	var out []*models.Lobby
	for _, l := range s.lobbies {
		if ranked == nil || l.Ranked == *ranked {
			out = append(out, l)
		}
	}
	return out, nil
}

func testLobbyConfig() *config.Config {
	return &config.Config{
		SecretKey:               "test-secret",
		LobbyExpireSeconds:      120,
		LobbyTokenExpireSeconds: 5,
	}
}

func lobbyTestRouter(store *fakeLobbyStore, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", int64(7))
		c.Set("username", "alice")
	})
	r.POST("/api/trivia/lobbies/", CreateLobby(store, cfg))
	r.GET("/api/trivia/lobbies/", ListLobbies(store))
	r.POST("/api/trivia/lobbies/:name/join/", JoinLobby(store, cfg))
	return r
}

func TestCreateLobby(t *testing.T) {
	store := newFakeLobbyStore()
	cfg := testLobbyConfig()
	router := lobbyTestRouter(store, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trivia/lobbies/",
		strings.NewReader(`{"name":"arena","ranked":true}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	claims, err := lobby.ParseToken(resp.Token, cfg.SecretKey)
	if err != nil {
		t.Fatalf("returned token does not verify: %v", err)
	}
	if claims.ID != 7 || claims.Username != "alice" || claims.LobbyName != "arena" {
		t.Fatalf("claims = %+v", claims)
	}

	l, ok := store.lobbies["arena"]
	if !ok {
		t.Fatal("lobby was not stored")
	}
	if !l.Ranked || l.State != models.LobbyWaiting {
		t.Fatalf("stored lobby = %+v", l)
	}
}

func TestCreateLobbyDuplicateName(t *testing.T) {
	store := newFakeLobbyStore()
	router := lobbyTestRouter(store, testLobbyConfig())
	store.lobbies["arena"] = models.NewLobby("arena", false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trivia/lobbies/",
		strings.NewReader(`{"name":"arena","ranked":true}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateLobbyInvalidName(t *testing.T) {
	store := newFakeLobbyStore()
	router := lobbyTestRouter(store, testLobbyConfig())

	for _, body := range []string{
		`{"name":"","ranked":true}`,
		`{"name":"has spaces","ranked":true}`,
		`{"name":"bad/slash","ranked":true}`,
		`not json`,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/trivia/lobbies/", strings.NewReader(body))
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestListLobbiesFilter(t *testing.T) {
	store := newFakeLobbyStore()
	router := lobbyTestRouter(store, testLobbyConfig())

	ranked := models.NewLobby("ranked-room", true)
	ranked.Users[1] = models.PlayerData{Name: "bob", HP: models.StartingHP}
	store.lobbies["ranked-room"] = ranked
	store.lobbies["casual-room"] = models.NewLobby("casual-room", false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/trivia/lobbies/?ranked=true", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp []struct {
		Name        string `json:"name"`
		Ranked      bool   `json:"ranked"`
		PlayerCount int    `json:"player_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("got %d lobbies, want 1", len(resp))
	}
	if resp[0].Name != "ranked-room" || !resp[0].Ranked || resp[0].PlayerCount != 1 {
		t.Fatalf("listed lobby = %+v", resp[0])
	}
}

func TestJoinLobby(t *testing.T) {
	store := newFakeLobbyStore()
	cfg := testLobbyConfig()
	router := lobbyTestRouter(store, cfg)
	store.lobbies["arena"] = models.NewLobby("arena", true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trivia/lobbies/arena/join/", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := lobby.ParseToken(resp.Token, cfg.SecretKey)
	if err != nil {
		t.Fatalf("returned token does not verify: %v", err)
	}
	if claims.LobbyName != "arena" {
		t.Fatalf("token lobby = %q", claims.LobbyName)
	}
}

func TestJoinLobbyNotFound(t *testing.T) {
	router := lobbyTestRouter(newFakeLobbyStore(), testLobbyConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trivia/lobbies/missing/join/", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestJoinLobbyFull(t *testing.T) {
	store := newFakeLobbyStore()
	router := lobbyTestRouter(store, testLobbyConfig())

	l := models.NewLobby("arena", true)
	l.Users[1] = models.PlayerData{Name: "bob", HP: models.StartingHP}
	l.Users[2] = models.PlayerData{Name: "carol", HP: models.StartingHP}
	store.lobbies["arena"] = l

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trivia/lobbies/arena/join/", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Lobby is full") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestJoinLobbyAlreadyJoined(t *testing.T) {
	store := newFakeLobbyStore()
	router := lobbyTestRouter(store, testLobbyConfig())

	l := models.NewLobby("arena", true)
	l.Users[7] = models.PlayerData{Name: "alice", HP: models.StartingHP}
	store.lobbies["arena"] = l

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trivia/lobbies/arena/join/", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Already joined the lobby") {
		t.Fatalf("body = %s", w.Body.String())
	}
}
