package models

import (
	"database/sql"
	"time"
)

// UserStartingRank is assigned to every newly registered user.
const UserStartingRank = 1000

// StartingHP is the health every player enters a lobby with.
const StartingHP = 100

// GameType classifies a persisted game record.
type GameType string

const (
	GameTypeRanked   GameType = "RANKED"
	GameTypeNormal   GameType = "NORMAL"
	GameTypeTraining GameType = "TRAINING"
)

// GameStatus is the per-user outcome of a finished game.
type GameStatus string

const (
	StatusWin  GameStatus = "WIN"
	StatusLoss GameStatus = "LOSS"
	StatusDraw GameStatus = "DRAW"
)

// LobbyState tracks where a live lobby is in its lifecycle.
type LobbyState string

const (
	LobbyWaiting    LobbyState = "WAITING"
	LobbyInProgress LobbyState = "IN_PROGRESS"
	LobbyFinished   LobbyState = "FINISHED"
)

// User represents a registered account.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Password  string    `db:"password" json:"-"`
	Rank      int       `db:"rank" json:"rank"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Game is a persisted record of a completed game.
type Game struct {
	ID        int64     `db:"id" json:"id"`
	Type      GameType  `db:"type" json:"type"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// UserGame links a Game to a participating User. Opponent is null for
// training games.
type UserGame struct {
	ID         int64         `db:"id" json:"id"`
	UserID     int64         `db:"user_id" json:"user_id"`
	OpponentID sql.NullInt64 `db:"opponent_id" json:"opponent_id,omitempty"`
	GameID     int64         `db:"game_id" json:"game_id"`
	Status     GameStatus    `db:"status" json:"status"`
	Rank       int           `db:"rank" json:"rank"`
}

// PlayerData is the live per-player slice of a lobby record.
type PlayerData struct {
	Name      string `json:"name"`
	HP        int    `json:"hp"`
	Ready     bool   `json:"ready"`
	Answered  bool   `json:"answered"`
	FiftyUsed bool   `json:"fifty_used"`
}

// CorrectAnswer is the server-side record kept for each question of the
// current batch. Type is retained so the fifty-fifty path can refuse
// boolean questions.
type CorrectAnswer struct {
	Answer     string `json:"answer"`
	Difficulty string `json:"difficulty"`
	Type       string `json:"type"`
}

// Lobby is the live game record shared through the lobby store. The two
// websocket connections of a lobby are its only writers; every
// read-modify-write runs under the per-lobby lock.
type Lobby struct {
	Name                 string               `json:"name"`
	Ranked               bool                 `json:"ranked"`
	State                LobbyState           `json:"state"`
	Users                map[int64]PlayerData `json:"users"`
	ReadyCount           int                  `json:"ready_count"`
	TriviaToken          string               `json:"trivia_token"`
	CorrectAnswers       []CorrectAnswer      `json:"correct_answers"`
	CurrentQuestionCount int                  `json:"current_question_count"`
	CurrentAnswerCount   int                  `json:"current_answer_count"`
	QuestionSerial       int                  `json:"question_serial"`
	GameStartTime        time.Time            `json:"game_start_time"`
	QuestionStartTime    time.Time            `json:"question_start_time"`
}

// NewLobby creates an empty WAITING lobby.
func NewLobby(name string, ranked bool) *Lobby {
	return &Lobby{
		Name:   name,
		Ranked: ranked,
		State:  LobbyWaiting,
		Users:  make(map[int64]PlayerData),
	}
}

// GameRecordType maps the lobby's ranked flag to the persisted game type.
func (l *Lobby) GameRecordType() GameType {
	if l.Ranked {
		return GameTypeRanked
	}
	return GameTypeNormal
}

// OpponentOf returns the id of the other player in the lobby, or false if
// there is none.
func (l *Lobby) OpponentOf(userID int64) (int64, bool) {
	for id := range l.Users {
		if id != userID {
			return id, true
		}
	}
	return 0, false
}
