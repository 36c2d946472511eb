package game

import "github.com/triviaduel/backend/internal/trivia"

// Broadcast event types. These travel through the lobby's pub/sub group;
// the websocket layer projects them per recipient before writing to a
// socket (see internal/ws).
const (
	EventGamePrepare  = "game.prepare"
	EventGameStart    = "game.start"
	EventQuestionData = "question.data"
	EventQuestionNext = "question.next"
	EventUserAnswered = "user.answered"
	EventGameEnd      = "game.end"
)

type GamePrepareEvent struct {
	Type string `json:"type"`
}

// GameStartEvent carries both usernames; each recipient is shown only the
// opponent's.
type GameStartEvent struct {
	Type     string           `json:"type"`
	Names    map[int64]string `json:"names"`
	Duration int              `json:"duration"`
}

type QuestionDataEvent struct {
	Type      string                     `json:"type"`
	Questions []trivia.FormattedQuestion `json:"questions"`
}

type QuestionNextEvent struct {
	Type string `json:"type"`
}

// UserAnsweredEvent fans out as question.result to the answerer and
// opponent.answered (without the correct answer) to the peer.
type UserAnsweredEvent struct {
	Type          string `json:"type"`
	UserID        int64  `json:"user_id"`
	Correctly     bool   `json:"correctly"`
	CorrectAnswer string `json:"correct_answer"`
	Damage        int    `json:"damage"`
}

type PlayerResult struct {
	Status   string `json:"status"`
	RankGain int    `json:"rank_gain"`
}

// GameEndEvent carries every player's result; each recipient is shown only
// its own.
type GameEndEvent struct {
	Type  string                 `json:"type"`
	Users map[int64]PlayerResult `json:"users"`
}
