package ws

import (
	"encoding/json"
	"fmt"

	"github.com/triviaduel/backend/internal/game"
)

// Client -> server message. The payload fields sit beside the type tag;
// unknown types and malformed payloads are silently ignored.
type clientMessage struct {
	Type    string   `json:"type"`
	Answer  string   `json:"answer"`
	Answers []string `json:"answers"`
}

// Server -> client messages.
type gameStartMessage struct {
	Type     string `json:"type"`
	Opponent string `json:"opponent"`
	Duration int    `json:"duration"`
}

type questionResultMessage struct {
	Type          string `json:"type"`
	Correctly     bool   `json:"correctly"`
	CorrectAnswer string `json:"correct_answer"`
	Damage        int    `json:"damage"`
}

type opponentAnsweredMessage struct {
	Type      string `json:"type"`
	Correctly bool   `json:"correctly"`
	Damage    int    `json:"damage"`
}

type fiftyResponseMessage struct {
	Type             string   `json:"type"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type gameEndMessage struct {
	Type     string `json:"type"`
	Status   string `json:"status"`
	RankGain int    `json:"rank_gain"`
}

// projectEvent turns one broadcast group event into the message this
// recipient should see. A nil payload means nothing is delivered; terminal
// marks the connection for closing after the write.
func projectEvent(payload []byte, recipientID int64) (out []byte, terminal bool, err error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return nil, false, err
	}

	switch head.Type {
	case game.EventGamePrepare, game.EventQuestionData, game.EventQuestionNext:
		return payload, false, nil

	case game.EventGameStart:
		var ev game.GameStartEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, false, err
		}
		opponent := ""
		for id, name := range ev.Names {
			if id != recipientID {
				opponent = name
			}
		}
		out, err := json.Marshal(gameStartMessage{
			Type:     game.EventGameStart,
			Opponent: opponent,
			Duration: ev.Duration,
		})
		return out, false, err

	case game.EventUserAnswered:
		var ev game.UserAnsweredEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, false, err
		}
		if ev.UserID == recipientID {
			out, err := json.Marshal(questionResultMessage{
				Type:          "question.result",
				Correctly:     ev.Correctly,
				CorrectAnswer: ev.CorrectAnswer,
				Damage:        ev.Damage,
			})
			return out, false, err
		}
		out, err := json.Marshal(opponentAnsweredMessage{
			Type:      "opponent.answered",
			Correctly: ev.Correctly,
			Damage:    ev.Damage,
		})
		return out, false, err

	case game.EventGameEnd:
		var ev game.GameEndEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, false, err
		}
		res, ok := ev.Users[recipientID]
		if !ok {
			return nil, true, nil
		}
		out, err := json.Marshal(gameEndMessage{
			Type:     game.EventGameEnd,
			Status:   res.Status,
			RankGain: res.RankGain,
		})
		return out, true, err

	default:
		return nil, false, fmt.Errorf("unknown event type %q", head.Type)
	}
}
