package ws

import (
	"encoding/json"
	"testing"

	"github.com/triviaduel/backend/internal/game"
)

func marshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestProjectPassThroughEvents(t *testing.T) {
	for _, typ := range []string{game.EventGamePrepare, game.EventQuestionData, game.EventQuestionNext} {
		payload := marshal(t, map[string]string{"type": typ})
		out, terminal, err := projectEvent(payload, 1)
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if terminal {
			t.Fatalf("%s should not be terminal", typ)
		}
		if string(out) != string(payload) {
			t.Fatalf("%s not passed through: %s", typ, out)
		}
	}
}

func TestProjectGameStartShowsOpponentName(t *testing.T) {
	payload := marshal(t, game.GameStartEvent{
		Type:     game.EventGameStart,
		Names:    map[int64]string{1: "alice", 2: "bob"},
		Duration: 300,
	})

	out, terminal, err := projectEvent(payload, 1)
	if err != nil || terminal {
		t.Fatalf("err=%v terminal=%t", err, terminal)
	}

	var msg gameStartMessage
	if err := json.Unmarshal(out, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Opponent != "bob" {
		t.Fatalf("opponent = %q, want bob", msg.Opponent)
	}
	if msg.Duration != 300 {
		t.Fatalf("duration = %d", msg.Duration)
	}

	out, _, _ = projectEvent(payload, 2)
	json.Unmarshal(out, &msg)
	if msg.Opponent != "alice" {
		t.Fatalf("opponent = %q, want alice", msg.Opponent)
	}
}

func TestProjectUserAnswered(t *testing.T) {
	payload := marshal(t, game.UserAnsweredEvent{
		Type:          game.EventUserAnswered,
		UserID:        1,
		Correctly:     false,
		CorrectAnswer: "Paris",
		Damage:        20,
	})

	// The answerer sees the full result with the correct answer.
	out, terminal, err := projectEvent(payload, 1)
	if err != nil || terminal {
		t.Fatalf("err=%v terminal=%t", err, terminal)
	}
	var result questionResultMessage
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Type != "question.result" || result.CorrectAnswer != "Paris" || result.Damage != 20 {
		t.Fatalf("answerer message = %+v", result)
	}

	// The peer is only told that the opponent answered, never the answer.
	out, terminal, err = projectEvent(payload, 2)
	if err != nil || terminal {
		t.Fatalf("err=%v terminal=%t", err, terminal)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(out, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["type"] != "opponent.answered" {
		t.Fatalf("peer message type = %v", raw["type"])
	}
	if _, leaked := raw["correct_answer"]; leaked {
		t.Fatal("correct answer leaked to the opponent")
	}
	if raw["damage"].(float64) != 20 {
		t.Fatalf("peer damage = %v", raw["damage"])
	}
}

func TestProjectGameEndIsTerminal(t *testing.T) {
	payload := marshal(t, game.GameEndEvent{
		Type: game.EventGameEnd,
		Users: map[int64]game.PlayerResult{
			1: {Status: "win", RankGain: 20},
			2: {Status: "loss", RankGain: -20},
		},
	})

	out, terminal, err := projectEvent(payload, 2)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if !terminal {
		t.Fatal("game.end must be terminal")
	}

	var msg gameEndMessage
	if err := json.Unmarshal(out, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Status != "loss" || msg.RankGain != -20 {
		t.Fatalf("recipient result = %+v", msg)
	}
}

func TestProjectUnknownEvent(t *testing.T) {
	if _, _, err := projectEvent([]byte(`{"type":"bogus"}`), 1); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
