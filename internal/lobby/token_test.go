package lobby

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "alice", "arena", "secret", 5*time.Second)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseToken(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ID != 42 {
		t.Fatalf("id = %d", claims.ID)
	}
	if claims.Username != "alice" {
		t.Fatalf("username = %q", claims.Username)
	}
	if claims.LobbyName != "arena" {
		t.Fatalf("lobby name = %q", claims.LobbyName)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(42, "alice", "arena", "secret", 5*time.Second)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ParseToken(token, "other-secret"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenExpired(t *testing.T) {
	token, err := GenerateToken(42, "alice", "arena", "secret", -time.Second)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ParseToken(token, "secret"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenGarbage(t *testing.T) {
	if _, err := ParseToken("not-a-jwt", "secret"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
