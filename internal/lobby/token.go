package lobby

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid lobby token")

// TokenClaims binds a user to a single lobby. The token has a very short
// lifetime and is intended to be used immediately after being obtained.
type TokenClaims struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	LobbyName string `json:"lobby_name"`
	jwt.RegisteredClaims
}

// GenerateToken mints a signed join token for the websocket handshake.
func GenerateToken(userID int64, username, lobbyName, secret string, ttl time.Duration) (string, error) {
	claims := &TokenClaims{
		ID:        userID,
		Username:  username,
		LobbyName: lobbyName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies the signature and expiry of a join token.
func ParseToken(raw, secret string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
