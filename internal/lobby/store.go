package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/triviaduel/backend/internal/models"
)

var (
	ErrNotFound = errors.New("lobby not found")
	ErrExists   = errors.New("lobby already exists")
)

const (
	lobbyKeyPrefix = "lobby:"
	rankedIndexKey = "lobbies:ranked"
	normalIndexKey = "lobbies:normal"
)

// Store keeps live lobby records as JSON values in Redis, indexed by the
// ranked flag so the list filter can be served from a set.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func lobbyKey(name string) string {
	return lobbyKeyPrefix + name
}

func indexKey(ranked bool) string {
	if ranked {
		return rankedIndexKey
	}
	return normalIndexKey
}

// Create stores a new WAITING lobby with an expiration so abandoned lobbies
// self-destruct before anyone connects. Fails with ErrExists on name collision.
func (s *Store) Create(ctx context.Context, l *models.Lobby, ttl time.Duration) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}

	ok, err := s.rdb.SetNX(ctx, lobbyKey(l.Name), data, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrExists
	}

	return s.rdb.SAdd(ctx, indexKey(l.Ranked), l.Name).Err()
}

// Get loads a lobby record by name.
func (s *Store) Get(ctx context.Context, name string) (*models.Lobby, error) {
	data, err := s.rdb.Get(ctx, lobbyKey(name)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var l models.Lobby
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("corrupt lobby record %q: %w", name, err)
	}
	if l.Users == nil {
		l.Users = make(map[int64]models.PlayerData)
	}

	return &l, nil
}

// Save overwrites the lobby record. The value is written without an
// expiration; pre-join TTLs are set by Create and cleared on first attach.
func (s *Store) Save(ctx context.Context, l *models.Lobby) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, lobbyKey(l.Name), data, 0).Err()
}

// ClearTTL persists the record indefinitely for the lifetime of the game.
func (s *Store) ClearTTL(ctx context.Context, name string) error {
	return s.rdb.Persist(ctx, lobbyKey(name)).Err()
}

// Delete removes the record and its index entries.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.rdb.Del(ctx, lobbyKey(name)).Err(); err != nil {
		return err
	}
	s.rdb.SRem(ctx, rankedIndexKey, name)
	s.rdb.SRem(ctx, normalIndexKey, name)
	return nil
}

// List returns all live lobbies, optionally filtered by the ranked flag.
// Index members whose record has expired are pruned lazily.
func (s *Store) List(ctx context.Context, ranked *bool) ([]*models.Lobby, error) {
	var keys []string
	if ranked != nil {
		keys = []string{indexKey(*ranked)}
	} else {
		keys = []string{rankedIndexKey, normalIndexKey}
	}

	var lobbies []*models.Lobby
	for _, key := range keys {
		names, err := s.rdb.SMembers(ctx, key).Result()
		if err != nil {
			return nil, err
		}

		for _, name := range names {
			l, err := s.Get(ctx, name)
			if err == ErrNotFound {
				// Expired before anyone joined; drop the stale index entry.
				s.rdb.SRem(ctx, key, name)
				continue
			}
			if err != nil {
				return nil, err
			}
			lobbies = append(lobbies, l)
		}
	}

	return lobbies, nil
}
