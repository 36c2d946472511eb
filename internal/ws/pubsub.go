package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const lobbyChannelPrefix = "lobby_events:"

// PubSub broadcasts engine events to every socket subscribed to a lobby
// group, across all server processes. Redis delivers channel messages to
// each subscriber in publish order, which is what the protocol's ordering
// guarantees rest on.
type PubSub struct {
	rdb *redis.Client
}

func NewPubSub(rdb *redis.Client) *PubSub {
	return &PubSub{rdb: rdb}
}

// Publish implements game.Publisher.
func (p *PubSub) Publish(ctx context.Context, lobbyName string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, lobbyChannelPrefix+lobbyName, data).Err()
}

// Subscribe attaches to a lobby's event channel.
func (p *PubSub) Subscribe(ctx context.Context, lobbyName string) *redis.PubSub {
	return p.rdb.Subscribe(ctx, lobbyChannelPrefix+lobbyName)
}
