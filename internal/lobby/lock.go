package lobby

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrLockTimeout = errors.New("timed out acquiring lobby lock")

const (
	lockKeyPrefix = "lobby_lock:"
	lockRetry     = 25 * time.Millisecond
	lockWait      = 30 * time.Second

	// lockTTL must outlast the longest critical section held under the
	// lock: the game engine makes up to two question-provider requests
	// (trivia.RequestTimeout each) without releasing it. An early expiry
	// would let a concurrent lobby mutation interleave mid-fetch.
	lockTTL = 30 * time.Second
)

// releaseScript deletes the lock only if it still holds our token, so a
// slow holder cannot release a lock that expired and was re-acquired.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes lobby read-modify-writes across processes with a
// SET NX PX lock per lobby name. Sockets of one lobby may live on
// different server processes, so an in-process mutex is not enough.
type Locker struct {
	rdb *redis.Client
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

// Lock blocks until the per-lobby lock is acquired and returns the release
// function. Gives up after lockWait.
func (l *Locker) Lock(ctx context.Context, name string) (func(), error) {
	token := make([]byte, 16)
	rand.Read(token)
	value := hex.EncodeToString(token)

	key := lockKeyPrefix + name
	deadline := time.Now().Add(lockWait)

	for {
		ok, err := l.rdb.SetNX(ctx, key, value, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			release := func() {
				releaseScript.Run(context.Background(), l.rdb, []string{key}, value)
			}
			return release, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetry):
		}
	}
}
