// Package redis provides a distributed lock for snapshot keys on Redis.
//
// Two runs writing the same snapshot key would each replay from the same
// starting lots and the last writer would win. The lock makes the second run
// fail fast with store.ErrLockHeld instead.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/robinvdvleuten/taxlots/store"
)

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr     string
	Password string
	DB       int
}

// unlockLua deletes the lock key only while it still holds the caller's
// token, so an expired holder cannot release a newer lock.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker implements store.Locker with SET NX and a token-checked unlock.
type Locker struct {
	rdb      *redis.Client
	unlockSc *redis.Script
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg ClientConfig) (*Locker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &Locker{rdb: rdb, unlockSc: redis.NewScript(unlockLua)}, nil
}

// Close closes the Redis connection.
func (l *Locker) Close() error {
	return l.rdb.Close()
}

func lockKey(key string) string {
	return "taxlots:lock:" + key
}

// Acquire takes the lock for key for at most ttl. The returned unlock
// function may be called more than once.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := lockKey(key)

	ok, err := l.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("redis: %s: %w", key, store.ErrLockHeld)
	}

	released := false
	unlock := func() {
		if released {
			return
		}
		released = true

		// The caller's context may already be cancelled.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = l.unlockSc.Run(unlockCtx, l.rdb, []string{lk}, token).Err()
	}

	return unlock, nil
}

var _ store.Locker = (*Locker)(nil)
