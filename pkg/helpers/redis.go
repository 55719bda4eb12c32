package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient initializes a redis client
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// SessionKey is the hash holding a user's current session id.
func SessionKey(userID string) string { return fmt.Sprintf("user:session:%s", userID) }

// StoreSession records sid as the user's live session for ttl.
func StoreSession(ctx context.Context, rdb *redis.Client, userID, sid string, ttl time.Duration) error {
	key := SessionKey(userID)
	pipe := rdb.TxPipeline()
	pipe.HSet(ctx, key, "sid", sid, "issued_at", time.Now().UTC().Format(time.RFC3339))
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// SessionID returns the live session id, or "" when none exists.
func SessionID(ctx context.Context, rdb *redis.Client, userID string) (string, error) {
	sid, err := rdb.HGet(ctx, SessionKey(userID), "sid").Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return sid, err
}

func DeleteSession(ctx context.Context, rdb *redis.Client, userID string) error {
	return rdb.Del(ctx, SessionKey(userID)).Err()
}
