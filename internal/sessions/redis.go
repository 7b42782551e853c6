package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore persists sessions as JSON strings under context:<id> with a
// fixed expiry. It is constructed explicitly and injected; there is no
// package-level client.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, ttl: TTL}, nil
}

func contextKey(id string) string {
	return "context:" + id
}

// Get loads a session by conversation id. A missing key is not an error;
// it returns (nil, nil).
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, contextKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}

	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

// Save overwrites the whole session and refreshes its expiry.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	if err := r.client.Set(ctx, contextKey(s.ID), data, r.ttl).Err(); err != nil {
		return &UnavailableError{Err: err}
	}
	return nil
}

// Delete removes a session and reports how many keys were deleted.
func (r *RedisStore) Delete(ctx context.Context, id string) (int64, error) {
	n, err := r.client.Del(ctx, contextKey(id)).Result()
	if err != nil {
		return 0, &UnavailableError{Err: err}
	}
	return n, nil
}

// Close releases the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
