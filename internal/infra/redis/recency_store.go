package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RecencyStore keeps last-successful-fetch times in Redis so several
// processes share one cooldown per key.
type RecencyStore struct {
	client *Client
	ttl    time.Duration
}

// NewRecencyStore creates a store. Records expire after ttl; a zero ttl
// keeps them forever.
func NewRecencyStore(client *Client, ttl time.Duration) *RecencyStore {
	return &RecencyStore{client: client, ttl: ttl}
}

func (s *RecencyStore) recencyKey(key string) string {
	return s.client.key("recency", key)
}

// LastSuccess returns the recorded time for key.
func (s *RecencyStore) LastSuccess(ctx context.Context, key string) (time.Time, bool, error) {
	val, err := s.client.rdb.Get(ctx, s.recencyKey(key)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get failed: %w", err)
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid recency value %q: %w", val, err)
	}
	return time.UnixMilli(ms), true, nil
}

// SetLastSuccess records at for key.
func (s *RecencyStore) SetLastSuccess(ctx context.Context, key string, at time.Time) error {
	val := strconv.FormatInt(at.UnixMilli(), 10)
	if err := s.client.rdb.Set(ctx, s.recencyKey(key), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// Clear removes the record for key.
func (s *RecencyStore) Clear(ctx context.Context, key string) error {
	if err := s.client.rdb.Del(ctx, s.recencyKey(key)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}
