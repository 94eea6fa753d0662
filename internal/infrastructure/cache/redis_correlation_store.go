package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify-merchant-link/internal/ports"

	"github.com/redis/go-redis/v9"
)

const correlationKeyPrefix = "shopify:correlation:"

// RedisCorrelationStore implements CorrelationStore backed by Redis.
// Expiry relies on Redis key TTLs, so records vanish atomically.
type RedisCorrelationStore struct {
	client redis.UniversalClient
}

var _ ports.CorrelationStore = (*RedisCorrelationStore)(nil)

// NewRedisCorrelationStore constructs a Redis-backed correlation store
func NewRedisCorrelationStore(client redis.UniversalClient) *RedisCorrelationStore {
	return &RedisCorrelationStore{client: client}
}

// Put stores merchantID under sessionKey, replacing any previous record
func (s *RedisCorrelationStore) Put(ctx context.Context, sessionKey, merchantID string, ttl time.Duration) error {
	if sessionKey == "" || merchantID == "" {
		return fmt.Errorf("session key and merchant id are required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	if err := s.client.Set(ctx, correlationKey(sessionKey), merchantID, ttl).Err(); err != nil {
		return fmt.Errorf("persist correlation: %w", err)
	}
	return nil
}

// Get loads the merchant id without extending the TTL
func (s *RedisCorrelationStore) Get(ctx context.Context, sessionKey string) (string, bool, error) {
	merchantID, err := s.client.Get(ctx, correlationKey(sessionKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("load correlation: %w", err)
	}
	return merchantID, true, nil
}

// Delete removes the record. Deleting a missing key is not an error.
func (s *RedisCorrelationStore) Delete(ctx context.Context, sessionKey string) error {
	if err := s.client.Del(ctx, correlationKey(sessionKey)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete correlation: %w", err)
	}
	return nil
}

// Consume reads and deletes the record in one step (GETDEL)
func (s *RedisCorrelationStore) Consume(ctx context.Context, sessionKey string) (string, bool, error) {
	merchantID, err := s.client.GetDel(ctx, correlationKey(sessionKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("consume correlation: %w", err)
	}
	return merchantID, true, nil
}

func correlationKey(sessionKey string) string {
	return correlationKeyPrefix + sessionKey
}
