package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/bulksend/internal/domain"
)

const (
	redisKeyPrefix = "bulksend:quota:"

	// Stale day keys expire on their own; 48h covers timezone skew
	// between machines sharing the counter.
	redisStateTTL = 48 * time.Hour
)

// RedisStore keeps the quota state in Redis, keyed by calendar day, so
// multiple machines sending for the same account share one counter.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis instance at url
// (redis://host:port/db) and verifies the connection with a ping.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Load reads today's state. A missing key is a fresh start.
func (s *RedisStore) Load(ctx context.Context) (domain.DailyQuotaState, error) {
	var state domain.DailyQuotaState

	key := redisKeyPrefix + domain.QuotaDate(time.Now())
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("reading quota state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.DailyQuotaState{}, fmt.Errorf("parsing quota state: %w", err)
	}
	return state, nil
}

// Save writes the state under its own day key with a TTL.
func (s *RedisStore) Save(ctx context.Context, state domain.DailyQuotaState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling quota state: %w", err)
	}
	key := redisKeyPrefix + state.Date
	if err := s.client.Set(ctx, key, data, redisStateTTL).Err(); err != nil {
		return fmt.Errorf("writing quota state: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }
