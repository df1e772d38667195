package quota

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "colorold:usage:"

// RedisCmdable is the subset of *redis.Client the store uses.
type RedisCmdable interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisStore keeps records in Redis hashes that expire after the retention
// window, so pruning is left to Redis.
type RedisStore struct {
	client    RedisCmdable
	retention time.Duration
}

func NewRedisStore(client RedisCmdable, retention time.Duration) *RedisStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisStore{client: client, retention: retention}
}

func (s *RedisStore) Get(ctx context.Context, key string) (Record, bool, error) {
	data, err := s.client.HGetAll(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return Record{}, false, err
	}
	if len(data) == 0 {
		return Record{}, false, nil
	}
	var rec Record
	if raw, ok := data["count"]; ok {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			rec.Count = n
		}
	}
	if raw, ok := data["period_start"]; ok {
		if unix, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil {
			rec.PeriodStart = time.Unix(unix, 0).UTC()
		}
	}
	return rec, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, rec Record) error {
	redisKey := redisKeyPrefix + key
	if err := s.client.HSet(ctx, redisKey, "count", rec.Count, "period_start", rec.PeriodStart.Unix()).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, redisKey, s.retention).Err()
}
