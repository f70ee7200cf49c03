package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/mathlovers/internal/model"
)

// Cache はランキング結果のキャッシュインターフェース。
type Cache interface {
	// Get はキャッシュ済みのランキングを返す。未キャッシュの場合はok=false。
	Get(ctx context.Context, limit int) (entries []model.RankingEntry, ok bool, err error)
	Set(ctx context.Context, limit int, entries []model.RankingEntry) error
}

const cacheKeyPrefix = "mathlovers:rankings:top"

// RedisCache はRedisにJSONでランキングを保存するCache実装。
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache はRedisCacheを生成する。
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) key(limit int) string {
	return fmt.Sprintf("%s%d", cacheKeyPrefix, limit)
}

// Get はキャッシュからランキングを取得する。
func (c *RedisCache) Get(ctx context.Context, limit int) ([]model.RankingEntry, bool, error) {
	val, err := c.client.Get(ctx, c.key(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ranking cache: get: %w", err)
	}

	var entries []model.RankingEntry
	if err := json.Unmarshal(val, &entries); err != nil {
		return nil, false, fmt.Errorf("ranking cache: unmarshal: %w", err)
	}
	return entries, true, nil
}

// Set はランキングをTTL付きで保存する。
func (c *RedisCache) Set(ctx context.Context, limit int, entries []model.RankingEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("ranking cache: marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.key(limit), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("ranking cache: set: %w", err)
	}
	return nil
}
