package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/primendon/dailycut/internal/logging"
)

// Redis 把整个 Entry 序列化成一个 JSON 值存储。
// 物理过期用保留期，逻辑 TTL 存在条目里由读取方判断，
// 这样过期后的数据在保留期内仍能作为兜底读出来。
type Redis struct {
	rdb *redis.Client
	log logging.Logger
}

func NewRedis(addr string, log logging.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}

	return &Redis{rdb: rdb, log: log}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (*Entry, bool) {
	bs, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warnf("cache: redis get %s: %v", key, err)
		}
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(bs, &e); err != nil {
		r.log.Warnf("cache: decode entry %s: %v", key, err)
		return nil, false
	}
	return &e, true
}

func (r *Redis) Put(ctx context.Context, e *Entry) error {
	bs, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache: encode entry: %w", err)
	}
	if err := r.rdb.Set(ctx, e.Key, bs, Retention).Err(); err != nil {
		return fmt.Errorf("cache: redis set %s: %w", e.Key, err)
	}
	return nil
}
