package position

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "kanban:position"

// RedisAllocator keeps one counter per (owner, column) and bumps it with INCR, which
// makes concurrent appends collision free. A missing counter is seeded from the
// database max with SETNX before the first increment.
type RedisAllocator struct {
	rdb *redis.Client
	max MaxFunc
}

func NewRedisAllocator(rdb *redis.Client, max MaxFunc) *RedisAllocator {
	return &RedisAllocator{rdb: rdb, max: max}
}

func (a *RedisAllocator) Next(ctx context.Context, ownerID, column string) (int, error) {
	key := counterKey(ownerID, column)

	exists, err := a.rdb.Exists(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("check position counter: %w", err)
	}
	if exists == 0 {
		current, err := a.max(ctx, ownerID, column)
		if err != nil {
			return 0, err
		}
		if err := a.rdb.SetNX(ctx, key, current, 0).Err(); err != nil {
			return 0, fmt.Errorf("seed position counter: %w", err)
		}
	}

	next, err := a.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment position counter: %w", err)
	}
	return int(next), nil
}

func counterKey(ownerID, column string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, ownerID, column)
}

// NewRedisClient connects and pings, retrying a few times while redis starts up.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	log := zap.L().With(zap.String("addr", addr), zap.Int("db", db))

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	var err error
	for i := 0; i < 5; i++ {
		if err = rdb.Ping(ctx).Err(); err == nil {
			log.Info("[Redis] Connected to Redis")
			return rdb, nil
		}
		log.Warn("[Redis] Redis not ready, retrying in 2 seconds...", zap.Int("retry", i+1), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("connect redis: %w", err)
}
