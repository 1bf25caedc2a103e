package stash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EgoistMa/tokomo-app/internal/config"
	"github.com/EgoistMa/tokomo-app/internal/model"
)

const keyPrefix = "tokomo:search:"

// Redis is a Stash shared by every bot replica.
type Redis struct {
	rdb *redis.Client
}

// NewRedis connects to Redis and pings it.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func userPrefix(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10) + ":"
}

func redisKey(userID int64, keyword string) string {
	return userPrefix(userID) + normalize(keyword)
}

func (r *Redis) Put(ctx context.Context, userID int64, keyword string, games []model.Game, ttl time.Duration) error {
	payload, err := json.Marshal(games)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := r.rdb.Set(ctx, redisKey(userID, keyword), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to stash results: %w", err)
	}
	return nil
}

func (r *Redis) Take(ctx context.Context, userID int64, keyword string) ([]model.Game, bool, error) {
	payload, err := r.rdb.GetDel(ctx, redisKey(userID, keyword)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to take results: %w", err)
	}

	var games []model.Game
	if err := json.Unmarshal(payload, &games); err != nil {
		return nil, false, fmt.Errorf("failed to decode results: %w", err)
	}
	return games, true, nil
}

// Clear deletes every stashed search of the user.
func (r *Redis) Clear(ctx context.Context, userID int64) error {
	var cursor uint64
	match := userPrefix(userID) + "*"
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, match, 200).Result()
		if err != nil {
			return fmt.Errorf("failed to scan stash: %w", err)
		}
		if len(keys) > 0 {
			if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to clear stash: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Ping reports whether Redis is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
