package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"factcheck_gateway/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// VerificationCache хранит результаты проверок по ключу отпечатка.
// Ошибки чтения не пробрасываются: кэш лишь ускоряет работу.
type VerificationCache interface {
	Get(ctx context.Context, key string) (*model.VerificationResult, bool)
	Set(ctx context.Context, key string, result *model.VerificationResult, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool
}

// redisClient подмножество *redis.Client, которое нужно кэшу
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

type verificationCache struct {
	rdb    redisClient
	logger *zap.Logger
}

func NewVerificationCache(rdb *redis.Client, logger *zap.Logger) VerificationCache {
	return newVerificationCache(rdb, logger)
}

func newVerificationCache(rdb redisClient, logger *zap.Logger) *verificationCache {
	return &verificationCache{
		rdb:    rdb,
		logger: logger,
	}
}

// Get возвращает результат из кэша; любая ошибка трактуется как промах
func (c *verificationCache) Get(ctx context.Context, key string) (*model.VerificationResult, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.logger.Debug("cache miss", zap.String("key", key))
		} else {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var result model.VerificationResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("cache entry is not valid json", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	if !result.Complete() {
		c.logger.Warn("cache entry is incomplete", zap.String("key", key))
		return nil, false
	}

	c.logger.Debug("cache hit", zap.String("key", key))
	return &result, true
}

func (c *verificationCache) Set(ctx context.Context, key string, result *model.VerificationResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("failed to marshal cache entry", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Error("cache set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to set cache entry %s: %w", key, err)
	}

	return nil
}

func (c *verificationCache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logger.Error("cache delete failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

func (c *verificationCache) Exists(ctx context.Context, key string) bool {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		c.logger.Error("cache exists failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return n == 1
}
