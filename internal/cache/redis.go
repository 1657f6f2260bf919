package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gameboxr/internal/config"
	"gameboxr/pkg/models"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned when a key is absent
var ErrCacheMiss = errors.New("key not found")

// ErrCorruptValue is returned when a stored value does not decode
var ErrCorruptValue = errors.New("corrupt cached value")

// Cache interface defines caching operations
type Cache interface {
	// OAuth2 state management
	SetOAuth2State(ctx context.Context, state string, expiration time.Duration) error
	ValidateOAuth2State(ctx context.Context, state string) bool

	// Upstream catalog pages, keyed by page and page size
	SetCatalogPage(ctx context.Context, page, pageSize int, games []models.GameSummary, expiration time.Duration) error
	GetCatalogPage(ctx context.Context, page, pageSize int) ([]models.GameSummary, error)
	InvalidateCatalog(ctx context.Context) error

	// Generic operations
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// RedisCache implements caching using Redis
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// Ensure RedisCache implements Cache interface
var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(ctx context.Context, addr string, cfg config.RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis", zap.String("addr", rdb.Options().Addr))

	return NewRedisCacheFromClient(rdb, logger), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
	}
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Set stores a value in Redis
func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return r.client.Set(ctx, key, data, expiration).Err()
}

// Get retrieves a value from Redis
func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptValue, err)
	}
	return nil
}

// Delete removes a key from Redis
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// SetOAuth2State stores an OAuth2 state
func (r *RedisCache) SetOAuth2State(ctx context.Context, state string, expiration time.Duration) error {
	stateKey := fmt.Sprintf("oauth2:state:%s", state)
	return r.client.Set(ctx, stateKey, "valid", expiration).Err()
}

// validateStateScript atomically checks and deletes a state key
var validateStateScript = redis.NewScript(`
	if redis.call("exists", KEYS[1]) == 1 then
		redis.call("del", KEYS[1])
		return 1
	else
		return 0
	end
`)

// ValidateOAuth2State validates and removes an OAuth2 state
func (r *RedisCache) ValidateOAuth2State(ctx context.Context, state string) bool {
	stateKey := fmt.Sprintf("oauth2:state:%s", state)

	result, err := validateStateScript.Run(ctx, r.client, []string{stateKey}).Int64()
	if err != nil {
		r.logger.Warn("Failed to validate OAuth2 state", zap.Error(err))
		return false
	}

	return result == 1
}

func catalogKey(page, pageSize int) string {
	return fmt.Sprintf("catalog:page:%d:%d", pageSize, page)
}

// SetCatalogPage caches one normalized upstream page
func (r *RedisCache) SetCatalogPage(ctx context.Context, page, pageSize int, games []models.GameSummary, expiration time.Duration) error {
	return r.Set(ctx, catalogKey(page, pageSize), games, expiration)
}

// GetCatalogPage retrieves a cached upstream page. An entry that no longer
// decodes is dropped and reported as a miss.
func (r *RedisCache) GetCatalogPage(ctx context.Context, page, pageSize int) ([]models.GameSummary, error) {
	key := catalogKey(page, pageSize)
	var games []models.GameSummary
	err := r.Get(ctx, key, &games)
	if errors.Is(err, ErrCorruptValue) {
		r.logger.Warn("Dropping corrupt catalog page", zap.String("key", key), zap.Error(err))
		if delErr := r.Delete(ctx, key); delErr != nil {
			r.logger.Warn("Failed to drop corrupt catalog page", zap.String("key", key), zap.Error(delErr))
		}
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return games, nil
}

// InvalidateCatalog removes every cached catalog page
func (r *RedisCache) InvalidateCatalog(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, "catalog:page:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan catalog keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
