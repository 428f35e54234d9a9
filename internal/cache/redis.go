package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/config"
	"github.com/medtext/radprep/internal/preprocess"
	"github.com/medtext/radprep/internal/rules"
)

// ResultCache shares preprocessing results between instances through
// Redis. It sits in front of the engine's in-process memoization and lets
// a fleet of replicas reuse each other's work.
type ResultCache struct {
	client *redis.Client
	config *config.RedisConfig
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewResultCache creates a new Redis-backed result cache
func NewResultCache(cfg *config.RedisConfig, logger *zap.Logger) (*ResultCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = cfg.MaxConnections
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	rc := &ResultCache{
		client: client,
		config: cfg,
		logger: logger,
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Result cache initialized successfully",
		zap.String("redis_url", maskRedisURL(cfg.URL)),
		zap.Int("max_connections", cfg.MaxConnections),
		zap.Duration("default_ttl", cfg.DefaultTTL))

	return rc, nil
}

// Get looks up a cached result for the given text and scope. A miss (or
// any Redis failure) returns nil, nil; lookup errors never fail a request.
func (rc *ResultCache) Get(ctx context.Context, text string, scope rules.Scope) ([]preprocess.Pair, error) {
	key := rc.resultKey(text, scope)

	data, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		rc.misses.Add(1)
		rc.logger.Debug("Result cache miss", zap.String("key", key))
		return nil, nil
	} else if err != nil {
		rc.logger.Error("Result cache lookup failed", zap.Error(err))
		return nil, nil
	}

	var cached CachedResult
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		rc.logger.Error("Failed to unmarshal cached result", zap.Error(err))
		// Delete corrupted cache entry
		rc.client.Del(ctx, key)
		return nil, nil
	}

	rc.hits.Add(1)
	rc.logger.Debug("Result cache hit",
		zap.String("key", key),
		zap.Int("pairs", len(cached.Pairs)))

	return cached.Pairs, nil
}

// Set stores a preprocessing result with the configured TTL
func (rc *ResultCache) Set(ctx context.Context, text string, scope rules.Scope, pairs []preprocess.Pair) error {
	key := rc.resultKey(text, scope)

	cached := CachedResult{
		Pairs:    pairs,
		CachedAt: time.Now(),
		TTL:      int64(rc.config.DefaultTTL.Seconds()),
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal result for caching: %w", err)
	}

	if err := rc.client.Set(ctx, key, data, rc.config.DefaultTTL).Err(); err != nil {
		rc.logger.Error("Failed to cache result", zap.Error(err))
		return fmt.Errorf("failed to cache result: %w", err)
	}

	return nil
}

// Clear removes every cached result under this cache's key prefix. Called
// after rule reloads so stale normalizations cannot be served.
func (rc *ResultCache) Clear(ctx context.Context) error {
	pattern := rc.config.KeyPrefix + ":result:*"

	iter := rc.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	// Delete keys in batches
	batchSize := 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		if err := rc.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			rc.logger.Error("Failed to delete cache keys", zap.Error(err))
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	rc.logger.Info("Result cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// GetStats returns cache performance statistics
func (rc *ResultCache) GetStats(ctx context.Context) (*Stats, error) {
	info, err := rc.client.Info(ctx, "memory", "stats").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis info: %w", err)
	}

	stats := &Stats{
		Hits:   rc.hits.Load(),
		Misses: rc.misses.Load(),
	}

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}

	// Parse memory usage from Redis info
	lines := strings.Split(info, "\r\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "used_memory:") {
			if memStr := strings.TrimPrefix(line, "used_memory:"); memStr != "" {
				if mem, err := strconv.ParseInt(memStr, 10, 64); err == nil {
					stats.MemoryUsage = mem
				}
			}
		}
	}

	keys, err := rc.client.DBSize(ctx).Result()
	if err == nil {
		stats.TotalKeys = keys
	}

	return stats, nil
}

// Close closes the Redis connection
func (rc *ResultCache) Close() error {
	if rc.client != nil {
		return rc.client.Close()
	}
	return nil
}

// resultKey derives the cache key for a (scope, text) pair. Report text is
// hashed so the key stays bounded and the raw text never reaches Redis
// key space.
func (rc *ResultCache) resultKey(text string, scope rules.Scope) string {
	sum := sha256.Sum256([]byte(text))
	hash := hex.EncodeToString(sum[:])
	return fmt.Sprintf("%s:result:%s:%s:%s", rc.config.KeyPrefix, scope.Version, scope.Modality, hash[:16])
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
