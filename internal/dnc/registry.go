package dnc

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/callwarden/callwarden/internal/config"
	"github.com/callwarden/callwarden/internal/logger"
)

const keyPrefix = "dnc:"

// Registry is a Redis-backed Do-Not-Call list. A listed number supplements
// the caller-supplied metadata flag, so a stale client cannot hide a known
// listing.
type Registry struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// New connects to Redis and verifies the connection
func New(cfg *config.DNCConfig, log *logger.Logger) (*Registry, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log = log.WithComponent("dnc")
	log.Info("DNC registry connected",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.Duration("ttl", cfg.TTL))

	return &Registry{client: client, ttl: cfg.TTL, logger: log}, nil
}

// Lookup reports whether the number is on the Do-Not-Call list. Lookup
// failures are logged and treated as not listed, so a cache outage never
// blocks evaluation.
func (r *Registry) Lookup(ctx context.Context, phone string) bool {
	key := keyPrefix + normalizePhone(phone)

	_, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		r.logger.Error("DNC lookup failed", zap.Error(err))
		return false
	}

	r.logger.Debug("DNC hit", zap.String("key", key))
	return true
}

// Mark records the number as listed for the configured TTL
func (r *Registry) Mark(ctx context.Context, phone string) error {
	key := keyPrefix + normalizePhone(phone)
	if err := r.client.Set(ctx, key, "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark number: %w", err)
	}
	return nil
}

// Close releases the Redis connection
func (r *Registry) Close() error {
	return r.client.Close()
}

// normalizePhone strips formatting so lookups match regardless of how the
// dialer formatted the number.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// maskRedisURL hides credentials when logging connection strings
func maskRedisURL(redisURL string) string {
	u, err := url.Parse(redisURL)
	if err != nil {
		return "invalid-url"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}
