package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Revoker = (*RedisRevoker)(nil)

const revokedKeyPrefix = "revoked:"

// RedisRevoker stores revoked token IDs in Redis. Each key expires when the
// token does, so the set never grows beyond the live tokens.
type RedisRevoker struct {
	rdb *redis.Client
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisRevoker connects to Redis and checks the connection with PING.
func NewRedisRevoker(ctx context.Context, opts RedisOptions) (*RedisRevoker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("auth: connecting to redis at %s: %w", opts.Addr, err)
	}

	return &RedisRevoker{rdb: rdb}, nil
}

// Revoke marks tokenID as revoked until the given time. Tokens that have
// already expired are ignored.
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	if err := r.rdb.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("auth: revoking token %s: %w", tokenID, err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been revoked.
func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := r.rdb.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("auth: checking token %s: %w", tokenID, err)
	}
	return n > 0, nil
}

// Close closes the Redis client.
func (r *RedisRevoker) Close() error {
	return r.rdb.Close()
}
