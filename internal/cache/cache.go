// Package cache keeps rendered PNGs in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/fenpix/internal/fen"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fenpix:png:"

type PNGCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New wraps an existing client. A zero ttl stores entries without expiry.
func New(rdb *redis.Client, ttl time.Duration) *PNGCache {
	return &PNGCache{rdb: rdb, ttl: ttl}
}

// Dial connects to a redis:// or rediss:// URL and pings it.
func Dial(ctx context.Context, redisURL string, ttl time.Duration) (*PNGCache, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("REDIS_URL required for PNG cache")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, ttl), nil
}

func (c *PNGCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Key identifies a render. Only the fields that change the image take part, so records
// that differ in castling rights or move counters share an entry.
func Key(assetID string, pos *fen.Position, upscale int) string {
	h := sha256.New()
	h.Write([]byte(assetID))
	h.Write([]byte{0})
	h.Write([]byte(pos.Board))
	h.Write([]byte{0})
	h.Write([]byte(pos.Side))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(upscale)))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get은 캐시된 PNG를 반환. miss면 ok=false.
func (c *PNGCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *PNGCache) Set(ctx context.Context, key string, png []byte) error {
	return c.rdb.Set(ctx, key, png, c.ttl).Err()
}
