package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/port"
)

// SlidingWindowConfig defines configuration for the sliding window limiter.
type SlidingWindowConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// RateLimitStore persists throttle attempts in Redis sorted sets. Each
// attempt becomes a member scored by its nanosecond timestamp, so trimming
// and counting a trailing window are plain score range operations.
type RateLimitStore struct {
	client *redis.Client
	cfg    SlidingWindowConfig
}

// NewRateLimitStore constructs a store using the provided Redis client and config.
func NewRateLimitStore(client *redis.Client, cfg SlidingWindowConfig) *RateLimitStore {
	return &RateLimitStore{client: client, cfg: cfg}
}

// RecordAttempt stores the provided timestamp within the rate limit window and applies TTL.
func (r *RateLimitStore) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	key := r.key(identifier)
	member := redis.Z{Score: float64(at.UnixNano()), Member: at.UnixNano()}

	if err := r.client.ZAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}

	if r.cfg.TTL > 0 {
		if err := r.client.Expire(ctx, key, r.cfg.TTL).Err(); err != nil {
			return fmt.Errorf("redis expire: %w", err)
		}
	}

	return nil
}

// SweepWindow removes attempts older than the window ending at the reference
// time and reports the remaining count together with the oldest survivor.
// The three Redis operations run in one pipeline round trip.
func (r *RateLimitStore) SweepWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) (port.WindowState, error) {
	if window <= 0 {
		return port.WindowState{}, errors.New("window must be positive")
	}

	key := r.key(identifier)
	min := fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano()))
	max := fmt.Sprintf("%f", float64(reference.UnixNano()))

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", min)
	count := pipe.ZCount(ctx, key, min, max)
	oldest := pipe.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:    min,
		Max:    max,
		Offset: 0,
		Count:  1,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return port.WindowState{}, fmt.Errorf("redis sweep window: %w", err)
	}

	state := port.WindowState{Attempts: int(count.Val())}

	if values := oldest.Val(); len(values) > 0 {
		ts, err := strconv.ParseInt(values[0], 10, 64)
		if err != nil {
			return port.WindowState{}, fmt.Errorf("parse timestamp: %w", err)
		}
		state.Oldest = time.Unix(0, ts)
	}

	return state, nil
}

func (r *RateLimitStore) key(identifier string) string {
	if r.cfg.KeyPrefix == "" {
		return identifier
	}
	return fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, identifier)
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
