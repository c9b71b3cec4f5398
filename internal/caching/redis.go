package caching

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/fd1az/price-getter/internal/apperror"
)

// redisStore is the subset of the go-redis client the strategy needs.
type redisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisConfig configures the shared strategy.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	BlockTTL  time.Duration
}

// Redis shares entries between processes. Coalescing is per process.
type Redis struct {
	store    redisStore
	prefix   string
	clock    BlockClock
	blockTTL time.Duration
	group    singleflight.Group
	metrics  *strategyMetrics
}

var _ Strategy = (*Redis)(nil)

// NewRedis connects a go-redis client.
func NewRedis(cfg RedisConfig, clock BlockClock) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedis(client, cfg, clock)
}

func newRedis(store redisStore, cfg RedisConfig, clock BlockClock) (*Redis, error) {
	m, err := newStrategyMetrics("redis")
	if err != nil {
		return nil, err
	}
	if cfg.BlockTTL <= 0 {
		cfg.BlockTTL = time.Minute
	}

	return &Redis{
		store:    store,
		prefix:   cfg.KeyPrefix,
		clock:    clock,
		blockTTL: cfg.BlockTTL,
		metrics:  m,
	}, nil
}

// GetOrSet reads the shared entry, or produces and writes it.
func (r *Redis) GetOrSet(ctx context.Context, key Key, policy Policy, produce Producer) ([]byte, error) {
	if policy.IsNone() {
		return produce(ctx)
	}

	block, err := resolveBlock(ctx, r.clock, policy)
	if err != nil {
		return nil, err
	}

	if v, ok, err := r.lookup(ctx, key, policy, block); err != nil {
		return nil, err
	} else if ok {
		r.metrics.hits.Add(ctx, 1, r.metrics.attribute)
		return v, nil
	}
	r.metrics.misses.Add(ctx, 1, r.metrics.attribute)

	v, err := share(ctx, &r.group, flightKey(key, block), func(ctx context.Context) ([]byte, error) {
		r.metrics.produced.Add(ctx, 1, r.metrics.attribute)
		val, err := produce(ctx)
		if err != nil {
			return nil, err
		}

		rec := record{Value: val}
		ttl := policy.TTL()
		if policy.PerBlock() {
			rec.Block, rec.Pinned, ttl = block, true, r.blockTTL
		}

		payload, err := json.Marshal(rec)
		if err != nil {
			return nil, apperror.New(apperror.CodeCacheCodecError, apperror.WithCause(err))
		}
		if err := r.store.Set(ctx, r.redisKey(key), payload, ttl).Err(); err != nil {
			return nil, apperror.External(apperror.CodeCacheBackendError, "SET "+r.redisKey(key), err)
		}

		return val, nil
	})
	if err != nil {
		return nil, err
	}

	return v, nil
}

func (r *Redis) lookup(ctx context.Context, key Key, policy Policy, block uint64) ([]byte, bool, error) {
	raw, err := r.store.Get(ctx, r.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperror.External(apperror.CodeCacheBackendError, "GET "+r.redisKey(key), err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// A foreign or corrupt value is treated as a miss and overwritten.
		return nil, false, nil
	}
	if !rec.validFor(policy, block) {
		return nil, false, nil
	}
	return rec.Value, true, nil
}

func (r *Redis) redisKey(key Key) string {
	return r.prefix + key.String()
}

// Ping checks the backend, for health checks.
func (r *Redis) Ping(ctx context.Context) error {
	if p, ok := r.store.(interface {
		Ping(ctx context.Context) *redis.StatusCmd
	}); ok {
		return p.Ping(ctx).Err()
	}
	return nil
}

// Close releases the client.
func (r *Redis) Close() error {
	if c, ok := r.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
