package caching

import (
	"bytes"
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/fd1az/price-getter/internal/cache"
)

const meterName = "caching"

// strategyMetrics holds OTEL metric instruments shared by strategies.
type strategyMetrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	produced  metric.Int64Counter
	attribute metric.MeasurementOption
}

func newStrategyMetrics(strategy string) (*strategyMetrics, error) {
	meter := otel.Meter(meterName)
	m := &strategyMetrics{
		attribute: metric.WithAttributes(attribute.String("strategy", strategy)),
	}

	var err error
	m.hits, err = meter.Int64Counter("cache_hits_total",
		metric.WithDescription("Cache lookups served from a live entry"))
	if err != nil {
		return nil, err
	}

	m.misses, err = meter.Int64Counter("cache_misses_total",
		metric.WithDescription("Cache lookups without a live entry"))
	if err != nil {
		return nil, err
	}

	m.produced, err = meter.Int64Counter("cache_producer_runs_total",
		metric.WithDescription("Producer executions after coalescing"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// LocalConfig configures the in-process strategy.
type LocalConfig struct {
	Capacity        int
	CleanupInterval time.Duration
	// BlockTTL bounds how long per-block entries are kept if the clock stalls.
	BlockTTL time.Duration
	// Now overrides time.Now, for tests.
	Now func() time.Time
}

// DefaultLocalConfig returns defaults for a single process.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		Capacity:        cache.DefaultCapacity,
		CleanupInterval: time.Minute,
		BlockTTL:        time.Minute,
	}
}

// Local keeps entries in process memory.
type Local struct {
	store    *cache.Cache[Key, record]
	clock    BlockClock
	blockTTL time.Duration
	group    singleflight.Group
	metrics  *strategyMetrics
}

var _ Strategy = (*Local)(nil)

// NewLocal creates an in-memory strategy. clock may be nil when no per-block policy is used.
func NewLocal(cfg LocalConfig, clock BlockClock) (*Local, error) {
	m, err := newStrategyMetrics("local")
	if err != nil {
		return nil, err
	}

	if cfg.BlockTTL <= 0 {
		cfg.BlockTTL = time.Minute
	}

	opts := []cache.Option{cache.WithCapacity(cfg.Capacity)}
	if cfg.Now != nil {
		opts = append(opts, cache.WithClock(cfg.Now))
	}

	return &Local{
		store:    cache.New[Key, record](cfg.CleanupInterval, opts...),
		clock:    clock,
		blockTTL: cfg.BlockTTL,
		metrics:  m,
	}, nil
}

// GetOrSet returns the live entry for key or runs produce once for all concurrent callers.
func (l *Local) GetOrSet(ctx context.Context, key Key, policy Policy, produce Producer) ([]byte, error) {
	if policy.IsNone() {
		return produce(ctx)
	}

	block, err := resolveBlock(ctx, l.clock, policy)
	if err != nil {
		return nil, err
	}

	if v, ok := l.lookup(ctx, key, policy, block); ok {
		l.metrics.hits.Add(ctx, 1, l.metrics.attribute)
		return v, nil
	}
	l.metrics.misses.Add(ctx, 1, l.metrics.attribute)

	v, err := share(ctx, &l.group, flightKey(key, block), func(ctx context.Context) ([]byte, error) {
		// Another flight may have filled the entry between lookup and share.
		if v, ok := l.lookup(ctx, key, policy, block); ok {
			return v, nil
		}

		l.metrics.produced.Add(ctx, 1, l.metrics.attribute)
		val, err := produce(ctx)
		if err != nil {
			return nil, err
		}

		rec := record{Value: bytes.Clone(val)}
		ttl := policy.TTL()
		if policy.PerBlock() {
			rec.Block, rec.Pinned, ttl = block, true, l.blockTTL
		}
		l.store.Set(ctx, key, rec, ttl)

		return val, nil
	})
	if err != nil {
		return nil, err
	}

	return bytes.Clone(v), nil
}

func (l *Local) lookup(ctx context.Context, key Key, policy Policy, block uint64) ([]byte, bool) {
	rec, ok := l.store.Get(ctx, key)
	if !ok || !rec.validFor(policy, block) {
		return nil, false
	}
	return bytes.Clone(rec.Value), true
}

// Len returns the number of stored entries.
func (l *Local) Len() int {
	return l.store.Len()
}

// Close stops the background sweeper.
func (l *Local) Close() error {
	l.store.Close()
	return nil
}
