// Package xexchange reads pool data from the xExchange router and pair contracts.
package xexchange

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/price-getter/business/pricing/app"
	"github.com/fd1az/price-getter/business/pricing/domain"
	"github.com/fd1az/price-getter/internal/caching"
	"github.com/fd1az/price-getter/internal/logger"
	"github.com/fd1az/price-getter/internal/mvx"
)

const (
	tracerName = "xexchange"

	fnGetPair    = "getPair"
	fnGetReserve = "getReserve"

	// DefaultPairCacheTTL keeps pool addresses for a year; pools are never redeployed.
	DefaultPairCacheTTL = 365 * 24 * time.Hour
)

// Ensure Router implements PairLocator.
var _ app.PairLocator = (*Router)(nil)

// Router resolves pool addresses through the router's getPair view.
type Router struct {
	address  mvx.Address
	executor mvx.QueryExecutor
	logger   logger.LoggerInterface
	tracer   trace.Tracer
}

// NewRouter creates a Router. Answers are cached for pairTTL under strategy.
func NewRouter(address mvx.Address, executor mvx.QueryExecutor, strategy caching.Strategy, pairTTL time.Duration, log logger.LoggerInterface) *Router {
	if pairTTL <= 0 {
		pairTTL = DefaultPairCacheTTL
	}
	return &Router{
		address:  address,
		executor: mvx.NewCachedExecutor(executor, strategy, caching.For(pairTTL)),
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
}

// Address returns the router contract.
func (r *Router) Address() mvx.Address {
	return r.address
}

// GetPair returns the pool for first/second. A zero-address answer means the
// router has no such pool and yields PAIR_NOT_FOUND; any other failure is
// returned unchanged.
func (r *Router) GetPair(ctx context.Context, first, second domain.TokenIdentifier) (domain.PairAddress, error) {
	ctx, span := r.tracer.Start(ctx, "xexchange.get_pair",
		trace.WithAttributes(
			attribute.String("first", string(first)),
			attribute.String("second", string(second)),
		),
	)
	defer span.End()

	pair, err := r.getPair(ctx, first, second)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return mvx.ZeroAddress, err
	}

	span.SetAttributes(attribute.String("pair", pair.Bech32()))
	return pair, nil
}

func (r *Router) getPair(ctx context.Context, first, second domain.TokenIdentifier) (mvx.Address, error) {
	q := mvx.NewQuery(r.address, fnGetPair, mvx.StringArg(string(first)), mvx.StringArg(string(second)))

	data, err := r.executor.Execute(ctx, q)
	if err != nil {
		return mvx.ZeroAddress, err
	}

	raw, err := mvx.Single(data, fnGetPair)
	if err != nil {
		return mvx.ZeroAddress, err
	}

	pair, err := mvx.DecodeAddress(raw)
	if err != nil {
		return mvx.ZeroAddress, err
	}

	if pair.IsZero() {
		r.logger.Debug(ctx, "no pool for pair", "first", first, "second", second)
		return mvx.ZeroAddress, domain.NewPairNotFound(first, second)
	}
	return pair, nil
}
