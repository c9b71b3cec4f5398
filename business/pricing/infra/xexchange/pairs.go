package xexchange

import (
	"context"
	"math/big"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/price-getter/business/pricing/app"
	"github.com/fd1az/price-getter/business/pricing/domain"
	"github.com/fd1az/price-getter/internal/caching"
	"github.com/fd1az/price-getter/internal/mvx"
)

// Ensure Pairs implements ReserveReader.
var _ app.ReserveReader = (*Pairs)(nil)

// Pairs reads reserves from pair contracts. Reserves move every block, so
// answers are cached until the next block only.
type Pairs struct {
	executor mvx.QueryExecutor
	tracer   trace.Tracer
}

// NewPairs creates a reserve reader.
func NewPairs(executor mvx.QueryExecutor, strategy caching.Strategy) *Pairs {
	return &Pairs{
		executor: mvx.NewCachedExecutor(executor, strategy, caching.UntilNextBlock()),
		tracer:   otel.Tracer(tracerName),
	}
}

// GetReserve returns the pool's balance of token. An empty answer is zero.
func (p *Pairs) GetReserve(ctx context.Context, pair domain.PairAddress, token domain.TokenIdentifier) (*big.Int, error) {
	ctx, span := p.tracer.Start(ctx, "xexchange.get_reserve",
		trace.WithAttributes(
			attribute.String("pair", pair.Bech32()),
			attribute.String("token", string(token)),
		),
	)
	defer span.End()

	reserve, err := p.getReserve(ctx, pair, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("reserve", reserve.String()))
	return reserve, nil
}

func (p *Pairs) getReserve(ctx context.Context, pair domain.PairAddress, token domain.TokenIdentifier) (*big.Int, error) {
	data, err := p.executor.Execute(ctx, mvx.NewQuery(pair, fnGetReserve, mvx.StringArg(string(token))))
	if err != nil {
		return nil, err
	}

	raw, err := mvx.Single(data, fnGetReserve)
	if err != nil {
		return nil, err
	}
	return mvx.DecodeBigUint(raw), nil
}
