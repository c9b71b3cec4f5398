package app

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/price-getter/business/pricing/domain"
	"github.com/fd1az/price-getter/internal/apperror"
	"github.com/fd1az/price-getter/internal/asset"
	"github.com/fd1az/price-getter/internal/logger"
)

const (
	tracerName = "pricing"
	meterName  = "pricing"

	defaultSnapshotConcurrency = 4
)

// Settings fixes the tokens every price is expressed through.
type Settings struct {
	// Anchor is the USD-pegged token; its price is exactly 1.
	Anchor domain.Token
	// Bridge is paired with the anchor and with every other priced token.
	Bridge domain.Token
	// SnapshotConcurrency bounds parallel resolutions in Snapshot.
	SnapshotConcurrency int
}

type serviceMetrics struct {
	resolutions       metric.Int64Counter
	resolutionLatency metric.Float64Histogram
}

// PriceService resolves USD prices from xExchange pool reserves.
type PriceService struct {
	pairs    PairLocator
	reserves ReserveReader
	decimals DecimalsProvider
	settings Settings
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewPriceService creates a PriceService. It is safe for concurrent use.
func NewPriceService(settings Settings, pairs PairLocator, reserves ReserveReader, decimals DecimalsProvider, log logger.LoggerInterface) (*PriceService, error) {
	if settings.Anchor.ID == "" || settings.Bridge.ID == "" {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("anchor and bridge tokens are required"))
	}
	if settings.Anchor.ID == settings.Bridge.ID {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("anchor and bridge must differ"))
	}
	if settings.SnapshotConcurrency <= 0 {
		settings.SnapshotConcurrency = defaultSnapshotConcurrency
	}

	s := &PriceService{
		pairs:    pairs,
		reserves: reserves,
		decimals: decimals,
		settings: settings,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return s, nil
}

func (s *PriceService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.resolutions, err = meter.Int64Counter(
		"pricing_resolutions_total",
		metric.WithDescription("Price resolutions by outcome"),
	)
	if err != nil {
		return err
	}

	s.metrics.resolutionLatency, err = meter.Float64Histogram(
		"pricing_resolution_latency_ms",
		metric.WithDescription("Price resolution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Settings returns the anchor and bridge configuration.
func (s *PriceService) Settings() Settings {
	return s.settings
}

// GetFungiblePrice returns the USD price of one whole unit of id.
func (s *PriceService) GetFungiblePrice(ctx context.Context, id domain.TokenIdentifier, decimals uint8) (domain.Price, error) {
	q, err := s.Quote(ctx, domain.NewToken(id, decimals))
	if err != nil {
		return domain.Price{}, err
	}
	return q.Price, nil
}

// GetPrice looks the token's decimals up, then prices it.
func (s *PriceService) GetPrice(ctx context.Context, id domain.TokenIdentifier) (domain.Price, error) {
	q, err := s.quoteByID(ctx, id)
	if err != nil {
		return domain.Price{}, err
	}
	return q.Price, nil
}

func (s *PriceService) quoteByID(ctx context.Context, id domain.TokenIdentifier) (domain.Quote, error) {
	decimals, err := s.decimals.Decimals(ctx, id)
	if err != nil {
		return domain.Quote{}, s.fail(ctx, err)
	}
	return s.Quote(ctx, domain.NewToken(id, decimals))
}

// Quote prices token and reports the pool state behind the price.
//
// The anchor is 1. The bridge is the inverse of its rate against the anchor.
// Any other token is its rate against the bridge times the bridge price, so a
// resolution never needs more than two pools.
func (s *PriceService) Quote(ctx context.Context, token domain.Token) (domain.Quote, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.quote",
		trace.WithAttributes(
			attribute.String("token", string(token.ID)),
			attribute.Int("decimals", int(token.Decimals)),
		),
	)
	defer span.End()

	start := time.Now()
	q, err := s.quote(ctx, token)
	s.metrics.resolutionLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if err != nil {
		s.metrics.resolutions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", string(apperror.GetCode(err))),
		))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug(ctx, "price resolution failed",
			"token", token.ID,
			"error", err,
		)
		return domain.Quote{}, err
	}

	s.metrics.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	span.SetAttributes(attribute.String("price", q.Price.String()))
	span.SetStatus(codes.Ok, "price resolved")
	s.logger.Debug(ctx, "price resolved",
		"token", token.ID,
		"price", q.Price.String(),
		"pair", q.Pair.Bech32(),
	)
	return q, nil
}

func (s *PriceService) quote(ctx context.Context, token domain.Token) (domain.Quote, error) {
	anchor, bridge := s.settings.Anchor, s.settings.Bridge

	if token.ID == anchor.ID {
		return domain.Quote{
			Token:       token,
			Counterpart: anchor,
			Price:       domain.One(),
			Timestamp:   time.Now(),
		}, nil
	}

	if token.ID == bridge.ID {
		leg, err := s.pool(ctx, anchor)
		if err != nil {
			return domain.Quote{}, err
		}
		return leg.quote(bridge, leg.rate.Inv()), nil
	}

	leg, err := s.pool(ctx, token)
	if err != nil {
		return domain.Quote{}, err
	}
	bridgeLeg, err := s.pool(ctx, anchor)
	if err != nil {
		return domain.Quote{}, err
	}

	bridgeUSD := bridgeLeg.rate.Inv()
	return leg.quote(token, bridgeUSD.Mul(leg.rate)), nil
}

// poolLeg is one bridge/counterpart pool read at a single point in time.
type poolLeg struct {
	bridge             domain.Token
	counterpart        domain.Token
	pair               domain.PairAddress
	bridgeReserve      *big.Int
	counterpartReserve *big.Int
	rate               domain.Price
}

func (l poolLeg) quote(token domain.Token, price domain.Price) domain.Quote {
	return domain.Quote{
		Token:              token,
		Counterpart:        l.counterpart,
		Pair:               l.pair,
		BridgeReserve:      asset.NewAmount(asset.NewAsset(l.bridge.ID, "", l.bridge.Decimals), l.bridgeReserve),
		CounterpartReserve: asset.NewAmount(asset.NewAsset(l.counterpart.ID, "", l.counterpart.Decimals), l.counterpartReserve),
		Price:              price,
		Timestamp:          time.Now(),
	}
}

// pool locates the bridge/counterpart pool and reads both reserves concurrently.
func (s *PriceService) pool(ctx context.Context, counterpart domain.Token) (poolLeg, error) {
	bridge := s.settings.Bridge

	pair, err := s.pairs.GetPair(ctx, bridge.ID, counterpart.ID)
	if err != nil {
		return poolLeg{}, s.fail(ctx, err)
	}

	var bridgeReserve, counterpartReserve *big.Int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.reserves.GetReserve(gctx, pair, bridge.ID)
		if err != nil {
			return err
		}
		bridgeReserve = r
		return nil
	})
	g.Go(func() error {
		r, err := s.reserves.GetReserve(gctx, pair, counterpart.ID)
		if err != nil {
			return err
		}
		counterpartReserve = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return poolLeg{}, s.fail(ctx, err)
	}

	rate, err := domain.ExchangeRate(bridge, counterpart, bridgeReserve, counterpartReserve)
	if err != nil {
		return poolLeg{}, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext(pair.Bech32()),
			apperror.WithCause(err))
	}

	return poolLeg{
		bridge:             bridge,
		counterpart:        counterpart,
		pair:               pair,
		bridgeReserve:      bridgeReserve,
		counterpartReserve: counterpartReserve,
		rate:               rate,
	}, nil
}

// fail reports collaborator errors unchanged unless the caller gave up.
func (s *PriceService) fail(ctx context.Context, err error) error {
	if cancelled := apperror.Cancelled(ctx, err); cancelled != nil {
		return cancelled
	}
	return err
}

// Snapshot prices ids in parallel. Per-token failures are collected, not fatal;
// only cancellation aborts the batch.
func (s *PriceService) Snapshot(ctx context.Context, ids []domain.TokenIdentifier) (*domain.PriceSnapshot, error) {
	snap := &domain.PriceSnapshot{
		ID:     uuid.NewString(),
		Quotes: make([]domain.Quote, len(ids)),
		Errors: make(map[domain.TokenIdentifier]error),
	}

	var mu sync.Mutex
	ok := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.SnapshotConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			q, err := s.quoteByID(gctx, id)
			if err != nil {
				if apperror.HasCode(err, apperror.CodeRequestCancelled) {
					return err
				}
				mu.Lock()
				snap.Errors[id] = err
				mu.Unlock()
				return nil
			}
			snap.Quotes[i] = q
			ok[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	quotes := snap.Quotes[:0]
	for i, q := range snap.Quotes {
		if ok[i] {
			quotes = append(quotes, q)
		}
	}
	snap.Quotes = quotes
	snap.Timestamp = time.Now()

	s.logger.Info(ctx, "price snapshot",
		"snapshot", snap.ID,
		"priced", len(snap.Quotes),
		"failed", len(snap.Errors),
	)
	return snap, nil
}
