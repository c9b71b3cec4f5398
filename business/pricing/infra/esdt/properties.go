// Package esdt reads token metadata from the ESDT system smart contract.
package esdt

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/fd1az/price-getter/business/pricing/app"
	"github.com/fd1az/price-getter/business/pricing/domain"
	"github.com/fd1az/price-getter/internal/apperror"
	"github.com/fd1az/price-getter/internal/asset"
	"github.com/fd1az/price-getter/internal/cache"
	"github.com/fd1az/price-getter/internal/caching"
	"github.com/fd1az/price-getter/internal/logger"
	"github.com/fd1az/price-getter/internal/mvx"
)

const (
	fnGetTokenProperties = "getTokenProperties"
	numDecimalsPrefix    = "NumDecimals-"

	// DefaultTokenTTL bounds how long decimals read from chain are trusted.
	DefaultTokenTTL = 24 * time.Hour

	decimalsCapacity = 4096
)

// SystemContract is the ESDT issuance contract on the metachain.
var SystemContract = mvx.MustParseAddress("erd1qqqqqqqqqqqqqqqpqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqzllls8a5w6u")

// Ensure Properties implements DecimalsProvider.
var _ app.DecimalsProvider = (*Properties)(nil)

// Properties resolves token decimals from the asset registry first and the
// ESDT system contract second.
type Properties struct {
	registry *asset.Registry
	executor mvx.QueryExecutor
	logger   logger.LoggerInterface

	decimals *cache.Cache[domain.TokenIdentifier, uint8]
	ttl      time.Duration
}

// NewProperties creates a decimals provider. On-chain answers are cached for tokenTTL.
func NewProperties(registry *asset.Registry, executor mvx.QueryExecutor, strategy caching.Strategy, tokenTTL time.Duration, log logger.LoggerInterface) *Properties {
	return newProperties(registry, executor, strategy, tokenTTL, log)
}

func newProperties(registry *asset.Registry, executor mvx.QueryExecutor, strategy caching.Strategy, tokenTTL time.Duration, log logger.LoggerInterface, opts ...cache.Option) *Properties {
	if registry == nil {
		registry = asset.NewRegistry()
	}
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Properties{
		registry: registry,
		executor: mvx.NewCachedExecutor(executor, strategy, caching.For(tokenTTL)),
		logger:   log,
		decimals: cache.New[domain.TokenIdentifier, uint8](0, append([]cache.Option{cache.WithCapacity(decimalsCapacity)}, opts...)...),
		ttl:      tokenTTL,
	}
}

// Decimals returns the number of decimals of id.
func (p *Properties) Decimals(ctx context.Context, id domain.TokenIdentifier) (uint8, error) {
	if d, ok := p.registry.Decimals(id); ok {
		return d, nil
	}

	if d, ok := p.decimals.Get(ctx, id); ok {
		return d, nil
	}

	d, err := p.fetch(ctx, id)
	if err != nil {
		return 0, err
	}

	p.decimals.Set(ctx, id, d, p.ttl)

	p.logger.Debug(ctx, "token decimals resolved on chain", "token", id, "decimals", d)
	return d, nil
}

func (p *Properties) fetch(ctx context.Context, id domain.TokenIdentifier) (uint8, error) {
	data, err := p.executor.Execute(ctx, mvx.NewQuery(SystemContract, fnGetTokenProperties, mvx.StringArg(string(id))))
	if err != nil {
		return 0, apperror.External(apperror.CodeTokenPropertiesFailed, string(id), err)
	}

	d, ok := ParseNumDecimals(data)
	if !ok {
		return 0, apperror.New(apperror.CodeTokenPropertiesFailed,
			apperror.WithContext(string(id)+": no "+numDecimalsPrefix+" field"))
	}
	return d, nil
}

// ParseNumDecimals finds the "NumDecimals-<n>" field in a getTokenProperties answer.
func ParseNumDecimals(fields [][]byte) (uint8, bool) {
	for _, f := range fields {
		s := string(f)
		if !strings.HasPrefix(s, numDecimalsPrefix) {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(s, numDecimalsPrefix), 10, 8)
		if err != nil {
			return 0, false
		}
		return uint8(n), true
	}
	return 0, false
}
