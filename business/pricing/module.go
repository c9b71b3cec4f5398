// Package pricing implements the pricing bounded context: USD prices of
// xExchange tokens derived from pool reserves.
package pricing

import (
	"context"

	blockchainDI "github.com/fd1az/price-getter/business/blockchain/di"
	"github.com/fd1az/price-getter/business/pricing/app"
	pricingDI "github.com/fd1az/price-getter/business/pricing/di"
	"github.com/fd1az/price-getter/business/pricing/domain"
	"github.com/fd1az/price-getter/business/pricing/infra/esdt"
	"github.com/fd1az/price-getter/business/pricing/infra/xexchange"
	"github.com/fd1az/price-getter/internal/asset"
	"github.com/fd1az/price-getter/internal/caching"
	"github.com/fd1az/price-getter/internal/config"
	"github.com/fd1az/price-getter/internal/di"
	"github.com/fd1az/price-getter/internal/logger"
	"github.com/fd1az/price-getter/internal/monolith"
	"github.com/fd1az/price-getter/internal/mvx"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register CacheStrategy (private - clocked by the blockchain module)
	di.RegisterToken(c, pricingDI.CacheStrategy, func(sr di.ServiceRegistry) caching.Strategy {
		cfg := sr.Get("config").(*config.Config)
		clock := blockchainDI.GetBlockchainService(sr)

		strategy, err := NewCacheStrategy(cfg.Cache, clock)
		if err != nil {
			panic("failed to create cache strategy: " + err.Error())
		}
		return strategy
	})

	// Register PairLocator (private - xExchange router)
	di.RegisterToken(c, pricingDI.PairLocator, func(sr di.ServiceRegistry) app.PairLocator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		executor := sr.Get("executor").(mvx.QueryExecutor)

		return xexchange.NewRouter(cfg.XExchange.Router(), executor,
			pricingDI.GetCacheStrategy(sr), cfg.XExchange.PairCacheTTL, log)
	})

	// Register ReserveReader (private - xExchange pairs)
	di.RegisterToken(c, pricingDI.ReserveReader, func(sr di.ServiceRegistry) app.ReserveReader {
		executor := sr.Get("executor").(mvx.QueryExecutor)
		return xexchange.NewPairs(executor, pricingDI.GetCacheStrategy(sr))
	})

	// Register DecimalsProvider (private - registry, then ESDT system contract)
	di.RegisterToken(c, pricingDI.DecimalsProvider, func(sr di.ServiceRegistry) app.DecimalsProvider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		executor := sr.Get("executor").(mvx.QueryExecutor)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		return esdt.NewProperties(registry, executor, pricingDI.GetCacheStrategy(sr), cfg.Cache.TokenTTL, log)
	})

	// Register PriceService (public - exposed to the CLI and UI)
	di.RegisterToken(c, pricingDI.PriceService, func(sr di.ServiceRegistry) *app.PriceService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		settings := app.Settings{
			Anchor: domain.NewToken(domain.TokenIdentifier(cfg.XExchange.AnchorToken), cfg.XExchange.AnchorDecimals),
			Bridge: domain.NewToken(domain.TokenIdentifier(cfg.XExchange.BridgeToken), cfg.XExchange.BridgeDecimals),
		}

		svc, err := app.NewPriceService(settings,
			pricingDI.GetPairLocator(sr),
			pricingDI.GetReserveReader(sr),
			pricingDI.GetDecimalsProvider(sr),
			log,
		)
		if err != nil {
			panic("failed to create price service: " + err.Error())
		}
		return svc
	})

	return nil
}

// NewCacheStrategy builds the strategy selected by cfg.Driver.
func NewCacheStrategy(cfg config.CacheConfig, clock caching.BlockClock) (caching.Strategy, error) {
	switch cfg.Driver {
	case config.CacheDriverNone:
		return caching.Nop{}, nil
	case config.CacheDriverRedis:
		return caching.NewRedis(caching.RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
			BlockTTL:  cfg.BlockTTL,
		}, clock)
	default:
		localCfg := caching.DefaultLocalConfig()
		if cfg.Capacity > 0 {
			localCfg.Capacity = cfg.Capacity
		}
		if cfg.CleanupInterval > 0 {
			localCfg.CleanupInterval = cfg.CleanupInterval
		}
		if cfg.BlockTTL > 0 {
			localCfg.BlockTTL = cfg.BlockTTL
		}
		return caching.NewLocal(localCfg, clock)
	}
}

// Startup initializes the pricing module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	strategy := pricingDI.GetCacheStrategy(mono.Services())
	if pinger, ok := strategy.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			// Every lookup will fail with CACHE_BACKEND_ERROR; surface it now.
			return err
		}
	}
	if closer, ok := strategy.(interface{ Close() error }); ok {
		mono.OnShutdown(closer.Close)
	}

	svc := pricingDI.GetPriceService(mono.Services())
	settings := svc.Settings()

	log.Info(ctx, "pricing module started",
		"router", cfg.XExchange.RouterAddress,
		"anchor", settings.Anchor.ID,
		"bridge", settings.Bridge.ID,
		"cache", cfg.Cache.Driver,
	)
	return nil
}
