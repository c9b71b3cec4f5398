// Package blockchain implements the blockchain bounded context: it tells the
// caching layer which block the chain is on.
package blockchain

import (
	"context"
	"time"

	"github.com/fd1az/price-getter/business/blockchain/app"
	blockchainDI "github.com/fd1az/price-getter/business/blockchain/di"
	"github.com/fd1az/price-getter/business/blockchain/infra/gateway"
	"github.com/fd1az/price-getter/business/blockchain/infra/notifier"
	"github.com/fd1az/price-getter/business/blockchain/infra/round"
	"github.com/fd1az/price-getter/internal/config"
	"github.com/fd1az/price-getter/internal/di"
	"github.com/fd1az/price-getter/internal/logger"
	"github.com/fd1az/price-getter/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register BlockSource (private - selected by block.clock)
	di.RegisterToken(c, blockchainDI.BlockSource, func(sr di.ServiceRegistry) app.BlockSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		source, err := newBlockSource(cfg, log)
		if err != nil {
			panic("failed to create block source: " + err.Error())
		}
		return source
	})

	// Register BlockchainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		return app.NewBlockchainService(blockchainDI.GetBlockSource(sr))
	})

	return nil
}

func newBlockSource(cfg *config.Config, log logger.LoggerInterface) (app.BlockSource, error) {
	switch cfg.Block.Clock {
	case config.BlockClockGateway, config.BlockClockNotifier:
		pollerCfg := gateway.DefaultStatusPollerConfig(cfg.Gateway.URL, cfg.Block.Shard)
		if cfg.Block.PollInterval > 0 {
			pollerCfg.PollInterval = cfg.Block.PollInterval
		}
		if cfg.Gateway.Timeout > 0 {
			pollerCfg.Timeout = cfg.Gateway.Timeout
		}
		poller, err := gateway.NewStatusPoller(pollerCfg, log)
		if err != nil {
			return nil, err
		}
		if cfg.Block.Clock == config.BlockClockGateway {
			return poller, nil
		}
		return notifier.NewSubscriber(cfg.Block.NotifierURL, poller, log)
	default:
		return round.NewClock(cfg.Block.Genesis(), cfg.Block.RoundDuration, cfg.Block.Shard)
	}
}

// Startup initializes the blockchain module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	source := blockchainDI.GetBlockSource(mono.Services())

	// Connect push sources (type assertion to access Connect method)
	if connector, ok := source.(interface{ Connect(context.Context) error }); ok {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := connector.Connect(connectCtx); err != nil {
			// Reads still go through the status poller; only freshness suffers.
			log.Warn(ctx, "block notifier connection failed", "error", err)
		}
	}

	if closer, ok := source.(interface{ Close() error }); ok {
		mono.OnShutdown(closer.Close)
	}

	svc := blockchainDI.GetBlockchainService(mono.Services())
	block, err := svc.LatestBlock(ctx)
	if err != nil {
		log.Warn(ctx, "block source not ready", "clock", mono.Config().Block.Clock, "error", err)
	} else {
		log.Info(ctx, "blockchain module started",
			"clock", mono.Config().Block.Clock,
			"round", block.Round,
			"shard", block.Shard,
		)
	}

	return nil
}
