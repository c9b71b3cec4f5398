// Package main is the entry point for the xExchange price getter.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/price-getter/business/blockchain"
	blockchainDI "github.com/fd1az/price-getter/business/blockchain/di"
	"github.com/fd1az/price-getter/business/pricing"
	pricingApp "github.com/fd1az/price-getter/business/pricing/app"
	pricingDI "github.com/fd1az/price-getter/business/pricing/di"
	"github.com/fd1az/price-getter/business/pricing/domain"
	"github.com/fd1az/price-getter/internal/apm"
	"github.com/fd1az/price-getter/internal/asset"
	"github.com/fd1az/price-getter/internal/config"
	"github.com/fd1az/price-getter/internal/health"
	"github.com/fd1az/price-getter/internal/logger"
	"github.com/fd1az/price-getter/internal/metrics"
	"github.com/fd1az/price-getter/internal/monolith"
	"github.com/fd1az/price-getter/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	tokens := flag.String("tokens", "", "Comma separated token identifiers or tickers (default: tokens.default)")
	tuiMode := flag.Bool("tui", false, "Run the interactive price board")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("price-getter %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *tokens, *tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, tokenList string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.App.TUIMode = tuiMode

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var log *logger.Logger
	if tuiMode {
		// The board owns the terminal.
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
	}
	log.Debug(ctx, "starting price getter",
		"version", version,
		"environment", cfg.App.Environment,
	)

	if cfg.Telemetry.Enabled {
		stop, err := startTelemetry(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	modules := []monolith.Module{
		&blockchain.Module{}, // Must be first - clocks the cache
		&pricing.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	ids, err := resolveTokens(mono.AssetRegistry(), tokenList, cfg.Tokens.Default)
	if err != nil {
		return err
	}

	svc := pricingDI.GetPriceService(mono.Services())
	blocks := blockchainDI.GetBlockchainService(mono.Services())

	if !tuiMode {
		return printPrices(ctx, svc, ids, os.Stdout, log)
	}

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	healthServer.RegisterCheck("block_clock", health.BlockCheck(blocks))
	healthServer.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthServer.Stop(stopCtx)
	}()

	return ui.Run(ctx, ui.Options{
		Pricer: svc,
		Blocks: blocks,
		Tokens: ids,
		Anchor: cfg.XExchange.AnchorToken,
		Source: cfg.Block.Clock,
	})
}

func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	traceProvider, err := apm.NewTraceProvider(ctx, apm.TraceConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Exporter:    apm.Exporter(cfg.Telemetry.Exporter),
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	opts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	}
	if apm.Exporter(cfg.Telemetry.Exporter) == apm.OTLPGRPCExporter {
		opts = append(opts, metrics.WithProviderConfig(metrics.NewOtelCollectorConfig(
			cfg.Telemetry.OTLPEndpoint, apm.ParseHeaders(cfg.Telemetry.OTLPHeaders), false)))
	}

	meterProvider, err := metrics.NewMetricProvider(ctx, opts...)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	promServer := metrics.NewPromServer(log, metrics.WithPort(strconv.Itoa(cfg.Telemetry.PrometheusPort)))
	promServer.Start(ctx)

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = promServer.Stop(stopCtx)
		if err := meterProvider.Shutdown(stopCtx); err != nil {
			log.Warn(stopCtx, "failed to flush metrics", "error", err)
		}
		if err := traceProvider.Stop(); err != nil {
			log.Warn(stopCtx, "failed to flush traces", "error", err)
		}
	}, nil
}

// resolveTokens accepts full identifiers or tickers known to the registry.
func resolveTokens(registry *asset.Registry, list string, defaults []string) ([]domain.TokenIdentifier, error) {
	names := defaults
	if strings.TrimSpace(list) != "" {
		names = strings.Split(list, ",")
	}

	ids := make([]domain.TokenIdentifier, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		lookup := name
		if !strings.Contains(name, "-") {
			lookup = strings.ToUpper(name)
		}
		if a, ok := registry.Resolve(lookup); ok {
			ids = append(ids, a.ID())
			continue
		}
		id := domain.TokenIdentifier(name)
		if !id.Valid() {
			return nil, fmt.Errorf("unknown token %q: use a full identifier such as MEX-455c57", name)
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("no tokens to price")
	}
	return ids, nil
}

func printPrices(ctx context.Context, svc *pricingApp.PriceService, ids []domain.TokenIdentifier, w io.Writer, log logger.LoggerInterface) error {
	snap, err := svc.Snapshot(ctx, ids)
	if err != nil {
		return err
	}

	prices := make(map[domain.TokenIdentifier]domain.Price, len(snap.Quotes))
	for _, q := range snap.Quotes {
		prices[q.Token.ID] = q.Price
	}

	for _, id := range ids {
		price, ok := prices[id]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "Current price of the %s token: %s\n",
			id.Ticker(), strconv.FormatFloat(price.Float64(), 'f', -1, 64))
	}

	for _, id := range ids {
		if err, ok := snap.Errors[id]; ok {
			log.Error(ctx, "failed to price token", "token", id, "error", err)
		}
	}
	if len(snap.Errors) > 0 {
		return fmt.Errorf("%d of %d tokens could not be priced", len(snap.Errors), len(ids))
	}
	return nil
}
