// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fd1az/price-getter/internal/asset"
	"github.com/fd1az/price-getter/internal/config"
	"github.com/fd1az/price-getter/internal/di"
	"github.com/fd1az/price-getter/internal/logger"
	"github.com/fd1az/price-getter/internal/mvx"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Executor() mvx.QueryExecutor
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
	OnShutdown(fn func() error)
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	executor      mvx.QueryExecutor
	assetRegistry *asset.Registry
	container     di.Container

	mu       sync.Mutex
	shutdown []func() error
}

// New creates a new Monolith instance.
func New(cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	executor, err := newExecutor(cfg, log)
	if err != nil {
		return nil, err
	}

	// Use default asset registry (pre-populated with well-known tokens)
	assetRegistry := asset.DefaultRegistry()

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("executor", executor)
	container.Register("assetRegistry", assetRegistry)

	return &app{
		config:        cfg,
		logger:        log,
		executor:      executor,
		assetRegistry: assetRegistry,
		container:     container,
	}, nil
}

// newExecutor answers VM queries from a fixture when one is configured, from the gateway otherwise.
func newExecutor(cfg *config.Config, log logger.LoggerInterface) (mvx.QueryExecutor, error) {
	if cfg.Gateway.MockFixture != "" {
		mock := mvx.NewMockExecutor()
		if err := mock.LoadFixtureFile(cfg.Gateway.MockFixture); err != nil {
			return nil, fmt.Errorf("load fixture: %w", err)
		}
		log.Info(context.Background(), "answering queries from fixture", "path", cfg.Gateway.MockFixture)
		return mock, nil
	}

	executor, err := mvx.NewGatewayExecutor(mvx.GatewayConfig{
		URL:               cfg.Gateway.URL,
		Timeout:           cfg.Gateway.Timeout,
		RequestsPerSecond: cfg.Gateway.RequestsPerSecond(),
		Burst:             cfg.Gateway.Burst(),
		Retries:           cfg.Gateway.Retries,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("create gateway executor: %w", err)
	}
	return executor, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Executor() mvx.QueryExecutor {
	return a.executor
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// OnShutdown registers fn to run on Close, in reverse registration order.
func (a *app) OnShutdown(fn func() error) {
	a.mu.Lock()
	a.shutdown = append(a.shutdown, fn)
	a.mu.Unlock()
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close releases everything registered with OnShutdown.
func (a *app) Close() error {
	a.mu.Lock()
	hooks := a.shutdown
	a.shutdown = nil
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
