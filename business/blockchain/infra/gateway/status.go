// Package gateway reads the chain position from a MultiversX proxy's network status.
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/fd1az/price-getter/business/blockchain/app"
	"github.com/fd1az/price-getter/business/blockchain/domain"
	"github.com/fd1az/price-getter/internal/apperror"
	"github.com/fd1az/price-getter/internal/cache"
	"github.com/fd1az/price-getter/internal/circuitbreaker"
	"github.com/fd1az/price-getter/internal/httpclient"
	"github.com/fd1az/price-getter/internal/logger"
)

const (
	tracerName = "blockchain.gateway"
	meterName  = "blockchain.gateway"

	sourceName = "gateway"
)

// Ensure StatusPoller implements BlockSource.
var _ app.BlockSource = (*StatusPoller)(nil)

// StatusPollerConfig configures the network status reader.
type StatusPollerConfig struct {
	URL          string
	Shard        uint32
	PollInterval time.Duration // how long a status answer is reused
	Timeout      time.Duration
}

// DefaultStatusPollerConfig returns defaults for a shard on url.
func DefaultStatusPollerConfig(url string, shard uint32) StatusPollerConfig {
	return StatusPollerConfig{
		URL:          url,
		Shard:        shard,
		PollInterval: 3 * time.Second,
		Timeout:      5 * time.Second,
	}
}

type networkStatusResponse struct {
	Data struct {
		Status struct {
			CurrentRound uint64 `json:"erd_current_round"`
			EpochNumber  uint32 `json:"erd_epoch_number"`
			Nonce        uint64 `json:"erd_nonce"`
		} `json:"status"`
	} `json:"data"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

type pollerMetrics struct {
	statusRequests metric.Int64Counter
	statusErrors   metric.Int64Counter
}

// StatusPoller answers LatestBlock from GET /network/status/{shard},
// reusing each answer for PollInterval or until Invalidate.
type StatusPoller struct {
	config StatusPollerConfig
	client *httpclient.Client
	cb     *circuitbreaker.CircuitBreaker[*networkStatusResponse]
	memo   *cache.Cache[uint32, domain.Block]
	group  singleflight.Group
	logger logger.LoggerInterface

	stateMu    sync.RWMutex
	state      domain.ConnectionState
	lastRound  uint64
	lastUpdate time.Time

	tracer  trace.Tracer
	metrics *pollerMetrics
}

// NewStatusPoller creates a poller. It does not contact the gateway until LatestBlock.
func NewStatusPoller(cfg StatusPollerConfig, log logger.LoggerInterface, opts ...httpclient.Option) (*StatusPoller, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("gateway url is empty"))
	}

	clientOpts := append([]httpclient.Option{
		httpclient.WithBaseURL(cfg.URL),
		httpclient.WithProviderName("mvx-network-status"),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithRetry(1, 0),
	}, opts...)
	client, err := httpclient.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	p := &StatusPoller{
		config: cfg,
		client: client,
		memo:   cache.New[uint32, domain.Block](0, cache.WithCapacity(16)),
		logger: log,
		state:  domain.StateConnecting,
		tracer: otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("mvx-network-status")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	p.cb = circuitbreaker.New[*networkStatusResponse](cbCfg)

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return p, nil
}

func (p *StatusPoller) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	p.metrics = &pollerMetrics{}

	p.metrics.statusRequests, err = meter.Int64Counter(
		"mvx_network_status_requests_total",
		metric.WithDescription("Network status requests sent to the gateway"),
	)
	if err != nil {
		return err
	}

	p.metrics.statusErrors, err = meter.Int64Counter(
		"mvx_network_status_errors_total",
		metric.WithDescription("Failed network status requests"),
	)
	if err != nil {
		return err
	}

	return nil
}

// LatestBlock returns the shard's current position.
func (p *StatusPoller) LatestBlock(ctx context.Context) (*domain.Block, error) {
	if b, ok := p.memo.Get(ctx, p.config.Shard); ok {
		return &b, nil
	}

	v, err, _ := p.group.Do("status", func() (any, error) {
		if b, ok := p.memo.Get(ctx, p.config.Shard); ok {
			return b, nil
		}
		b, err := p.fetch(ctx)
		if err != nil {
			return nil, err
		}
		p.memo.Set(ctx, p.config.Shard, b, p.config.PollInterval)
		return b, nil
	})
	if err != nil {
		return nil, err
	}

	b := v.(domain.Block)
	return &b, nil
}

func (p *StatusPoller) fetch(ctx context.Context) (domain.Block, error) {
	ctx, span := p.tracer.Start(ctx, "mvx.network_status",
		trace.WithAttributes(attribute.Int("shard", int(p.config.Shard))),
	)
	defer span.End()

	p.metrics.statusRequests.Add(ctx, 1)

	path := fmt.Sprintf("/network/status/%d", p.config.Shard)
	resp, err := p.cb.Execute(func() (*networkStatusResponse, error) {
		var out networkStatusResponse
		if err := p.client.GetJSON(ctx, path, &out); err != nil {
			return nil, err
		}
		if out.Error != "" {
			return nil, fmt.Errorf("%s: %s", out.Code, out.Error)
		}
		return &out, nil
	})
	if err != nil {
		p.metrics.statusErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.setState(domain.StateDisconnected)

		if cancelled := apperror.Cancelled(ctx, err); cancelled != nil {
			return domain.Block{}, cancelled
		}
		return domain.Block{}, apperror.External(apperror.CodeBlockStatusFailed, path, err)
	}

	status := resp.Data.Status
	b := domain.Block{
		Nonce:     status.Nonce,
		Round:     status.CurrentRound,
		Epoch:     status.EpochNumber,
		Shard:     p.config.Shard,
		Timestamp: time.Now(),
		Source:    sourceName,
	}

	p.stateMu.Lock()
	p.state = domain.StateConnected
	p.lastRound = b.Round
	p.lastUpdate = b.Timestamp
	p.stateMu.Unlock()

	span.SetAttributes(attribute.Int64("round", int64(b.Round)))
	span.SetStatus(codes.Ok, "fetched")
	p.logger.Debug(ctx, "network status", "shard", b.Shard, "round", b.Round, "nonce", b.Nonce)
	return b, nil
}

// Invalidate drops the memoised status so the next LatestBlock refetches.
func (p *StatusPoller) Invalidate(ctx context.Context) {
	p.memo.Delete(ctx, p.config.Shard)
}

// State returns the current connection state.
func (p *StatusPoller) State() domain.ConnectionState {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

// Status returns detailed connection status.
func (p *StatusPoller) Status() domain.ConnectionStatus {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return domain.ConnectionStatus{
		State:      p.state,
		Source:     sourceName,
		LastRound:  p.lastRound,
		LastUpdate: p.lastUpdate,
	}
}

// Close releases the memo.
func (p *StatusPoller) Close() error {
	p.memo.Close()
	return nil
}

func (p *StatusPoller) setState(s domain.ConnectionState) {
	p.stateMu.Lock()
	p.state = s
	p.stateMu.Unlock()
}
