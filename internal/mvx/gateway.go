package mvx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/price-getter/internal/apperror"
	"github.com/fd1az/price-getter/internal/circuitbreaker"
	"github.com/fd1az/price-getter/internal/httpclient"
	"github.com/fd1az/price-getter/internal/logger"
	"github.com/fd1az/price-getter/internal/ratelimit"
)

const (
	tracerName = "mvx"
	meterName  = "mvx"

	vmQueryPath  = "/vm-values/query"
	returnCodeOK = "ok"
)

var _ QueryExecutor = (*GatewayExecutor)(nil)

// GatewayConfig configures the HTTP gateway executor.
type GatewayConfig struct {
	URL               string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Retries           uint
}

type gatewayMetrics struct {
	queriesTotal metric.Int64Counter
	queryLatency metric.Float64Histogram
	queryErrors  metric.Int64Counter
}

type vmQueryRequest struct {
	ScAddress string   `json:"scAddress"`
	FuncName  string   `json:"funcName"`
	Value     string   `json:"value"`
	Args      []string `json:"args"`
}

type vmQueryResponse struct {
	Data struct {
		Data struct {
			// base64 strings in the payload; encoding/json decodes them into bytes.
			ReturnData    [][]byte `json:"returnData"`
			ReturnCode    string   `json:"returnCode"`
			ReturnMessage string   `json:"returnMessage"`
		} `json:"data"`
	} `json:"data"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// GatewayExecutor runs view queries against a MultiversX proxy gateway.
type GatewayExecutor struct {
	client  *httpclient.Client
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[*vmQueryResponse]
	logger  logger.LoggerInterface

	tracer  trace.Tracer
	metrics *gatewayMetrics
}

// NewGatewayExecutor creates an executor for cfg.URL.
func NewGatewayExecutor(cfg GatewayConfig, log logger.LoggerInterface) (*GatewayExecutor, error) {
	client, err := httpclient.New(
		httpclient.WithBaseURL(cfg.URL),
		httpclient.WithProviderName("mvx-gateway"),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithRetry(cfg.Retries, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("mvx-gateway")
	// Contract-level failures are answers, not outages.
	cbCfg.IsSuccessful = func(err error) bool {
		return err == nil ||
			apperror.HasCode(err, apperror.CodeVMQueryFailed) ||
			apperror.HasCode(err, apperror.CodeRequestCancelled) ||
			errors.Is(err, context.Canceled)
	}
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	}

	e := &GatewayExecutor{
		client:  client,
		limiter: ratelimit.New(cfg.RequestsPerSecond, cfg.Burst),
		cb:      circuitbreaker.New[*vmQueryResponse](cbCfg),
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return e, nil
}

func (e *GatewayExecutor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &gatewayMetrics{}

	e.metrics.queriesTotal, err = meter.Int64Counter(
		"mvx_vm_queries_total",
		metric.WithDescription("Total VM queries sent to the gateway"),
	)
	if err != nil {
		return err
	}

	e.metrics.queryLatency, err = meter.Float64Histogram(
		"mvx_vm_query_latency_ms",
		metric.WithDescription("VM query latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	e.metrics.queryErrors, err = meter.Int64Counter(
		"mvx_vm_query_errors_total",
		metric.WithDescription("Total failed VM queries"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Execute posts q to /vm-values/query and returns the decoded return data.
func (e *GatewayExecutor) Execute(ctx context.Context, q Query) ([][]byte, error) {
	ctx, span := e.tracer.Start(ctx, "mvx.vm_query",
		trace.WithAttributes(
			attribute.String("contract", q.Contract.Bech32()),
			attribute.String("function", q.Function),
			attribute.Int("args", len(q.Args)),
		),
	)
	defer span.End()

	start := time.Now()
	fnAttr := metric.WithAttributes(attribute.String("function", q.Function))
	e.metrics.queriesTotal.Add(ctx, 1, fnAttr)

	data, err := e.execute(ctx, q)

	e.metrics.queryLatency.Record(ctx, float64(time.Since(start).Milliseconds()), fnAttr)

	if err != nil {
		e.metrics.queryErrors.Add(ctx, 1, fnAttr)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Debug(ctx, "vm query failed",
			"query", q.String(),
			"error", err,
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int("return_data", len(data)))
	span.SetStatus(codes.Ok, "query answered")
	return data, nil
}

func (e *GatewayExecutor) execute(ctx context.Context, q Query) ([][]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		if cancelled := apperror.Cancelled(ctx, err); cancelled != nil {
			return nil, cancelled
		}
		return nil, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	req := vmQueryRequest{
		ScAddress: q.Contract.Bech32(),
		FuncName:  q.Function,
		Value:     "0",
		Args:      make([]string, len(q.Args)),
	}
	for i, arg := range q.Args {
		req.Args[i] = HexArg(arg)
	}

	resp, err := e.cb.Execute(func() (*vmQueryResponse, error) {
		var out vmQueryResponse
		if err := e.client.PostJSON(ctx, vmQueryPath, req, &out); err != nil {
			return nil, e.transportError(ctx, q, err)
		}
		if out.Data.Data.ReturnCode != returnCodeOK {
			return nil, apperror.New(apperror.CodeVMQueryFailed,
				apperror.WithContext(fmt.Sprintf("%s: %s %s", q, out.Data.Data.ReturnCode, out.Data.Data.ReturnMessage)))
		}
		return &out, nil
	})
	if err != nil {
		if cancelled := apperror.Cancelled(ctx, err); cancelled != nil {
			return nil, cancelled
		}
		return nil, err
	}

	return resp.Data.Data.ReturnData, nil
}

func (e *GatewayExecutor) transportError(ctx context.Context, q Query, err error) error {
	if cancelled := apperror.Cancelled(ctx, err); cancelled != nil {
		return cancelled
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		// The proxy answers failed executions with 4xx and the VM error in the body.
		var body vmQueryResponse
		if statusErr.StatusCode < 500 && json.Unmarshal(statusErr.Body, &body) == nil && body.Error != "" {
			return apperror.New(apperror.CodeVMQueryFailed,
				apperror.WithContext(q.String()+": "+body.Error))
		}
		return apperror.New(apperror.CodeGatewayRequestFailed,
			apperror.WithContext(q.String()+": status "+strconv.Itoa(statusErr.StatusCode)),
			apperror.WithCause(err))
	}
	return apperror.External(apperror.CodeGatewayRequestFailed, q.String(), err)
}
