// Package httpclient provides an instrumented JSON HTTP client with OTEL tracing, metrics and retries.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Options holds configuration for the client.
type Options struct {
	client         *http.Client
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	providerName   string
	roundTripper   http.RoundTripper
	requestTimeout time.Duration
	headers        map[string]string
	baseURL        string
	maxAttempts    uint
	initialBackoff time.Duration
	logBodies      bool
}

// Option configures Options.
type Option func(*Options)

func newOptions(opts ...Option) *Options {
	o := &Options{
		requestTimeout: defaultRequestTimeout,
		maxAttempts:    defaultMaxAttempts,
		initialBackoff: defaultInitialBackoff,
		providerName:   "default",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithHTTPClient uses an existing http.Client; its transport is still instrumented.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.client = c }
}

// WithMeterProvider sets the OTEL meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *Options) { o.meterProvider = mp }
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Options) { o.tracer = t }
}

// WithProviderName labels metrics and spans.
func WithProviderName(name string) Option {
	return func(o *Options) {
		if name != "" {
			o.providerName = name
		}
	}
}

// WithRoundTripper sets a custom transport.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *Options) { o.roundTripper = rt }
}

// WithRequestTimeout bounds each attempt.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *Options) { o.requestTimeout = timeout }
}

// WithHeaders sets default headers for all requests.
func WithHeaders(headers map[string]string) Option {
	return func(o *Options) { o.headers = headers }
}

// WithBaseURL resolves relative paths against url.
func WithBaseURL(url string) Option {
	return func(o *Options) { o.baseURL = url }
}

// WithRetry sets the attempt budget for transport errors, 429 and 5xx responses.
// attempts of 1 disables retries.
func WithRetry(attempts uint, initialBackoff time.Duration) Option {
	return func(o *Options) {
		if attempts > 0 {
			o.maxAttempts = attempts
		}
		if initialBackoff > 0 {
			o.initialBackoff = initialBackoff
		}
	}
}

// WithBodyLogging records request and response bodies as span events.
func WithBodyLogging(enable bool) Option {
	return func(o *Options) { o.logBodies = enable }
}
