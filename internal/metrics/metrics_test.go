package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/price-getter/internal/logger"
)

func TestPrometheusReaderServesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()

	mp, err := NewMetricProvider(context.Background(),
		WithServiceName("price-getter-test"),
		WithRegisterer(reg),
		WithProviderConfig(ProviderCfg{Provider: PrometheusProvider}),
	)
	require.NoError(t, err)
	defer mp.Shutdown(context.Background())

	counter, err := mp.Meter("test").Int64Counter("pricing_resolutions_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	srv := NewPromServer(logger.New(io.Discard, logger.LevelInfo, "test", nil), WithGatherer(reg))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "pricing_resolutions_total")
}

func TestNewMetricProvider_UnknownProvider(t *testing.T) {
	_, err := NewMetricProvider(context.Background(),
		WithProviderConfig(ProviderCfg{Provider: "statsd"}),
	)
	assert.Error(t, err)
}
