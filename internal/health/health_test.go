package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/price-getter/internal/logger"
)

type fakeClock struct {
	block uint64
	err   error
}

func (c fakeClock) CurrentBlock(context.Context) (uint64, error) {
	return c.block, c.err
}

func newTestServer() *Server {
	return NewServer(0, "v-test", logger.New(io.Discard, logger.LevelDebug, "test", nil))
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth_AllHealthy(t *testing.T) {
	s := newTestServer()
	s.RegisterCheck("block_clock", BlockCheck(fakeClock{block: 42}))

	rec := get(t, s.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "v-test", status.Version)
	assert.Equal(t, Check{Healthy: true, Message: "block 42"}, status.Checks["block_clock"])
}

func TestHealth_Degraded(t *testing.T) {
	s := newTestServer()
	s.RegisterCheck("block_clock", BlockCheck(fakeClock{err: errors.New("gateway down")}))

	rec := get(t, s.Handler(), "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "degraded", status.Status)
	assert.False(t, status.Checks["block_clock"].Healthy)
	assert.Equal(t, "gateway down", status.Checks["block_clock"].Message)
}

func TestReadyAndLive(t *testing.T) {
	s := newTestServer()

	rec := get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())

	s.RegisterCheck("cache", func(context.Context) (bool, string) { return false, "redis unreachable" })

	rec = get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", rec.Body.String())

	rec = get(t, s.Handler(), "/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", rec.Body.String())
}

func TestStopWithoutStart(t *testing.T) {
	assert.NoError(t, newTestServer().Stop(context.Background()))
}
