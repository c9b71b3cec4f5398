package monolith

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/price-getter/internal/config"
	"github.com/fd1az/price-getter/internal/di"
	"github.com/fd1az/price-getter/internal/logger"
	"github.com/fd1az/price-getter/internal/mvx"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Gateway.URL = "https://gateway.multiversx.com"
	cfg.Gateway.RequestsPerMinute = 600
	return cfg
}

func TestNew_GatewayExecutor(t *testing.T) {
	a, err := New(testConfig(), logger.New(io.Discard, logger.LevelInfo, "test", nil))
	require.NoError(t, err)

	_, ok := a.Executor().(*mvx.GatewayExecutor)
	assert.True(t, ok, "expected a gateway executor, got %T", a.Executor())
	assert.Equal(t, 4, a.AssetRegistry().Count())
	assert.Same(t, a.Config(), a.Services().Get("config"))
}

func TestNew_FixtureExecutor(t *testing.T) {
	cfg := testConfig()
	cfg.Gateway.MockFixture = "../mvx/testdata/xexchange.json"

	a, err := New(cfg, logger.New(io.Discard, logger.LevelInfo, "test", nil))
	require.NoError(t, err)

	_, ok := a.Executor().(*mvx.MockExecutor)
	assert.True(t, ok, "expected a mock executor, got %T", a.Executor())
}

func TestNew_MissingFixture(t *testing.T) {
	cfg := testConfig()
	cfg.Gateway.MockFixture = "testdata/does-not-exist.json"

	_, err := New(cfg, logger.New(io.Discard, logger.LevelInfo, "test", nil))
	assert.Error(t, err)
}

type recordingModule struct {
	order   *[]string
	name    string
	started bool
}

func (m *recordingModule) RegisterServices(di.Container) error {
	*m.order = append(*m.order, "register:"+m.name)
	return nil
}

func (m *recordingModule) Startup(_ context.Context, mono Monolith) error {
	m.started = true
	mono.OnShutdown(func() error {
		*m.order = append(*m.order, "close:"+m.name)
		return nil
	})
	return nil
}

func TestApp_ModuleLifecycle(t *testing.T) {
	a, err := New(testConfig(), logger.New(io.Discard, logger.LevelInfo, "test", nil))
	require.NoError(t, err)

	var order []string
	first := &recordingModule{order: &order, name: "blockchain"}
	second := &recordingModule{order: &order, name: "pricing"}

	require.NoError(t, a.RegisterModules(first, second))
	require.NoError(t, a.StartModules(context.Background(), first, second))
	require.NoError(t, a.Close())

	assert.Equal(t, []string{
		"register:blockchain", "register:pricing",
		"close:pricing", "close:blockchain",
	}, order)
}

func TestApp_CloseJoinsErrors(t *testing.T) {
	a, err := New(testConfig(), logger.New(io.Discard, logger.LevelInfo, "test", nil))
	require.NoError(t, err)

	boom := errors.New("boom")
	a.OnShutdown(func() error { return boom })
	a.OnShutdown(func() error { return nil })

	assert.ErrorIs(t, a.Close(), boom)
	assert.NoError(t, a.Close(), "hooks run once")
}
