package pricing_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/price-getter/business/blockchain"
	"github.com/fd1az/price-getter/business/pricing"
	pricingDI "github.com/fd1az/price-getter/business/pricing/di"
	"github.com/fd1az/price-getter/business/pricing/domain"
	"github.com/fd1az/price-getter/internal/caching"
	"github.com/fd1az/price-getter/internal/config"
	"github.com/fd1az/price-getter/internal/logger"
	"github.com/fd1az/price-getter/internal/monolith"
	"github.com/fd1az/price-getter/internal/mvx"
)

func TestModule_ResolvesFixturePrices(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Gateway.MockFixture = "../../internal/mvx/testdata/xexchange.json"

	mono, err := monolith.New(cfg, logger.New(io.Discard, logger.LevelInfo, "test", nil))
	require.NoError(t, err)
	defer mono.Close()

	modules := []monolith.Module{&blockchain.Module{}, &pricing.Module{}}
	require.NoError(t, mono.RegisterModules(modules...))
	require.NoError(t, mono.StartModules(context.Background(), modules...))

	svc := pricingDI.GetPriceService(mono.Services())
	mock := mono.Executor().(*mvx.MockExecutor)
	mock.ResetCalls()

	price, err := svc.GetPrice(context.Background(), "MEX-455c57")
	require.NoError(t, err)
	assert.Equal(t, "7160202800139497/100000000000000000000", price.String())

	// Pairs are cached for a year and reserves for the current round.
	_, err = svc.GetPrice(context.Background(), "MEX-455c57")
	require.NoError(t, err)
	assert.Equal(t, 2, mock.CallsFor("getPair"))
	assert.LessOrEqual(t, mock.CallsFor("getReserve"), 8)

	_, err = svc.GetPrice(context.Background(), "ABC-a1b2c3")
	assert.True(t, domain.IsPairNotFound(err))
}

func TestNewCacheStrategy(t *testing.T) {
	clock := caching.BlockClock(nil)

	s, err := pricing.NewCacheStrategy(config.CacheConfig{Driver: config.CacheDriverNone}, clock)
	require.NoError(t, err)
	assert.IsType(t, caching.Nop{}, s)

	s, err = pricing.NewCacheStrategy(config.CacheConfig{Driver: config.CacheDriverLocal, Capacity: 10}, clock)
	require.NoError(t, err)
	assert.IsType(t, &caching.Local{}, s)
	require.NoError(t, s.(*caching.Local).Close())

	s, err = pricing.NewCacheStrategy(config.CacheConfig{Driver: config.CacheDriverRedis, RedisAddr: "127.0.0.1:0"}, clock)
	require.NoError(t, err)
	assert.IsType(t, &caching.Redis{}, s)
	require.NoError(t, s.(*caching.Redis).Close())
}
