package esdt

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/price-getter/internal/apperror"
	"github.com/fd1az/price-getter/internal/asset"
	"github.com/fd1az/price-getter/internal/cache"
	"github.com/fd1az/price-getter/internal/caching"
	"github.com/fd1az/price-getter/internal/logger"
	"github.com/fd1az/price-getter/internal/mvx"
)

func newTestProperties(t *testing.T) (*Properties, *mvx.MockExecutor) {
	t.Helper()
	mock := mvx.NewMockExecutor()
	require.NoError(t, mock.LoadFixtureFile("../../../../internal/mvx/testdata/xexchange.json"))
	log := logger.New(io.Discard, logger.LevelDebug, "test", nil)
	return NewProperties(asset.DefaultRegistry(), mock, caching.Nop{}, 0, log), mock
}

func TestProperties_RegistryHitSkipsChain(t *testing.T) {
	p, mock := newTestProperties(t)

	d, err := p.Decimals(context.Background(), asset.IDUSDC)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), d)
	assert.Zero(t, mock.Calls())
}

func TestProperties_ReadsSystemContractOnce(t *testing.T) {
	p, mock := newTestProperties(t)

	for i := 0; i < 3; i++ {
		d, err := p.Decimals(context.Background(), "ABC-a1b2c3")
		require.NoError(t, err)
		assert.Equal(t, uint8(6), d)
	}
	assert.Equal(t, 1, mock.CallsFor(fnGetTokenProperties))
}

func TestProperties_OnChainDecimalsExpire(t *testing.T) {
	mock := mvx.NewMockExecutor()
	require.NoError(t, mock.LoadFixtureFile("../../../../internal/mvx/testdata/xexchange.json"))
	log := logger.New(io.Discard, logger.LevelDebug, "test", nil)

	now := time.Unix(1_700_000_000, 0)
	p := newProperties(asset.DefaultRegistry(), mock, caching.Nop{}, time.Hour, log,
		cache.WithClock(func() time.Time { return now }))

	_, err := p.Decimals(context.Background(), "ABC-a1b2c3")
	require.NoError(t, err)
	now = now.Add(30 * time.Minute)
	_, err = p.Decimals(context.Background(), "ABC-a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, 1, mock.CallsFor(fnGetTokenProperties))

	now = now.Add(time.Hour)
	d, err := p.Decimals(context.Background(), "ABC-a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, uint8(6), d)
	assert.Equal(t, 2, mock.CallsFor(fnGetTokenProperties))
}

func TestProperties_UnknownToken(t *testing.T) {
	p, _ := newTestProperties(t)

	_, err := p.Decimals(context.Background(), "NOPE-ffffff")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeTokenPropertiesFailed))
	assert.True(t, apperror.HasCode(err, apperror.CodeVMQueryFailed))
}

func TestParseNumDecimals(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		want   uint8
		ok     bool
	}{
		{"present", []string{"Name", "FungibleESDT", "NumDecimals-18", "IsPaused-false"}, 18, true},
		{"zero", []string{"NumDecimals-0"}, 0, true},
		{"missing", []string{"Name", "IsPaused-false"}, 0, false},
		{"garbage", []string{"NumDecimals-x"}, 0, false},
		{"overflow", []string{"NumDecimals-300"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := make([][]byte, len(tt.fields))
			for i, f := range tt.fields {
				fields[i] = []byte(f)
			}
			got, ok := ParseNumDecimals(fields)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
