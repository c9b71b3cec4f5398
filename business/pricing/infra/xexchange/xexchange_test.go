package xexchange

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/price-getter/business/pricing/domain"
	"github.com/fd1az/price-getter/internal/apperror"
	"github.com/fd1az/price-getter/internal/caching"
	"github.com/fd1az/price-getter/internal/logger"
	"github.com/fd1az/price-getter/internal/mvx"
)

var (
	testRouter    = mvx.MustParseAddress("erd1qqqqqqqqqqqqqpgqq66xk9gfr4esuhem3jru86wg5hvp33a62jps2fy57p")
	wegldUSDCPair = mvx.MustParseAddress("erd1qqqqqqqqqqqqqpgqeel2kumf0r8ffyhth7pqdujjat9nx0862jpsg2pqaq")
	wegldMEXPair  = mvx.MustParseAddress("erd1qqqqqqqqqqqqqpgqa0fsfshnff4n76jhcye6k7uvd7qacsq42jpsp6shh2")
)

func fixtureExecutor(t *testing.T) *mvx.MockExecutor {
	t.Helper()
	mock := mvx.NewMockExecutor()
	require.NoError(t, mock.LoadFixtureFile("../../../../internal/mvx/testdata/xexchange.json"))
	return mock
}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

type blockCounter struct {
	mu sync.Mutex
	n  uint64
}

func (b *blockCounter) CurrentBlock(context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n, nil
}

func (b *blockCounter) advance() {
	b.mu.Lock()
	b.n++
	b.mu.Unlock()
}

func TestRouter_GetPair(t *testing.T) {
	r := NewRouter(testRouter, fixtureExecutor(t), caching.Nop{}, 0, testLogger())

	tests := []struct {
		second domain.TokenIdentifier
		want   mvx.Address
	}{
		{"USDC-c76f1f", wegldUSDCPair},
		{"MEX-455c57", wegldMEXPair},
	}
	for _, tt := range tests {
		t.Run(string(tt.second), func(t *testing.T) {
			pair, err := r.GetPair(context.Background(), "WEGLD-bd4d79", tt.second)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pair)
		})
	}
}

func TestRouter_ZeroAddressIsPairNotFound(t *testing.T) {
	r := NewRouter(testRouter, fixtureExecutor(t), caching.Nop{}, 0, testLogger())

	_, err := r.GetPair(context.Background(), "WEGLD-bd4d79", "ABC-a1b2c3")
	require.Error(t, err)

	pnf, ok := domain.AsPairNotFound(err)
	require.True(t, ok, "expected PairNotFoundError, got %v", err)
	assert.Equal(t, domain.TokenIdentifier("WEGLD-bd4d79"), pnf.First)
	assert.Equal(t, domain.TokenIdentifier("ABC-a1b2c3"), pnf.Second)
}

func TestRouter_TransportErrorPassesThrough(t *testing.T) {
	mock := mvx.NewMockExecutor()
	transport := apperror.External(apperror.CodeGatewayRequestFailed, "getPair", errors.New("connection reset"))
	mock.RegisterError(mvx.NewQuery(testRouter, fnGetPair,
		mvx.StringArg("WEGLD-bd4d79"), mvx.StringArg("MEX-455c57")), transport)

	r := NewRouter(testRouter, mock, caching.Nop{}, 0, testLogger())
	_, err := r.GetPair(context.Background(), "WEGLD-bd4d79", "MEX-455c57")

	assert.Same(t, transport, err)
	assert.False(t, domain.IsPairNotFound(err))
}

func TestRouter_MalformedAnswer(t *testing.T) {
	mock := mvx.NewMockExecutor()
	q := mvx.NewQuery(testRouter, fnGetPair, mvx.StringArg("WEGLD-bd4d79"), mvx.StringArg("MEX-455c57"))
	mock.Register(q, []byte{0x01, 0x02})

	r := NewRouter(testRouter, mock, caching.Nop{}, 0, testLogger())
	_, err := r.GetPair(context.Background(), "WEGLD-bd4d79", "MEX-455c57")

	assert.True(t, apperror.HasCode(err, apperror.CodeDecodeFailed))
}

func TestRouter_CachesPairs(t *testing.T) {
	mock := fixtureExecutor(t)
	blocks := &blockCounter{}
	strategy, err := caching.NewLocal(caching.DefaultLocalConfig(), blocks)
	require.NoError(t, err)
	defer strategy.Close()

	r := NewRouter(testRouter, mock, strategy, 0, testLogger())

	for i := 0; i < 3; i++ {
		_, err := r.GetPair(context.Background(), "WEGLD-bd4d79", "MEX-455c57")
		require.NoError(t, err)
		blocks.advance()
	}
	assert.Equal(t, 1, mock.CallsFor(fnGetPair))
}

func TestPairs_GetReserve(t *testing.T) {
	p := NewPairs(fixtureExecutor(t), caching.Nop{})

	tests := []struct {
		pair  mvx.Address
		token domain.TokenIdentifier
		want  string
	}{
		{wegldUSDCPair, "WEGLD-bd4d79", "1000000000000000000000000000"},
		{wegldUSDCPair, "USDC-c76f1f", "14856761003204669"},
		{wegldMEXPair, "MEX-455c57", "1485676100320466900000000000"},
		{mvx.MustParseAddress("erd1qqqqqqqqqqqqqpgq424242424242424242424242424242422jpsjtklv5"), "DRY-0d0d0d", "0"},
	}
	for _, tt := range tests {
		t.Run(string(tt.token), func(t *testing.T) {
			got, err := p.GetReserve(context.Background(), tt.pair, tt.token)
			require.NoError(t, err)
			want, _ := new(big.Int).SetString(tt.want, 10)
			assert.Zero(t, want.Cmp(got), "expected %s, got %s", want, got)
		})
	}
}

func TestPairs_CachedUntilNextBlock(t *testing.T) {
	mock := fixtureExecutor(t)
	blocks := &blockCounter{}
	strategy, err := caching.NewLocal(caching.DefaultLocalConfig(), blocks)
	require.NoError(t, err)
	defer strategy.Close()

	p := NewPairs(mock, strategy)
	ctx := context.Background()

	_, err = p.GetReserve(ctx, wegldMEXPair, "MEX-455c57")
	require.NoError(t, err)
	_, err = p.GetReserve(ctx, wegldMEXPair, "MEX-455c57")
	require.NoError(t, err)
	assert.Equal(t, 1, mock.CallsFor(fnGetReserve))

	blocks.advance()
	_, err = p.GetReserve(ctx, wegldMEXPair, "MEX-455c57")
	require.NoError(t, err)
	assert.Equal(t, 2, mock.CallsFor(fnGetReserve))
}

func TestPairs_Errors(t *testing.T) {
	p := NewPairs(fixtureExecutor(t), caching.Nop{})

	_, err := p.GetReserve(context.Background(), wegldMEXPair, "HTM-f51d55")
	assert.True(t, apperror.HasCode(err, apperror.CodeFixtureMissing))

	mock := mvx.NewMockExecutor()
	mock.Register(mvx.NewQuery(wegldMEXPair, fnGetReserve, mvx.StringArg("MEX-455c57")))
	_, err = NewPairs(mock, caching.Nop{}).GetReserve(context.Background(), wegldMEXPair, "MEX-455c57")
	assert.True(t, apperror.HasCode(err, apperror.CodeDecodeFailed))
}
