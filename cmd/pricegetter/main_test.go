package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/price-getter/business/blockchain"
	"github.com/fd1az/price-getter/business/pricing"
	pricingDI "github.com/fd1az/price-getter/business/pricing/di"
	"github.com/fd1az/price-getter/business/pricing/domain"
	"github.com/fd1az/price-getter/internal/asset"
	"github.com/fd1az/price-getter/internal/config"
	"github.com/fd1az/price-getter/internal/logger"
	"github.com/fd1az/price-getter/internal/monolith"
)

func TestResolveTokens(t *testing.T) {
	reg := asset.DefaultRegistry()

	tests := []struct {
		name     string
		list     string
		defaults []string
		want     []domain.TokenIdentifier
		wantErr  bool
	}{
		{"defaults", "", []string{"WEGLD-bd4d79", "MEX"}, []domain.TokenIdentifier{asset.IDWEGLD, asset.IDMEX}, false},
		{"tickers and ids", " mex , HTM-f51d55,ABC-a1b2c3", nil, []domain.TokenIdentifier{asset.IDMEX, asset.IDHTM, "ABC-a1b2c3"}, false},
		{"unknown ticker", "DOGE", nil, nil, true},
		{"empty", " , ", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveTokens(reg, tt.list, tt.defaults)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintPrices(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Gateway.MockFixture = "../../internal/mvx/testdata/xexchange.json"

	log := logger.New(io.Discard, logger.LevelInfo, "test", nil)
	mono, err := monolith.New(cfg, log)
	require.NoError(t, err)
	defer mono.Close()

	modules := []monolith.Module{&blockchain.Module{}, &pricing.Module{}}
	require.NoError(t, mono.RegisterModules(modules...))
	require.NoError(t, mono.StartModules(context.Background(), modules...))

	svc := pricingDI.GetPriceService(mono.Services())

	var out bytes.Buffer
	err = printPrices(context.Background(), svc, []domain.TokenIdentifier{asset.IDUSDC, asset.IDMEX}, &out, log)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Current price of the USDC token: 1", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Current price of the MEX token: 0.00007160202800139"), lines[1])

	out.Reset()
	err = printPrices(context.Background(), svc, []domain.TokenIdentifier{asset.IDWEGLD, "ABC-a1b2c3"}, &out, log)
	assert.EqualError(t, err, "1 of 2 tokens could not be priced")
	assert.Contains(t, out.String(), "Current price of the WEGLD token: 14.85")
}

func TestPrintPrices_ErrorsFollowRequestOrder(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Gateway.MockFixture = "../../internal/mvx/testdata/xexchange.json"

	quiet := logger.New(io.Discard, logger.LevelInfo, "test", nil)
	mono, err := monolith.New(cfg, quiet)
	require.NoError(t, err)
	defer mono.Close()

	modules := []monolith.Module{&blockchain.Module{}, &pricing.Module{}}
	require.NoError(t, mono.RegisterModules(modules...))
	require.NoError(t, mono.StartModules(context.Background(), modules...))

	svc := pricingDI.GetPriceService(mono.Services())

	orders := [][]domain.TokenIdentifier{
		{"ABC-a1b2c3", "NOPE-ffffff", "DRY-0d0d0d"},
		{"DRY-0d0d0d", "NOPE-ffffff", "ABC-a1b2c3"},
	}
	for _, ids := range orders {
		for i := 0; i < 5; i++ {
			var logs bytes.Buffer
			log := logger.New(&logs, logger.LevelInfo, "test", nil)

			err := printPrices(context.Background(), svc, ids, io.Discard, log)
			assert.EqualError(t, err, "3 of 3 tokens could not be priced")

			out := logs.String()
			first := strings.Index(out, string(ids[0]))
			second := strings.Index(out, string(ids[1]))
			third := strings.Index(out, string(ids[2]))
			require.True(t, first >= 0 && second >= 0 && third >= 0, out)
			assert.Less(t, first, second)
			assert.Less(t, second, third)
		}
	}
}
