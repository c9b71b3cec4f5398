package ui

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/price-getter/business/pricing/domain"
	"github.com/fd1az/price-getter/internal/asset"
	"github.com/fd1az/price-getter/internal/mvx"
)

const testPool = "erd1qqqqqqqqqqqqqpgqa0fsfshnff4n76jhcye6k7uvd7qacsq42jpsp6shh2"

type fakePricer struct {
	calls int
	snap  *domain.PriceSnapshot
	err   error
}

func (f *fakePricer) Snapshot(_ context.Context, ids []domain.TokenIdentifier) (*domain.PriceSnapshot, error) {
	f.calls++
	return f.snap, f.err
}

func testSnapshot(t *testing.T) *domain.PriceSnapshot {
	t.Helper()

	wegld := domain.TokenFromAsset(asset.WEGLD)
	mex := domain.TokenFromAsset(asset.MEX)

	return &domain.PriceSnapshot{
		ID: "3f2a9c1e-0000-4000-8000-000000000000",
		Quotes: []domain.Quote{
			{
				Token:              mex,
				Counterpart:        mex,
				Pair:               mvx.MustParseAddress(testPool),
				BridgeReserve:      asset.NewAmount(asset.WEGLD, big.NewInt(1e18)),
				CounterpartReserve: asset.NewAmount(asset.MEX, new(big.Int).Mul(big.NewInt(1e18), big.NewInt(2))),
				Price:              domain.PriceFromRatio(big.NewInt(1), big.NewInt(8)),
			},
			{Token: wegld, Price: domain.PriceFromRatio(big.NewInt(1485), big.NewInt(100))},
		},
		Errors: map[domain.TokenIdentifier]error{
			"ABC-a1b2c3": errors.New("pair not found"),
		},
		Timestamp: time.Now(),
	}
}

func dashboard(t *testing.T, p *fakePricer) Model {
	t.Helper()

	m := New(Options{
		Pricer: p,
		Tokens: []domain.TokenIdentifier{asset.IDWEGLD, "ABC-a1b2c3", asset.IDMEX},
		Anchor: "USDC-c76f1f",
		Source: "round",
	})
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.NotNil(t, cmd)
	m = updated.(Model)
	require.Equal(t, PhaseDashboard, m.phase)
	require.True(t, m.loading)
	return m
}

func TestModel_SnapshotOrdersRowsByRequest(t *testing.T) {
	p := &fakePricer{snap: testSnapshot(t)}
	m := dashboard(t, p)

	msg := m.refreshCmd()()
	assert.Equal(t, 1, p.calls)

	updated, _ := m.Update(msg)
	m = updated.(Model)

	assert.False(t, m.loading)
	rows := m.prices.Rows()
	require.Len(t, rows, 3)

	assert.Equal(t, "WEGLD", rows[0].Ticker)
	assert.Equal(t, "14.85", rows[0].Price.String())
	assert.Empty(t, rows[0].Pool)

	assert.Equal(t, "ABC", rows[1].Ticker)
	assert.Equal(t, "pair not found", rows[1].Err)

	assert.Equal(t, "MEX", rows[2].Ticker)
	assert.Equal(t, "0.125", rows[2].Price.String())
	assert.Equal(t, testPool, rows[2].Pool)
	assert.Equal(t, "2.00 MEX", rows[2].CounterpartReserve)

	view := m.View()
	assert.Contains(t, view, "MEX-455c57")
	assert.Contains(t, view, "$0.125")
	assert.Contains(t, view, "pair not found")
}

func TestModel_RefreshKey(t *testing.T) {
	p := &fakePricer{snap: testSnapshot(t)}
	m := dashboard(t, p)

	// A refresh in flight swallows another r.
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Nil(t, cmd)

	updated, _ := m.Update(m.refreshCmd()())
	m = updated.(Model)

	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = updated.(Model)
	assert.NotNil(t, cmd)
	assert.True(t, m.loading)
}

func TestModel_SnapshotError(t *testing.T) {
	p := &fakePricer{err: errors.New("request cancelled")}
	m := dashboard(t, p)

	updated, _ := m.Update(m.refreshCmd()())
	m = updated.(Model)

	require.Len(t, m.errors, 1)
	assert.Equal(t, "request cancelled", m.errors[0].Message)
	assert.Contains(t, m.View(), "ERRORS")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.Empty(t, updated.(Model).errors)
}

func TestModel_Quit(t *testing.T) {
	m := New(Options{Pricer: &fakePricer{}})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Contains(t, updated.View(), "Goodbye")
}

func TestModel_BlockStatus(t *testing.T) {
	m := dashboard(t, &fakePricer{})

	updated, _ := m.Update(BlockMsg{Round: 24_680_135, State: "connected"})
	assert.Contains(t, updated.View(), "round #24680135")
}
