package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func bigInt(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad integer %q", s)
	}
	return v
}

func TestExchangeRate(t *testing.T) {
	wegld := NewToken("WEGLD-bd4d79", 18)
	usdc := NewToken("USDC-c76f1f", 6)
	mex := NewToken("MEX-455c57", 18)

	tests := []struct {
		name               string
		counterpart        Token
		bridgeReserve      string
		counterpartReserve string
		want               string
	}{
		{
			name:               "wegld_usdc_pool",
			counterpart:        usdc,
			bridgeReserve:      "1000000000000000000000000000",
			counterpartReserve: "14856761003204669",
			want:               "1000000000000000/14856761003204669",
		},
		{
			name:               "wegld_mex_pool",
			counterpart:        mex,
			bridgeReserve:      "7160202800139497000000",
			counterpartReserve: "1485676100320466900000000000",
			want:               "7160202800139497/1485676100320466900000",
		},
		{
			name:               "balanced_pool_same_decimals",
			counterpart:        mex,
			bridgeReserve:      "5000",
			counterpartReserve: "5000",
			want:               "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := ExchangeRate(wegld, tt.counterpart, bigInt(t, tt.bridgeReserve), bigInt(t, tt.counterpartReserve))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rate.String() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, rate.String())
			}
		})
	}
}

func TestExchangeRate_ZeroReserve(t *testing.T) {
	wegld := NewToken("WEGLD-bd4d79", 18)
	dry := NewToken("DRY-0d0d0d", 18)

	cases := [][2]*big.Int{
		{big.NewInt(0), big.NewInt(10)},
		{big.NewInt(10), big.NewInt(0)},
		{big.NewInt(0), big.NewInt(0)},
	}
	for _, c := range cases {
		if _, err := ExchangeRate(wegld, dry, c[0], c[1]); err == nil {
			t.Errorf("expected INSUFFICIENT_LIQUIDITY for reserves %s/%s", c[0], c[1])
		}
	}
}

func TestPrice_Arithmetic(t *testing.T) {
	// WEGLD/USDC rate inverted gives the WEGLD price.
	rate := PriceFromRatio(bigInt(t, "1000000000000000"), bigInt(t, "14856761003204669"))
	wegld := rate.Inv()

	if wegld.String() != "14856761003204669/1000000000000000" {
		t.Errorf("unexpected WEGLD price %s", wegld)
	}
	if !wegld.Decimal(6).Equal(decimal.RequireFromString("14.856761")) {
		t.Errorf("unexpected decimal %s", wegld.Decimal(6))
	}

	mexRate := PriceFromRatio(bigInt(t, "7160202800139497"), bigInt(t, "1485676100320466900000"))
	mex := wegld.Mul(mexRate)
	if mex.String() != "7160202800139497/100000000000000000000" {
		t.Errorf("unexpected MEX price %s", mex)
	}
	if mex.Float64() <= 0 || mex.Float64() >= 0.0001 {
		t.Errorf("unexpected MEX float %v", mex.Float64())
	}
}

func TestPrice_Immutable(t *testing.T) {
	src := big.NewRat(3, 2)
	p := NewPrice(src)
	src.SetInt64(7)

	if p.String() != "3/2" {
		t.Errorf("NewPrice must copy its input, got %s", p)
	}

	r := p.Rat()
	r.SetInt64(9)
	if p.String() != "3/2" {
		t.Errorf("Rat must return a copy, got %s", p)
	}

	if !One().Equal(NewPrice(big.NewRat(4, 4))) {
		t.Error("One should equal 4/4")
	}
	if !(Price{}).IsZero() {
		t.Error("zero value should be zero")
	}
}
