package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Price is an exact, non-negative USD value per whole token.
// The rational is always kept in lowest terms and never shared.
type Price struct {
	r *big.Rat
}

// One is the price of the anchor token.
func One() Price {
	return Price{r: big.NewRat(1, 1)}
}

// NewPrice copies r into a Price.
func NewPrice(r *big.Rat) Price {
	return Price{r: new(big.Rat).Set(r)}
}

// PriceFromRatio builds num/den. den must be non-zero.
func PriceFromRatio(num, den *big.Int) Price {
	return Price{r: new(big.Rat).SetFrac(num, den)}
}

func (p Price) rat() *big.Rat {
	if p.r == nil {
		return new(big.Rat)
	}
	return p.r
}

// Rat returns a copy of the exact value.
func (p Price) Rat() *big.Rat {
	return new(big.Rat).Set(p.rat())
}

// Num returns a copy of the reduced numerator.
func (p Price) Num() *big.Int {
	return new(big.Int).Set(p.rat().Num())
}

// Denom returns a copy of the reduced denominator.
func (p Price) Denom() *big.Int {
	return new(big.Int).Set(p.rat().Denom())
}

// Float64 is the nearest float64. Use for display only.
func (p Price) Float64() float64 {
	f, _ := p.rat().Float64()
	return f
}

// Decimal rounds to places fractional digits for presentation.
func (p Price) Decimal(places int32) decimal.Decimal {
	return decimal.NewFromBigRat(p.rat(), places)
}

// IsZero reports whether the price is zero.
func (p Price) IsZero() bool {
	return p.rat().Sign() == 0
}

// Mul returns p × q.
func (p Price) Mul(q Price) Price {
	return Price{r: new(big.Rat).Mul(p.rat(), q.rat())}
}

// Inv returns 1/p. p must be non-zero.
func (p Price) Inv() Price {
	return Price{r: new(big.Rat).Inv(p.rat())}
}

// Cmp compares two prices.
func (p Price) Cmp(q Price) int {
	return p.rat().Cmp(q.rat())
}

// Equal reports exact equality.
func (p Price) Equal(q Price) bool {
	return p.Cmp(q) == 0
}

// String renders the exact fraction ("7160202800139497/100000000000000000000").
func (p Price) String() string {
	return p.rat().RatString()
}
