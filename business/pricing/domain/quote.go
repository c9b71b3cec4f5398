package domain

import (
	"time"

	"github.com/fd1az/price-getter/internal/asset"
	"github.com/fd1az/price-getter/internal/mvx"
)

// PairAddress is the account of an xExchange pool contract.
type PairAddress = mvx.Address

// Quote is a priced token with the pool state it was derived from.
// Anchor quotes carry no pool.
type Quote struct {
	Token       Token
	Counterpart Token
	Pair        PairAddress

	BridgeReserve      asset.Amount
	CounterpartReserve asset.Amount

	Price     Price
	Timestamp time.Time
}

// Direct reports whether the price came without querying any pool.
func (q Quote) Direct() bool {
	return q.Pair.IsZero()
}

// PriceSnapshot is a batch of quotes resolved together.
type PriceSnapshot struct {
	ID        string
	Quotes    []Quote
	Errors    map[TokenIdentifier]error
	Timestamp time.Time
}
