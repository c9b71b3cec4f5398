// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"math/big"

	"github.com/fd1az/price-getter/business/pricing/domain"
)

// PairLocator finds the pool holding two tokens.
type PairLocator interface {
	// GetPair returns the pool address for first/second, or a PAIR_NOT_FOUND
	// error when the router holds no such pool.
	GetPair(ctx context.Context, first, second domain.TokenIdentifier) (domain.PairAddress, error)
}

// ReserveReader reads pool balances.
type ReserveReader interface {
	// GetReserve returns the pool's balance of token in its smallest unit.
	GetReserve(ctx context.Context, pair domain.PairAddress, token domain.TokenIdentifier) (*big.Int, error)
}

// DecimalsProvider resolves the precision of a token.
type DecimalsProvider interface {
	Decimals(ctx context.Context, id domain.TokenIdentifier) (uint8, error)
}
