// Package domain contains the core domain types for the pricing context.
package domain

import (
	"fmt"

	"github.com/fd1az/price-getter/internal/asset"
)

// TokenIdentifier names an ESDT, e.g. "MEX-455c57".
type TokenIdentifier = asset.Identifier

// Token is an identifier together with its decimal precision.
type Token struct {
	ID       TokenIdentifier
	Decimals uint8
}

// NewToken creates a Token.
func NewToken(id TokenIdentifier, decimals uint8) Token {
	return Token{ID: id, Decimals: decimals}
}

// TokenFromAsset converts a registry asset.
func TokenFromAsset(a *asset.Asset) Token {
	return Token{ID: a.ID(), Decimals: a.Decimals()}
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%d)", t.ID, t.Decimals)
}
