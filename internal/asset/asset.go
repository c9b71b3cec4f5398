// Package asset models MultiversX fungible tokens (ESDTs) and their on-chain amounts.
// The core uses big.Int for exact on-chain representation.
// decimal.Decimal is only used at boundaries (UI, parsing, display).
package asset

import (
	"regexp"
	"strings"
)

// Identifier is an ESDT token identifier such as "MEX-455c57".
// Identity is plain string equality.
type Identifier string

var identifierPattern = regexp.MustCompile(`^[A-Z0-9]{3,10}-[0-9a-f]{6}$`)

// Ticker returns the part before the random suffix ("MEX" for "MEX-455c57").
func (id Identifier) Ticker() string {
	s := string(id)
	if i := strings.IndexByte(s, '-'); i > 0 {
		return s[:i]
	}
	return s
}

// Valid reports whether id has the TICKER-hexhex shape issued by the ESDT system contract.
func (id Identifier) Valid() bool {
	return identifierPattern.MatchString(string(id))
}

func (id Identifier) String() string {
	return string(id)
}

// Asset is the metadata of a fungible token.
type Asset struct {
	id       Identifier
	name     string
	decimals uint8
}

// NewAsset creates an Asset.
func NewAsset(id Identifier, name string, decimals uint8) *Asset {
	if id == "" {
		panic("asset: empty identifier")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}

	return &Asset{
		id:       id,
		name:     name,
		decimals: decimals,
	}
}

// ID returns the token identifier.
func (a *Asset) ID() Identifier {
	return a.id
}

// Symbol returns the ticker (e.g., "WEGLD").
func (a *Asset) Symbol() string {
	return a.id.Ticker()
}

// Name returns the human-readable name, falling back to the ticker.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.Symbol()
	}
	return a.name
}

// Decimals returns the number of decimal places.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}

func (a *Asset) String() string {
	return string(a.id)
}

// Equals compares two Assets by identifier.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id == other.id
}
