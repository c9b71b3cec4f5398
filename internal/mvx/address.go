// Package mvx talks to MultiversX smart contracts through read-only VM queries.
package mvx

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/fd1az/price-getter/internal/apperror"
)

// AddressHRP is the human readable part of mainnet bech32 addresses.
const AddressHRP = "erd"

// AddressLen is the byte length of an account public key.
const AddressLen = 32

// Address is a 32-byte account or contract public key.
type Address [AddressLen]byte

// ZeroAddress is the all-zero account, returned by the router when no pair exists.
var ZeroAddress Address

// ParseAddress decodes an erd1... bech32 string.
func ParseAddress(s string) (Address, error) {
	var a Address

	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return a, apperror.New(apperror.CodeInvalidAddress, apperror.WithContext(s), apperror.WithCause(err))
	}
	if hrp != AddressHRP {
		return a, apperror.New(apperror.CodeInvalidAddress,
			apperror.WithContext(fmt.Sprintf("%s: unexpected hrp %q", s, hrp)))
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return a, apperror.New(apperror.CodeInvalidAddress, apperror.WithContext(s), apperror.WithCause(err))
	}

	return AddressFromBytes(raw)
}

// MustParseAddress is ParseAddress for constants; it panics on bad input.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes copies a 32-byte public key.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLen {
		return a, apperror.New(apperror.CodeInvalidAddress,
			apperror.WithContext(fmt.Sprintf("expected %d bytes, got %d", AddressLen, len(b))))
	}
	copy(a[:], b)
	return a, nil
}

// Bytes returns a copy of the public key.
func (a Address) Bytes() []byte {
	return bytes.Clone(a[:])
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Bech32 encodes the address as erd1...
func (a Address) Bech32() string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		return ""
	}
	s, err := bech32.Encode(AddressHRP, conv)
	if err != nil {
		return ""
	}
	return s
}

func (a Address) String() string {
	return a.Bech32()
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Bech32()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
